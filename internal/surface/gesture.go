package surface

import (
	"context"

	"github.com/evanschultz/lapse/internal/domain"
)

// DefaultDragThreshold is how far a pointer must travel before a gesture
// counts as a drag instead of a tap.
const DefaultDragThreshold = 4.0

// PointerID identifies one pointer. Only the pointer that started a gesture
// may drive it.
type PointerID int

// Phase is the gesture state.
type Phase int

// Phase values.
const (
	PhaseIdle Phase = iota
	PhaseTracking
)

// String returns a readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseTracking:
		return "tracking"
	default:
		return "idle"
	}
}

// Outcome classifies how a gesture ended.
type Outcome int

// Outcome values.
const (
	OutcomeNone Outcome = iota
	OutcomeDragged
	OutcomeTappedReset
)

// String returns a readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeDragged:
		return "dragged"
	case OutcomeTappedReset:
		return "tapped"
	default:
		return "none"
	}
}

// GestureStore is the store surface a gesture reads and mutates.
type GestureStore interface {
	Get(string) (domain.Activity, bool)
	Move(context.Context, string, domain.Point) error
	ResetTimer(context.Context, string) error
}

// BoundsSource supplies the current surface bounds.
type BoundsSource interface {
	Current() (domain.Bounds, bool)
}

// GestureController recognizes drag and tap on one bubble.
//
// Idle -> Tracking on pointer down. While tracking, moves from the same
// pointer commit clamp(start + delta) to the store on every event. Travel beyond
// the threshold marks the gesture as a drag for good. Pointer up or cancel
// returns to Idle and, when no drag happened, resets the activity timer.
type GestureController struct {
	activityID string
	store      GestureStore
	bounds     BoundsSource
	threshold  float64

	phase     Phase
	pointer   PointerID
	origin    domain.Point
	start     domain.Point
	moved     bool
}

// NewGestureController builds an idle controller for activityID. A threshold
// <= 0 uses DefaultDragThreshold.
func NewGestureController(activityID string, store GestureStore, bounds BoundsSource, threshold float64) *GestureController {
	if threshold <= 0 {
		threshold = DefaultDragThreshold
	}
	return &GestureController{
		activityID: activityID,
		store:      store,
		bounds:     bounds,
		threshold:  threshold,
	}
}

// ActivityID returns the bubble this controller drives.
func (g *GestureController) ActivityID() string {
	return g.activityID
}

// Phase returns the current state.
func (g *GestureController) Phase() Phase {
	return g.phase
}

// Pointer returns the active pointer and whether a gesture is in progress.
func (g *GestureController) Pointer() (PointerID, bool) {
	return g.pointer, g.phase == PhaseTracking
}

// Moved reports whether the current gesture has become a drag.
func (g *GestureController) Moved() bool {
	return g.moved
}

// PointerDown starts tracking. It reports false when the gesture was not
// started: a gesture is already in progress or the activity is gone.
func (g *GestureController) PointerDown(pointer PointerID, at domain.Point) bool {
	if g.phase == PhaseTracking {
		return false
	}
	a, ok := g.store.Get(g.activityID)
	if !ok {
		return false
	}
	g.phase = PhaseTracking
	g.pointer = pointer
	g.origin = at
	g.start = a.Position
	g.moved = false
	return true
}

// PointerMove commits the dragged position. Events from other pointers, or
// while idle, are ignored.
func (g *GestureController) PointerMove(ctx context.Context, pointer PointerID, at domain.Point) error {
	if g.phase != PhaseTracking || pointer != g.pointer {
		return nil
	}
	a, ok := g.store.Get(g.activityID)
	if !ok {
		g.reset()
		return nil
	}

	delta := at.Sub(g.origin)
	if !g.moved && delta.Magnitude() > g.threshold {
		g.moved = true
	}

	candidate := g.start.Add(delta)
	// Bounds are read per event so a resize during the drag is honored.
	if b, measured := g.bounds.Current(); measured {
		candidate = b.ClampPosition(candidate, a.Size)
	} else {
		candidate = domain.Point{X: max(0, candidate.X), Y: max(0, candidate.Y)}
	}
	return g.store.Move(ctx, g.activityID, candidate)
}

// PointerUp ends the gesture. A gesture that never became a drag resets the
// activity timer.
func (g *GestureController) PointerUp(ctx context.Context, pointer PointerID) (Outcome, error) {
	return g.end(ctx, pointer)
}

// PointerCancel ends the gesture the same way a release does. Later moves for
// the pointer are ignored.
func (g *GestureController) PointerCancel(ctx context.Context, pointer PointerID) (Outcome, error) {
	return g.end(ctx, pointer)
}

func (g *GestureController) end(ctx context.Context, pointer PointerID) (Outcome, error) {
	if g.phase != PhaseTracking || pointer != g.pointer {
		return OutcomeNone, nil
	}
	moved := g.moved
	g.reset()
	if moved {
		return OutcomeDragged, nil
	}
	if err := g.store.ResetTimer(ctx, g.activityID); err != nil {
		return OutcomeTappedReset, err
	}
	return OutcomeTappedReset, nil
}

func (g *GestureController) reset() {
	g.phase = PhaseIdle
	g.pointer = 0
	g.moved = false
}

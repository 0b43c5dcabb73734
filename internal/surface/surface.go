// Package surface hosts the interactive bubble engine: bounds tracking,
// repositioning on resize, drag and tap gestures, and reset pulses.
package surface

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/evanschultz/lapse/internal/app"
	"github.com/evanschultz/lapse/internal/domain"
)

// Store is what a surface needs from the activity store.
type Store interface {
	GestureStore
	ActivityMover
	ListByCategory(string) []domain.Activity
	SetSpawn(app.SpawnFunc)
}

// Config holds configuration for a surface.
type Config struct {
	DragThreshold float64
	PulseDuration time.Duration
	Spawn         SpawnPolicy
	Logger        app.Logger
}

// Surface binds a store to one bounded drawing area. It owns the bounds
// tracker, the reposition policy subscription, one gesture controller per
// bubble, and the reset pulse. Create it when the view mounts and Close it
// when the view goes away.
type Surface struct {
	ctx       context.Context
	store     Store
	tracker   *BoundsTracker
	policy    *RepositionPolicy
	pulse     *Pulse
	logger    app.Logger
	threshold float64

	gestures map[string]*GestureController
	detach   func()
	once     sync.Once
}

// New mounts a surface over store. ctx scopes the store writes issued by
// repositioning.
func New(ctx context.Context, store Store, cfg Config) *Surface {
	if ctx == nil {
		ctx = context.Background()
	}
	threshold := cfg.DragThreshold
	if threshold <= 0 {
		threshold = DefaultDragThreshold
	}
	s := &Surface{
		ctx:       ctx,
		store:     store,
		tracker:   NewBoundsTracker(),
		policy:    NewRepositionPolicy(store),
		pulse:     NewPulse(cfg.PulseDuration),
		logger:    cfg.Logger,
		threshold: threshold,
		gestures:  map[string]*GestureController{},
	}
	s.detach = s.policy.Attach(ctx, s.tracker, func(err error) {
		if s.logger != nil {
			s.logger.Warn("reposition after resize failed", "err", err)
		}
	})
	store.SetSpawn(cfg.Spawn.SpawnFunc(s.tracker))
	// Seed the pulse so bubbles present at mount do not flash.
	s.pulse.Observe(store.List(), time.Now())
	return s
}

// Close releases the bounds subscription and resets the spawn policy. It is
// safe to call more than once.
func (s *Surface) Close() {
	s.once.Do(func() {
		s.detach()
		s.store.SetSpawn(nil)
		clear(s.gestures)
	})
}

// Tracker exposes the bounds tracker.
func (s *Surface) Tracker() *BoundsTracker {
	return s.tracker
}

// Resize records new bounds. Every activity is back in range when it returns.
func (s *Surface) Resize(b domain.Bounds) bool {
	return s.tracker.Observe(b)
}

// Bounds returns the last measured bounds.
func (s *Surface) Bounds() (domain.Bounds, bool) {
	return s.tracker.Current()
}

// HitTest returns the topmost bubble in category under at. Later activities
// draw over earlier ones.
func (s *Surface) HitTest(category string, at domain.Point) (string, bool) {
	list := s.store.ListByCategory(category)
	for _, a := range slices.Backward(list) {
		if at.X >= a.Position.X && at.X < a.Position.X+a.Size &&
			at.Y >= a.Position.Y && at.Y < a.Position.Y+a.Size {
			return a.ID, true
		}
	}
	return "", false
}

// PointerDown starts a gesture on activityID. It reports whether tracking
// began.
func (s *Surface) PointerDown(activityID string, pointer PointerID, at domain.Point) bool {
	if _, busy := s.activeGesture(pointer); busy {
		return false
	}
	g, ok := s.gestures[activityID]
	if !ok {
		g = NewGestureController(activityID, s.store, s.tracker, s.threshold)
		s.gestures[activityID] = g
	}
	return g.PointerDown(pointer, at)
}

// PointerMove routes a move to the gesture driven by pointer.
func (s *Surface) PointerMove(ctx context.Context, pointer PointerID, at domain.Point) error {
	g, ok := s.activeGesture(pointer)
	if !ok {
		return nil
	}
	return g.PointerMove(ctx, pointer, at)
}

// PointerUp ends the gesture driven by pointer.
func (s *Surface) PointerUp(ctx context.Context, pointer PointerID) (string, Outcome, error) {
	g, ok := s.activeGesture(pointer)
	if !ok {
		return "", OutcomeNone, nil
	}
	outcome, err := g.PointerUp(ctx, pointer)
	s.forget(g)
	return g.ActivityID(), outcome, err
}

// PointerCancel aborts the gesture driven by pointer.
func (s *Surface) PointerCancel(ctx context.Context, pointer PointerID) (string, Outcome, error) {
	g, ok := s.activeGesture(pointer)
	if !ok {
		return "", OutcomeNone, nil
	}
	outcome, err := g.PointerCancel(ctx, pointer)
	s.forget(g)
	return g.ActivityID(), outcome, err
}

// Tracking reports the bubble currently being dragged or pressed, if any.
// With several gestures in flight the lowest activity id wins.
func (s *Surface) Tracking() (string, bool) {
	for _, id := range slices.Sorted(maps.Keys(s.gestures)) {
		if s.gestures[id].Phase() == PhaseTracking {
			return id, true
		}
	}
	return "", false
}

// Tap resets activityID as a completed tap would.
func (s *Surface) Tap(ctx context.Context, activityID string) error {
	return s.store.ResetTimer(ctx, activityID)
}

// Nudge moves activityID by delta, clamped to the current bounds.
func (s *Surface) Nudge(ctx context.Context, activityID string, delta domain.Point) error {
	a, ok := s.store.Get(activityID)
	if !ok {
		return nil
	}
	next := a.Position.Add(delta)
	if b, measured := s.tracker.Current(); measured {
		next = b.ClampPosition(next, a.Size)
	} else {
		next = domain.Point{X: max(0, next.X), Y: max(0, next.Y)}
	}
	if next == a.Position {
		return nil
	}
	return s.store.Move(ctx, activityID, next)
}

// ObservePulses arms pulses for activities reset since the last call.
func (s *Surface) ObservePulses(now time.Time) []string {
	return s.pulse.Observe(s.store.List(), now)
}

// Pulsing reports whether activityID is highlighted at now.
func (s *Surface) Pulsing(activityID string, now time.Time) bool {
	return s.pulse.Active(activityID, now)
}

// ExpirePulses drops finished pulses and reports whether any remain.
func (s *Surface) ExpirePulses(now time.Time) bool {
	return s.pulse.Expire(now)
}

// PulseDuration returns the configured pulse length.
func (s *Surface) PulseDuration() time.Duration {
	return s.pulse.Duration()
}

func (s *Surface) activeGesture(pointer PointerID) (*GestureController, bool) {
	for _, g := range s.gestures {
		if p, tracking := g.Pointer(); tracking && p == pointer {
			return g, true
		}
	}
	return nil, false
}

// forget drops idle controllers for deleted activities.
func (s *Surface) forget(g *GestureController) {
	if _, ok := s.store.Get(g.ActivityID()); !ok {
		delete(s.gestures, g.ActivityID())
	}
}

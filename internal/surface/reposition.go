package surface

import (
	"context"
	"errors"

	"github.com/evanschultz/lapse/internal/domain"
)

// ActivityMover is the store surface the reposition policy needs.
type ActivityMover interface {
	List() []domain.Activity
	Move(context.Context, string, domain.Point) error
}

// RepositionPolicy keeps every activity inside the surface after a bounds
// change. Positions already in range are left alone; others are clamped to
// the nearest valid position.
type RepositionPolicy struct {
	store ActivityMover
}

// NewRepositionPolicy constructs a policy over store.
func NewRepositionPolicy(store ActivityMover) *RepositionPolicy {
	return &RepositionPolicy{store: store}
}

// Apply clamps every activity into b and moves the ones whose position
// changed. It returns how many moved. Move errors are collected so one failed
// write does not leave later activities out of range.
func (p *RepositionPolicy) Apply(ctx context.Context, b domain.Bounds) (int, error) {
	moved := 0
	var errs []error
	for _, a := range p.store.List() {
		clamped := b.ClampPosition(a.Position, a.Size)
		if clamped == a.Position {
			continue
		}
		if err := p.store.Move(ctx, a.ID, clamped); err != nil {
			errs = append(errs, err)
		}
		moved++
	}
	return moved, errors.Join(errs...)
}

// Attach subscribes the policy to tracker and returns the detach func.
// onError, when set, receives failures from Apply.
func (p *RepositionPolicy) Attach(ctx context.Context, tracker *BoundsTracker, onError func(error)) (detach func()) {
	return tracker.Subscribe(func(b domain.Bounds) {
		if _, err := p.Apply(ctx, b); err != nil && onError != nil {
			onError(err)
		}
	})
}

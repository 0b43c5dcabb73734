package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/lapse/internal/domain"
)

// ActivityStore is the store surface the service adapter drives.
type ActivityStore interface {
	Add(context.Context, string, string) (string, error)
	Rename(context.Context, string, string) error
	Delete(context.Context, string) error
	ResetTimer(context.Context, string) error
	Move(context.Context, string, domain.Point) error
	SetImage(context.Context, string, domain.Image) error
	MarkImageFailed(context.Context, string) error
	Get(string) (domain.Activity, bool)
	List() []domain.Activity
	ListByCategory(string) []domain.Activity
}

// StoreService adapts an activity store to ActivityService. The store treats
// blank titles and unknown ids as no-ops; the adapter reports them instead so
// remote callers can tell nothing happened.
type StoreService struct {
	store    ActivityStore
	now      func() time.Time
	observer MutationObserver
}

// NewStoreService constructs the adapter. now and observer may be nil.
func NewStoreService(store ActivityStore, now func() time.Time, observer MutationObserver) *StoreService {
	if now == nil {
		now = time.Now
	}
	return &StoreService{store: store, now: now, observer: observer}
}

// ListActivities lists every activity, or one category's when category is set.
func (s *StoreService) ListActivities(_ context.Context, category string) ([]ActivityView, error) {
	var list []domain.Activity
	if category = strings.TrimSpace(category); category != "" {
		list = s.store.ListByCategory(category)
	} else {
		list = s.store.List()
	}
	now := s.now()
	out := make([]ActivityView, 0, len(list))
	for _, a := range list {
		out = append(out, viewOf(a, now))
	}
	return out, nil
}

// GetActivity returns one activity.
func (s *StoreService) GetActivity(_ context.Context, id string) (ActivityView, error) {
	return s.view(id)
}

// AddActivity creates one activity.
func (s *StoreService) AddActivity(ctx context.Context, req AddActivityRequest) (ActivityView, error) {
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return ActivityView{}, fmt.Errorf("category is required: %w", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Title) == "" {
		return ActivityView{}, fmt.Errorf("title is required: %w", ErrInvalidRequest)
	}
	id, err := s.store.Add(ctx, category, req.Title)
	if id == "" {
		if err == nil {
			err = errors.New("activity was not created")
		}
		return ActivityView{}, err
	}
	s.applied("add")
	if err != nil {
		return ActivityView{}, err
	}
	return s.view(id)
}

// RenameActivity retitles one activity.
func (s *StoreService) RenameActivity(ctx context.Context, req RenameActivityRequest) (ActivityView, error) {
	if strings.TrimSpace(req.Title) == "" {
		return ActivityView{}, fmt.Errorf("title is required: %w", ErrInvalidRequest)
	}
	return s.mutate(ctx, "rename", req.ID, func(id string) error {
		return s.store.Rename(ctx, id, req.Title)
	})
}

// DeleteActivity removes one activity.
func (s *StoreService) DeleteActivity(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, "delete", id, func(id string) error {
		return s.store.Delete(ctx, id)
	})
	return err
}

// ResetActivity restarts one activity's timer.
func (s *StoreService) ResetActivity(ctx context.Context, id string) (ActivityView, error) {
	return s.mutate(ctx, "reset", id, func(id string) error {
		return s.store.ResetTimer(ctx, id)
	})
}

// SetActivityImage replaces one activity's image.
func (s *StoreService) SetActivityImage(ctx context.Context, req SetImageRequest) (ActivityView, error) {
	img, err := domain.ParseImage(req.ImageURL)
	if err != nil {
		return ActivityView{}, errors.Join(ErrInvalidRequest, err)
	}
	return s.mutate(ctx, "set_image", req.ID, func(id string) error {
		return s.store.SetImage(ctx, id, img)
	})
}

// MarkActivityImageFailed records that a client could not load the image.
func (s *StoreService) MarkActivityImageFailed(ctx context.Context, id string) (ActivityView, error) {
	return s.mutate(ctx, "image_failed", id, func(id string) error {
		return s.store.MarkImageFailed(ctx, id)
	})
}

// MoveActivity places one activity, clamped to the supplied surface.
func (s *StoreService) MoveActivity(ctx context.Context, req MoveActivityRequest) (ActivityView, error) {
	if req.Width < 0 || req.Height < 0 {
		return ActivityView{}, fmt.Errorf("surface size must not be negative: %w", ErrInvalidRequest)
	}
	return s.mutate(ctx, "move", req.ID, func(id string) error {
		a, _ := s.store.Get(id)
		p := domain.Point{X: req.X, Y: req.Y}
		if b := (domain.Bounds{Width: req.Width, Height: req.Height}); b.Width > 0 && b.Height > 0 {
			p = b.ClampPosition(p, a.Size)
		} else {
			p = domain.Point{X: max(0, p.X), Y: max(0, p.Y)}
		}
		return s.store.Move(ctx, id, p)
	})
}

// mutate resolves id, runs fn, and returns the resulting activity. A deleted
// activity yields the zero view.
func (s *StoreService) mutate(_ context.Context, op, id string, fn func(string) error) (ActivityView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ActivityView{}, fmt.Errorf("id is required: %w", ErrInvalidRequest)
	}
	if _, ok := s.store.Get(id); !ok {
		return ActivityView{}, fmt.Errorf("activity %q: %w", id, ErrNotFound)
	}
	if err := fn(id); err != nil {
		return ActivityView{}, err
	}
	s.applied(op)
	if a, ok := s.store.Get(id); ok {
		return viewOf(a, s.now()), nil
	}
	return ActivityView{}, nil
}

func (s *StoreService) view(id string) (ActivityView, error) {
	a, ok := s.store.Get(strings.TrimSpace(id))
	if !ok {
		return ActivityView{}, fmt.Errorf("activity %q: %w", id, ErrNotFound)
	}
	return viewOf(a, s.now()), nil
}

func (s *StoreService) applied(op string) {
	if s.observer != nil {
		s.observer.MutationApplied(op)
	}
}

// viewOf maps a domain activity to its transport shape.
func viewOf(a domain.Activity, now time.Time) ActivityView {
	return ActivityView{
		ID:           a.ID,
		Title:        a.Title,
		Category:     a.Category,
		CreatedAt:    a.CreatedAt,
		LastResetAt:  a.LastResetAt,
		Elapsed:      domain.ElapsedLabel(a.ElapsedSince(), now),
		ImageURL:     a.Image.Ref(),
		ImageFailed:  a.ImageFailed,
		DisplayImage: a.DisplayImage(""),
		X:            a.Position.X,
		Y:            a.Position.Y,
		Size:         a.Size,
	}
}

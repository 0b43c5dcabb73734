package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/evanschultz/lapse/internal/domain"
)

// SpawnFunc picks the position of a newly added bubble of the given size.
type SpawnFunc func(size float64) domain.Point

// StoreConfig holds configuration for the activity store.
type StoreConfig struct {
	Key         string
	DefaultSize float64
	Spawn       SpawnFunc
	Logger      Logger
	// OnChange runs after every successful mutation with a copy of the list.
	OnChange func([]domain.Activity)
}

// Store owns the canonical activity list. It is the only writer: callers read
// copies and request changes through its methods. Every mutation persists the
// full list before returning.
type Store struct {
	storage     RecordStorage
	idGen       IDGenerator
	clock       Clock
	key         string
	defaultSize float64
	logger      Logger
	onChange    func([]domain.Activity)

	mu         sync.Mutex
	activities []domain.Activity
	spawn      SpawnFunc
}

// NewStore constructs an empty store. Call Load to rehydrate persisted state.
func NewStore(storage RecordStorage, idGen IDGenerator, clock Clock, cfg StoreConfig) *Store {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = DefaultStorageKey
	}
	size := cfg.DefaultSize
	if size <= 0 {
		size = domain.DefaultBubbleSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Store{
		storage:     storage,
		idGen:       idGen,
		clock:       clock,
		key:         key,
		defaultSize: size,
		logger:      logger,
		onChange:    cfg.OnChange,
		spawn:       cfg.Spawn,
	}
}

// Key returns the storage key the list is persisted under.
func (s *Store) Key() string {
	return s.key
}

// DefaultSize returns the size given to new activities.
func (s *Store) DefaultSize() float64 {
	return s.defaultSize
}

// SetSpawn replaces the placement policy for new activities. Nil places them
// at the origin.
func (s *Store) SetSpawn(fn SpawnFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawn = fn
}

// Load replaces in-memory state with the persisted record. A missing record
// and a corrupt payload both leave the store empty; only a storage read
// failure is returned, so the caller can avoid overwriting data it could not
// read.
func (s *Store) Load(ctx context.Context) error {
	payload, err := s.storage.ReadRecord(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			s.logger.Debug("no persisted activities", "key", s.key)
			s.replace(nil)
			return nil
		}
		return fmt.Errorf("read activities record %q: %w", s.key, err)
	}
	activities, skipped, err := DecodeRecord(payload, s.defaultSize)
	if err != nil {
		s.logger.Warn("persisted activities unreadable; starting empty", "key", s.key, "err", err)
		s.replace(nil)
		return nil
	}
	if skipped > 0 {
		s.logger.Warn("skipped invalid persisted activities", "key", s.key, "skipped", skipped)
	}
	s.logger.Debug("loaded activities", "key", s.key, "count", len(activities))
	s.replace(activities)
	return nil
}

// Add creates an activity and returns its id. A title that trims to empty is
// ignored and yields "".
func (s *Store) Add(ctx context.Context, category, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", nil
	}
	var id string
	err := s.mutate(ctx, func(list []domain.Activity) ([]domain.Activity, bool, error) {
		candidate := s.idGen()
		if slices.ContainsFunc(list, func(a domain.Activity) bool { return a.ID == candidate }) {
			return nil, false, fmt.Errorf("add activity %q: %w", candidate, ErrDuplicateID)
		}
		pos := domain.Point{}
		if s.spawn != nil {
			pos = s.spawn(s.defaultSize)
		}
		a, err := domain.NewActivity(domain.ActivityInput{
			ID:       candidate,
			Title:    title,
			Category: category,
			Position: pos,
			Size:     s.defaultSize,
		}, s.clock())
		if err != nil {
			return nil, false, fmt.Errorf("add activity: %w", err)
		}
		id = a.ID
		return append(list, a), true, nil
	})
	if err != nil && id == "" {
		return "", err
	}
	return id, err
}

// Rename replaces the title of id. Unknown ids and blank titles are no-ops.
func (s *Store) Rename(ctx context.Context, id, title string) error {
	return s.update(ctx, id, func(a *domain.Activity) bool {
		if a.Title == strings.TrimSpace(title) {
			return false
		}
		return a.Rename(title) == nil
	})
}

// Delete removes id. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(list []domain.Activity) ([]domain.Activity, bool, error) {
		idx := indexOf(list, id)
		if idx < 0 {
			return list, false, nil
		}
		return slices.Delete(list, idx, idx+1), true, nil
	})
}

// ResetTimer stamps lastResetAt with the current time.
func (s *Store) ResetTimer(ctx context.Context, id string) error {
	now := s.clock()
	return s.update(ctx, id, func(a *domain.Activity) bool {
		a.ResetTimer(now)
		return true
	})
}

// Move sets the position verbatim. Callers clamp against the surface first.
func (s *Store) Move(ctx context.Context, id string, p domain.Point) error {
	return s.update(ctx, id, func(a *domain.Activity) bool {
		if a.Position == p {
			return false
		}
		a.MoveTo(p)
		return true
	})
}

// SetImage replaces the image and clears any recorded load failure.
func (s *Store) SetImage(ctx context.Context, id string, img domain.Image) error {
	return s.update(ctx, id, func(a *domain.Activity) bool {
		if a.Image.Equal(img) && !a.ImageFailed {
			return false
		}
		a.SetImage(img)
		return true
	})
}

// MarkImageFailed records that the image of id could not be loaded so
// presentation stops retrying it.
func (s *Store) MarkImageFailed(ctx context.Context, id string) error {
	return s.update(ctx, id, func(a *domain.Activity) bool {
		if a.ImageFailed || a.Image.IsAbsent() {
			return false
		}
		a.MarkImageFailed()
		return true
	})
}

// Get returns a copy of one activity.
func (s *Store) Get(id string) (domain.Activity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOf(s.activities, id)
	if idx < 0 {
		return domain.Activity{}, false
	}
	return s.activities[idx], true
}

// List returns a copy of every activity in store order.
func (s *Store) List() []domain.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.activities)
}

// ListByCategory returns activities whose category matches exactly, in store
// order.
func (s *Store) ListByCategory(category string) []domain.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

// Export returns the persisted record for the current list.
func (s *Store) Export(context.Context) ([]byte, error) {
	return EncodeRecord(s.List())
}

// Import replaces the whole list with the activities in payload. Unlike Load,
// a malformed payload is an error and leaves the store untouched.
func (s *Store) Import(ctx context.Context, payload []byte) (imported, skipped int, err error) {
	activities, skipped, err := DecodeRecord(payload, s.defaultSize)
	if err != nil {
		return 0, 0, fmt.Errorf("import activities: %w", err)
	}
	err = s.mutate(ctx, func([]domain.Activity) ([]domain.Activity, bool, error) {
		return activities, true, nil
	})
	return len(activities), skipped, err
}

// update applies fn to the activity with id and persists when fn reports a
// change.
func (s *Store) update(ctx context.Context, id string, fn func(*domain.Activity) bool) error {
	return s.mutate(ctx, func(list []domain.Activity) ([]domain.Activity, bool, error) {
		idx := indexOf(list, id)
		if idx < 0 {
			return list, false, nil
		}
		changed := fn(&list[idx])
		return list, changed, nil
	})
}

// mutate runs fn against a private copy of the list. When fn reports a change
// the copy becomes canonical and is persisted while the lock is held, so
// writes reach storage in mutation order. A failed write keeps the in-memory
// change and is returned wrapped in ErrPersist.
func (s *Store) mutate(ctx context.Context, fn func([]domain.Activity) ([]domain.Activity, bool, error)) error {
	s.mu.Lock()
	next, changed, err := fn(slices.Clone(s.activities))
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.activities = next
	persistErr := s.persistLocked(ctx)
	snapshot := slices.Clone(s.activities)
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(snapshot)
	}
	return persistErr
}

// persistLocked writes the full list. Callers hold s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	payload, err := EncodeRecord(s.activities)
	if err != nil {
		return errors.Join(ErrPersist, err)
	}
	if err := s.storage.WriteRecord(ctx, s.key, payload); err != nil {
		s.logger.Warn("persist activities failed", "key", s.key, "err", err)
		return errors.Join(ErrPersist, err)
	}
	return nil
}

// replace swaps the list without persisting.
func (s *Store) replace(activities []domain.Activity) {
	s.mu.Lock()
	s.activities = slices.Clone(activities)
	snapshot := slices.Clone(s.activities)
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(snapshot)
	}
}

// indexOf returns the position of id in list, or -1.
func indexOf(list []domain.Activity, id string) int {
	return slices.IndexFunc(list, func(a domain.Activity) bool { return a.ID == id })
}

// nopLogger discards diagnostics.
type nopLogger struct{}

func (nopLogger) Debug(any, ...any) {}
func (nopLogger) Warn(any, ...any)  {}

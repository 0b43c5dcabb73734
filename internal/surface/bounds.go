package surface

import (
	"sync"

	"github.com/evanschultz/lapse/internal/domain"
)

// BoundsTracker holds the last measured surface size and notifies subscribers
// when it changes. Notification is synchronous: Observe returns only after
// every subscriber has run.
type BoundsTracker struct {
	mu       sync.Mutex
	current  domain.Bounds
	measured bool
	nextID   int
	subs     []subscription
}

type subscription struct {
	id int
	fn func(domain.Bounds)
}

// NewBoundsTracker returns a tracker with no measurement yet.
func NewBoundsTracker() *BoundsTracker {
	return &BoundsTracker{}
}

// Observe records a measurement. Negative dimensions count as zero. It reports
// whether the bounds changed; unchanged measurements do not notify.
func (t *BoundsTracker) Observe(b domain.Bounds) bool {
	b.Width = max(0, b.Width)
	b.Height = max(0, b.Height)

	t.mu.Lock()
	if t.measured && t.current == b {
		t.mu.Unlock()
		return false
	}
	t.current = b
	t.measured = true
	subs := make([]func(domain.Bounds), 0, len(t.subs))
	for _, s := range t.subs {
		subs = append(subs, s.fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(b)
	}
	return true
}

// Current returns the last measurement and whether one has been made.
func (t *BoundsTracker) Current() (domain.Bounds, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.measured
}

// Subscribe registers fn for future changes. If bounds were already measured
// fn runs once immediately with them. The returned func removes fn and is safe
// to call more than once.
func (t *BoundsTracker) Subscribe(fn func(domain.Bounds)) (unsubscribe func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscription{id: id, fn: fn})
	current, measured := t.current, t.measured
	t.mu.Unlock()

	if measured {
		fn(current)
	}
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				return
			}
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (t *BoundsTracker) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

package surface

import (
	"time"

	"github.com/evanschultz/lapse/internal/domain"
)

// DefaultPulseDuration is how long a bubble glows after its timer resets.
const DefaultPulseDuration = 420 * time.Millisecond

// Pulse tracks the one-shot highlight shown after a reset. A pulse arms only
// when an activity's lastResetAt differs from the value seen before, so the
// first sighting of an activity and repeated renders never pulse.
type Pulse struct {
	duration time.Duration
	seen     map[string]time.Time
	until    map[string]time.Time
}

// NewPulse returns a tracker using d, or DefaultPulseDuration when d <= 0.
func NewPulse(d time.Duration) *Pulse {
	if d <= 0 {
		d = DefaultPulseDuration
	}
	return &Pulse{
		duration: d,
		seen:     map[string]time.Time{},
		until:    map[string]time.Time{},
	}
}

// Duration returns the pulse length.
func (p *Pulse) Duration() time.Duration {
	return p.duration
}

// Observe compares activities with the last observation and arms a pulse for
// each new reset. It returns the ids armed by this call. Activities no longer
// present are forgotten.
func (p *Pulse) Observe(activities []domain.Activity, now time.Time) []string {
	var armed []string
	present := make(map[string]struct{}, len(activities))
	for _, a := range activities {
		present[a.ID] = struct{}{}
		prev, known := p.seen[a.ID]
		p.seen[a.ID] = a.LastResetAt
		if known && !prev.Equal(a.LastResetAt) {
			p.until[a.ID] = now.Add(p.duration)
			armed = append(armed, a.ID)
		}
	}
	for id := range p.seen {
		if _, ok := present[id]; !ok {
			delete(p.seen, id)
			delete(p.until, id)
		}
	}
	return armed
}

// Active reports whether id is pulsing at now.
func (p *Pulse) Active(id string, now time.Time) bool {
	until, ok := p.until[id]
	return ok && now.Before(until)
}

// Expire drops finished pulses and reports whether any remain.
func (p *Pulse) Expire(now time.Time) bool {
	for id, until := range p.until {
		if !now.Before(until) {
			delete(p.until, id)
		}
	}
	return len(p.until) > 0
}

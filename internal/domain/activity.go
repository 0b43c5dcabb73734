package domain

import (
	"strings"
	"time"
)

// DefaultBubbleSize is the diameter given to new activities, in surface units.
const DefaultBubbleSize = 12

// Activity is one recurring thing the user tracks, drawn as a bubble.
type Activity struct {
	ID          string
	Title       string
	Category    string
	CreatedAt   time.Time
	LastResetAt time.Time
	Image       Image
	ImageFailed bool
	Position    Point
	Size        float64
}

// ActivityInput holds the values needed to create an activity.
type ActivityInput struct {
	ID       string
	Title    string
	Category string
	Position Point
	Size     float64
}

// NewActivity validates input and stamps both timestamps with now.
func NewActivity(in ActivityInput, now time.Time) (Activity, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	if in.ID == "" {
		return Activity{}, ErrInvalidID
	}
	if in.Title == "" {
		return Activity{}, ErrInvalidTitle
	}
	if in.Size < 0 {
		return Activity{}, ErrInvalidSize
	}
	if in.Size == 0 {
		in.Size = DefaultBubbleSize
	}
	ts := NormalizeTimestamp(now)
	return Activity{
		ID:          in.ID,
		Title:       in.Title,
		Category:    in.Category,
		CreatedAt:   ts,
		LastResetAt: ts,
		Position:    in.Position,
		Size:        in.Size,
	}, nil
}

// Rename replaces the title. Blank titles are rejected and leave a untouched.
func (a *Activity) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	a.Title = title
	return nil
}

// ResetTimer restarts the elapsed clock.
func (a *Activity) ResetTimer(now time.Time) {
	a.LastResetAt = NormalizeTimestamp(now)
}

// MoveTo sets the position verbatim; bounds are the caller's concern.
func (a *Activity) MoveTo(p Point) {
	a.Position = p
}

// SetImage replaces the image and forgets any earlier load failure.
func (a *Activity) SetImage(img Image) {
	a.Image = img
	a.ImageFailed = false
}

// MarkImageFailed records that the current image could not be loaded.
func (a *Activity) MarkImageFailed() {
	a.ImageFailed = true
}

// ElapsedSince returns the timestamp the elapsed label counts from.
func (a Activity) ElapsedSince() time.Time {
	if !a.LastResetAt.IsZero() {
		return a.LastResetAt
	}
	return a.CreatedAt
}

// DisplayImage resolves the reference to render for this activity.
func (a Activity) DisplayImage(fallback string) string {
	return ResolveImage(a.Image, a.ImageFailed, fallback)
}

// NormalizeTimestamp converts to UTC at millisecond precision, the precision
// timestamps are persisted with.
func NormalizeTimestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.UnixMilli(t.UnixMilli()).UTC()
}

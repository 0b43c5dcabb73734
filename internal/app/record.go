package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/evanschultz/lapse/internal/domain"
)

// DefaultStorageKey names the record the activity list is saved under.
const DefaultStorageKey = "activities-store-v1"

// Record is the persisted shape: `{"activities": [...]}`.
type Record struct {
	Activities []RecordActivity `json:"activities"`
}

// RecordActivity is one persisted activity. Timestamps are unix milliseconds.
type RecordActivity struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	CreatedAt   recordTime `json:"createdAt"`
	LastResetAt recordTime `json:"lastResetAt"`
	ImageURL    *string    `json:"imageUrl"`
	ImageFailed bool       `json:"imageFailed,omitempty"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Size        float64    `json:"size"`
}

// legacyActivity accepts the older field spellings seen in stored payloads.
type legacyActivity struct {
	RecordActivity
	Label string `json:"label"`
}

// maxRecordMillis is the first float64 past the int64 range.
const maxRecordMillis = 1 << 63

// recordTime encodes as unix milliseconds and decodes from numbers, numeric
// strings, RFC 3339 strings, or null.
type recordTime struct {
	time.Time
}

// MarshalJSON writes unix milliseconds, or 0 for the zero time.
func (t recordTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("0"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

// UnmarshalJSON is lenient; unreadable values decode as the zero time.
func (t *recordTime) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = s
	}
	if ms, err := strconv.ParseFloat(raw, 64); err == nil {
		// NaN, Inf and values past the int64 range stay zero.
		if ms > 0 && ms < maxRecordMillis {
			t.Time = time.UnixMilli(int64(ms)).UTC()
		}
		return nil
	}
	if ts, ok := domain.ParseTimestamp(raw); ok {
		t.Time = domain.NormalizeTimestamp(ts)
	}
	return nil
}

// EncodeRecord serializes activities in store order.
func EncodeRecord(activities []domain.Activity) ([]byte, error) {
	rec := Record{Activities: make([]RecordActivity, 0, len(activities))}
	for _, a := range activities {
		rec.Activities = append(rec.Activities, recordActivityFromDomain(a))
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode activities record: %w", err)
	}
	return encoded, nil
}

// DecodeRecord parses a stored payload. It accepts the current object shape
// and the legacy bare array. Entries without an id or title, and repeats of an
// id already seen, are dropped and counted in skipped.
func DecodeRecord(payload []byte, defaultSize float64) (activities []domain.Activity, skipped int, err error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, 0, fmt.Errorf("%w: empty payload", ErrMalformedRecord)
	}

	var entries []legacyActivity
	switch payload[0] {
	case '[':
		if err := json.Unmarshal(payload, &entries); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
	case '{':
		var envelope struct {
			Activities json.RawMessage `json:"activities"`
		}
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		list := bytes.TrimSpace(envelope.Activities)
		if len(list) == 0 || list[0] != '[' {
			return nil, 0, fmt.Errorf("%w: activities is not a list", ErrMalformedRecord)
		}
		if err := json.Unmarshal(list, &entries); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
	default:
		return nil, 0, fmt.Errorf("%w: unexpected payload shape", ErrMalformedRecord)
	}

	if defaultSize <= 0 {
		defaultSize = domain.DefaultBubbleSize
	}
	seen := make(map[string]struct{}, len(entries))
	activities = make([]domain.Activity, 0, len(entries))
	for _, entry := range entries {
		a, ok := entry.toDomain(defaultSize)
		if !ok {
			skipped++
			continue
		}
		if _, dup := seen[a.ID]; dup {
			skipped++
			continue
		}
		seen[a.ID] = struct{}{}
		activities = append(activities, a)
	}
	return activities, skipped, nil
}

// recordActivityFromDomain converts one activity for persistence.
func recordActivityFromDomain(a domain.Activity) RecordActivity {
	var imageURL *string
	if !a.Image.IsAbsent() {
		ref := a.Image.Ref()
		imageURL = &ref
	}
	return RecordActivity{
		ID:          a.ID,
		Title:       a.Title,
		Category:    a.Category,
		CreatedAt:   recordTime{a.CreatedAt},
		LastResetAt: recordTime{a.LastResetAt},
		ImageURL:    imageURL,
		ImageFailed: a.ImageFailed,
		X:           a.Position.X,
		Y:           a.Position.Y,
		Size:        a.Size,
	}
}

// toDomain normalizes one decoded entry; ok is false when it cannot be used.
func (e legacyActivity) toDomain(defaultSize float64) (domain.Activity, bool) {
	id := strings.TrimSpace(e.ID)
	title := strings.TrimSpace(e.Title)
	if title == "" {
		title = strings.TrimSpace(e.Label)
	}
	if id == "" || title == "" {
		return domain.Activity{}, false
	}

	a := domain.Activity{
		ID:          id,
		Title:       title,
		Category:    e.Category,
		CreatedAt:   e.CreatedAt.Time,
		LastResetAt: e.LastResetAt.Time,
		ImageFailed: e.ImageFailed,
		Position:    domain.Point{X: e.X, Y: e.Y},
		Size:        e.Size,
	}
	if a.LastResetAt.IsZero() {
		a.LastResetAt = a.CreatedAt
	}
	if a.Size <= 0 {
		a.Size = defaultSize
	}
	if e.ImageURL != nil {
		img, err := domain.ParseImage(*e.ImageURL)
		if err != nil {
			// Keep the entry and the raw reference; it behaves like a failed load.
			a.Image = domain.UnreadableImage(*e.ImageURL)
			a.ImageFailed = true
		} else {
			a.Image = img
		}
	}
	return a, true
}

package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"

	"github.com/evanschultz/lapse/internal/app"
	"github.com/evanschultz/lapse/internal/surface"
)

// Category is one board tab.
type Category struct {
	ID   string
	Name string
}

// DefaultCategories returns the built-in tabs.
func DefaultCategories() []Category {
	return []Category{
		{ID: "friends", Name: "Friends"},
		{ID: "family", Name: "Family"},
		{ID: "household", Name: "Household"},
		{ID: "wife", Name: "Wife"},
		{ID: "creative", Name: "Creative"},
	}
}

type Option func(*Model)

// WithContext scopes store writes issued by the board.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

func WithCategories(categories []Category) Option {
	return func(m *Model) {
		if len(categories) > 0 {
			m.categories = append([]Category(nil), categories...)
		}
	}
}

// WithSurfaceConfig sets drag, pulse and spawn behavior.
func WithSurfaceConfig(cfg surface.Config) Option {
	return func(m *Model) {
		m.surfaceCfg = cfg
	}
}

// WithRefreshInterval sets how often elapsed labels are recomputed.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.refreshEvery = d
		}
	}
}

// WithFallbackImage sets the glyph shown when a bubble has no usable image.
func WithFallbackImage(glyph string) Option {
	return func(m *Model) {
		if glyph != "" {
			m.fallbackImage = glyph
		}
	}
}

func WithClock(clock app.Clock) Option {
	return func(m *Model) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func WithLogger(logger app.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClipboard replaces the system clipboard reader used by paste.
func WithClipboard(read func() (string, error)) Option {
	return func(m *Model) {
		if read != nil {
			m.readClipboard = read
		}
	}
}

// WithFileReader replaces the reader used for image file paths.
func WithFileReader(read func(string) ([]byte, error)) Option {
	return func(m *Model) {
		if read != nil {
			m.readFile = read
		}
	}
}

func defaultClipboard() (string, error) {
	return clipboard.ReadAll()
}

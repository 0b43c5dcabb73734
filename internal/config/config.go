package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	toml "github.com/pelletier/go-toml/v2"
)

// StorageBackend names where the activity record is kept.
type StorageBackend string

// StorageBackend values.
const (
	StorageSQLite StorageBackend = "sqlite"
	StorageDiskv  StorageBackend = "diskv"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Board    BoardConfig    `toml:"board"`
	Logging  LoggingConfig  `toml:"logging"`
	Server   ServerConfig   `toml:"server"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type StorageConfig struct {
	Backend  StorageBackend `toml:"backend"`
	DiskvDir string         `toml:"diskv_dir"`
	Key      string         `toml:"key"`
}

type BoardConfig struct {
	BubbleSize      float64          `toml:"bubble_size"`
	Spawn           string           `toml:"spawn"` // origin | center
	DragThreshold   float64          `toml:"drag_threshold"`
	RefreshInterval string           `toml:"refresh_interval"`
	PulseDuration   string           `toml:"pulse_duration"`
	FallbackImage   string           `toml:"fallback_image"`
	Categories      []CategoryConfig `toml:"categories"`
}

type CategoryConfig struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ServerConfig struct {
	HTTPBind           string   `toml:"http_bind"`
	APIEndpoint        string   `toml:"api_endpoint"`
	MCPEndpoint        string   `toml:"mcp_endpoint"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

func defaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{ID: "friends", Name: "Friends"},
		{ID: "family", Name: "Family"},
		{ID: "household", Name: "Household"},
		{ID: "wife", Name: "Wife"},
		{ID: "creative", Name: "Creative"},
	}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Storage: StorageConfig{
			Backend: StorageSQLite,
			Key:     "activities-store-v1",
		},
		Board: BoardConfig{
			BubbleSize:      12,
			Spawn:           "origin",
			DragThreshold:   4,
			RefreshInterval: "60s",
			PulseDuration:   "420ms",
			FallbackImage:   "◍",
			Categories:      defaultCategories(),
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     "logs",
			},
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.normalize()
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.normalize()
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, cfg.normalize()
	}

	// Categories listed in the file replace the defaults as a whole.
	cfg.Board.Categories = nil
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if len(cfg.Board.Categories) == 0 {
		cfg.Board.Categories = defaults.Board.Categories
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalize expands home-relative paths in place.
func (c *Config) normalize() error {
	for _, p := range []*string{&c.Database.Path, &c.Storage.DiskvDir, &c.Logging.DevFile.Dir} {
		expanded, err := homedir.Expand(strings.TrimSpace(*p))
		if err != nil {
			return fmt.Errorf("expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" && c.Storage.Backend == StorageSQLite {
		return errors.New("database path is required")
	}
	switch c.Storage.Backend {
	case StorageSQLite, StorageDiskv:
	default:
		return fmt.Errorf("invalid storage.backend: %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return errors.New("storage.key is required")
	}
	if strings.ContainsAny(c.Storage.Key, `/\`) {
		return fmt.Errorf("storage.key must not contain path separators: %q", c.Storage.Key)
	}

	if c.Board.BubbleSize <= 0 {
		return fmt.Errorf("board.bubble_size must be > 0, got %v", c.Board.BubbleSize)
	}
	if c.Board.DragThreshold < 0 {
		return fmt.Errorf("board.drag_threshold must be >= 0, got %v", c.Board.DragThreshold)
	}
	switch strings.TrimSpace(strings.ToLower(c.Board.Spawn)) {
	case "", "origin", "center":
	default:
		return fmt.Errorf("invalid board.spawn: %q", c.Board.Spawn)
	}
	if _, err := c.Board.Refresh(); err != nil {
		return err
	}
	if _, err := c.Board.Pulse(); err != nil {
		return err
	}
	seen := map[string]struct{}{}
	for idx, cat := range c.Board.Categories {
		id := strings.TrimSpace(cat.ID)
		if id == "" {
			return fmt.Errorf("board.categories[%d].id is required", idx)
		}
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("board.categories[%d].name is required", idx)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("board.categories[%d].id is duplicated: %s", idx, id)
		}
		seen[id] = struct{}{}
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	for _, ep := range []struct{ name, value string }{
		{"server.api_endpoint", c.Server.APIEndpoint},
		{"server.mcp_endpoint", c.Server.MCPEndpoint},
	} {
		if v := strings.TrimSpace(ep.value); v != "" && !strings.HasPrefix(v, "/") {
			return fmt.Errorf("%s must start with /: %q", ep.name, ep.value)
		}
	}
	return nil
}

// Refresh returns how often elapsed labels are recomputed.
func (b BoardConfig) Refresh() (time.Duration, error) {
	return parsePositiveDuration("board.refresh_interval", b.RefreshInterval, time.Minute)
}

// Pulse returns how long a reset bubble stays highlighted.
func (b BoardConfig) Pulse() (time.Duration, error) {
	return parsePositiveDuration("board.pulse_duration", b.PulseDuration, 420*time.Millisecond)
}

func parsePositiveDuration(name, raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %q", name, raw)
	}
	return d, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

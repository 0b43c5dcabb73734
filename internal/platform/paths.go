// Package platform decides where a lapse profile keeps its config, its
// activity record and its logs.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Environment variables that pin a location regardless of profile.
const (
	EnvConfig   = "LAPSE_CONFIG"
	EnvDatabase = "LAPSE_DB_PATH"
)

// Profile selects one set of lapse files. Dev profiles get a "-dev"
// directory so they never share a record with the real board.
type Profile struct {
	Name string
	Dev  bool
}

// Dir returns the directory name used for the profile, or "" when the name
// is blank.
func (p Profile) Dir() string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return ""
	}
	if p.Dev {
		name += "-dev"
	}
	return name
}

// Overrides pin individual locations, usually from command-line flags.
type Overrides struct {
	Config   string
	Database string
}

// Locations are the resolved files of one profile.
type Locations struct {
	Config   string
	Data     string
	Database string
	Records  string
	Logs     string
	// DatabasePinned is set when Database came from an override and must win
	// over the config file.
	DatabasePinned bool
}

// Store returns where the given backend keeps the activity record.
func (l Locations) Store(backend string) string {
	if backend == "diskv" {
		return l.Records
	}
	return l.Database
}

// Under anchors a relative path in the profile's data directory.
func (l Locations) Under(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.Data, path)
}

// Env looks up one environment variable.
type Env func(string) string

// Resolve resolves the profile's locations on this machine. Overrides win,
// then LAPSE_CONFIG and LAPSE_DB_PATH, then per-user defaults.
func Resolve(p Profile, o Overrides) (Locations, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Locations{}, fmt.Errorf("user config dir: %w", err)
	}
	home := ""
	if runtime.GOOS == "linux" {
		if home, err = os.UserHomeDir(); err != nil {
			return Locations{}, fmt.Errorf("user home dir: %w", err)
		}
	}
	return resolve(runtime.GOOS, os.Getenv, configDir, home, p, o)
}

func resolve(goos string, env Env, userConfigDir, home string, p Profile, o Overrides) (Locations, error) {
	if strings.TrimSpace(userConfigDir) == "" {
		return Locations{}, errors.New("empty user config dir")
	}
	dir := p.Dir()
	if dir == "" {
		return Locations{}, errors.New("empty profile name")
	}
	if env == nil {
		env = func(string) string { return "" }
	}

	configBase, dataBase := baseDirs(goos, env, userConfigDir, home)
	data := filepath.Join(dataBase, dir)
	loc := Locations{
		Config:   filepath.Join(configBase, dir, "config.toml"),
		Data:     data,
		Database: filepath.Join(data, dir+".db"),
		Records:  filepath.Join(data, "records"),
		Logs:     filepath.Join(data, "logs"),
	}
	loc.Config = firstSet(o.Config, env(EnvConfig), loc.Config)
	if pinned := firstSet(o.Database, env(EnvDatabase)); pinned != "" {
		loc.Database = pinned
		loc.DatabasePinned = true
	}
	return loc, nil
}

// baseDirs picks the config and data roots for goos. Linux follows XDG,
// Windows splits roaming config from local data, everything else keeps the
// user config dir for both.
func baseDirs(goos string, env Env, userConfigDir, home string) (configBase, dataBase string) {
	configBase, dataBase = userConfigDir, userConfigDir
	switch goos {
	case "linux":
		if home != "" {
			dataBase = filepath.Join(home, ".local", "share")
		}
		configBase = firstSet(env("XDG_CONFIG_HOME"), configBase)
		dataBase = firstSet(env("XDG_DATA_HOME"), dataBase)
	case "windows":
		configBase = firstSet(env("APPDATA"), configBase)
		dataBase = firstSet(env("LOCALAPPDATA"), dataBase)
	}
	return configBase, dataBase
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

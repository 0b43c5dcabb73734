package platform

import (
	"path/filepath"
	"testing"
)

func envOf(vars map[string]string) Env {
	return func(k string) string { return vars[k] }
}

func TestResolveFollowsPlatformRoots(t *testing.T) {
	cases := []struct {
		name       string
		goos       string
		env        map[string]string
		home       string
		wantConfig string
		wantData   string
	}{
		{
			name:       "linux xdg",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			home:       "/home/me",
			wantConfig: filepath.Join("/xdg/config", "lapse", "config.toml"),
			wantData:   filepath.Join("/xdg/data", "lapse"),
		},
		{
			name:       "linux home fallback",
			goos:       "linux",
			home:       "/home/me",
			wantConfig: filepath.Join("/home/me/.config", "lapse", "config.toml"),
			wantData:   filepath.Join("/home/me", ".local", "share", "lapse"),
		},
		{
			name:       "windows app data",
			goos:       "windows",
			env:        map[string]string{"APPDATA": `C:\Roaming`, "LOCALAPPDATA": `C:\Local`},
			wantConfig: filepath.Join(`C:\Roaming`, "lapse", "config.toml"),
			wantData:   filepath.Join(`C:\Local`, "lapse"),
		},
		{
			name:       "darwin ignores xdg",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/ignored", "XDG_DATA_HOME": "/ignored"},
			wantConfig: filepath.Join("/home/me/.config", "lapse", "config.toml"),
			wantData:   filepath.Join("/home/me/.config", "lapse"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loc, err := resolve(tc.goos, envOf(tc.env), "/home/me/.config", tc.home, Profile{Name: "lapse"}, Overrides{})
			if err != nil {
				t.Fatalf("resolve() error = %v", err)
			}
			if loc.Config != tc.wantConfig || loc.Data != tc.wantData {
				t.Fatalf("unexpected locations %#v", loc)
			}
			if loc.Database != filepath.Join(tc.wantData, "lapse.db") ||
				loc.Records != filepath.Join(tc.wantData, "records") ||
				loc.Logs != filepath.Join(tc.wantData, "logs") {
				t.Fatalf("unexpected data files %#v", loc)
			}
			if loc.DatabasePinned {
				t.Fatal("expected default database not pinned")
			}
		})
	}
}

func TestResolveOverridesBeatEnvironment(t *testing.T) {
	env := envOf(map[string]string{EnvConfig: "/env/config.toml", EnvDatabase: "/env/lapse.db"})

	loc, err := resolve("linux", env, "/cfg", "/home/me", Profile{Name: "lapse"}, Overrides{})
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if loc.Config != "/env/config.toml" || loc.Database != "/env/lapse.db" || !loc.DatabasePinned {
		t.Fatalf("expected env locations, got %#v", loc)
	}

	loc, err = resolve("linux", env, "/cfg", "/home/me", Profile{Name: "lapse"}, Overrides{Config: " /flag/c.toml ", Database: "/flag/db"})
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if loc.Config != "/flag/c.toml" || loc.Database != "/flag/db" {
		t.Fatalf("expected flag locations, got %#v", loc)
	}
	if loc.Records != filepath.Join("/home/me", ".local", "share", "lapse", "records") {
		t.Fatalf("expected records to stay in the profile, got %q", loc.Records)
	}
}

func TestResolveDevProfile(t *testing.T) {
	loc, err := resolve("freebsd", nil, "/cfg", "", Profile{Name: "lapse", Dev: true}, Overrides{})
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if filepath.Base(filepath.Dir(loc.Config)) != "lapse-dev" || filepath.Base(loc.Database) != "lapse-dev.db" {
		t.Fatalf("expected dev profile dirs, got %#v", loc)
	}
}

func TestResolveRejectsEmptyInputs(t *testing.T) {
	if _, err := resolve("linux", nil, "", "/home/me", Profile{Name: "lapse"}, Overrides{}); err == nil {
		t.Fatal("expected error for empty config dir")
	}
	if _, err := resolve("linux", nil, "/cfg", "/home/me", Profile{Name: "  "}, Overrides{}); err == nil {
		t.Fatal("expected error for blank profile")
	}
}

func TestLocationsStoreAndUnder(t *testing.T) {
	loc := Locations{Data: "/data/lapse", Database: "/data/lapse/lapse.db", Records: "/data/lapse/records"}
	if got := loc.Store("diskv"); got != loc.Records {
		t.Fatalf("Store(diskv) = %q", got)
	}
	if got := loc.Store("sqlite"); got != loc.Database {
		t.Fatalf("Store(sqlite) = %q", got)
	}
	if got := loc.Under("logs"); got != filepath.Join("/data/lapse", "logs") {
		t.Fatalf("Under(relative) = %q", got)
	}
	if got := loc.Under("/var/log/lapse"); got != "/var/log/lapse" {
		t.Fatalf("Under(absolute) = %q", got)
	}
}

func TestResolveSmoke(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvDatabase, "")
	loc, err := Resolve(Profile{Name: "lapse"}, Overrides{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if loc.Config == "" || loc.Database == "" || loc.Records == "" || loc.Logs == "" {
		t.Fatalf("expected non-empty locations, got %#v", loc)
	}
}

package diskv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evanschultz/lapse/internal/app"
)

func TestStoreReadWrite(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "records")
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.ReadRecord(ctx, app.DefaultStorageKey); !errors.Is(err, app.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if err := s.WriteRecord(ctx, app.DefaultStorageKey, []byte(`{"activities":[]}`)); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, app.DefaultStorageKey+".json"))
	if err != nil {
		t.Fatalf("expected record file on disk: %v", err)
	}
	if string(raw) != `{"activities":[]}` {
		t.Fatalf("unexpected file content %q", raw)
	}

	// A fresh handle must not serve from the first one's cache.
	again, _ := Open(dir)
	got, err := again.ReadRecord(ctx, app.DefaultStorageKey)
	if err != nil || string(got) != `{"activities":[]}` {
		t.Fatalf("ReadRecord() = %q, %v", got, err)
	}
	saved, err := again.UpdatedAt(ctx, app.DefaultStorageKey)
	if err != nil || saved.IsZero() || time.Since(saved) > time.Minute {
		t.Fatalf("UpdatedAt() = %v, %v", saved, err)
	}
	if _, err := again.UpdatedAt(ctx, "missing"); !errors.Is(err, app.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for missing key, got %v", err)
	}
	if _, err := again.UpdatedAt(ctx, "../escape"); err == nil {
		t.Fatal("expected path key to be rejected")
	}
}

func TestStoreRejectsPathKeys(t *testing.T) {
	s, _ := Open(t.TempDir())
	for _, key := range []string{"", "../escape", `a\b`, ".."} {
		if err := s.WriteRecord(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected empty path to be rejected")
	}
}

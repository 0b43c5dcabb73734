package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/lapse/internal/adapters/server/common"
	"github.com/evanschultz/lapse/internal/app"
)

// memKV keeps records in memory and can be told to fail writes.
type memKV struct {
	records  map[string][]byte
	writeErr error
}

func (m *memKV) ReadRecord(_ context.Context, key string) ([]byte, error) {
	v, ok := m.records[key]
	if !ok {
		return nil, app.ErrRecordNotFound
	}
	return v, nil
}

func (m *memKV) WriteRecord(_ context.Context, key string, value []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.records[key] = append([]byte(nil), value...)
	return nil
}

// newTestHandler wires a handler over a real store.
func newTestHandler(t *testing.T) (*Handler, *app.Store, *memKV) {
	t.Helper()
	now := time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC)
	kv := &memKV{records: map[string][]byte{}}
	n := 0
	store := app.NewStore(kv, func() string {
		n++
		return fmt.Sprintf("a%d", n)
	}, func() time.Time { return now }, app.StoreConfig{})
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	svc := common.NewStoreService(store, func() time.Time { return now.Add(50 * time.Hour) }, nil)
	return NewHandler(svc), store, kv
}

// do sends one request and returns the recorder.
func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeBody decodes one JSON response body into the requested type.
func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

// TestHandlerActivityLifecycle verifies the CRUD routes end to end.
func TestHandlerActivityLifecycle(t *testing.T) {
	h, store, _ := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/activities", `{"category":"friends","title":"Call Sam"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}
	created := decodeBody[common.ActivityView](t, rec)
	if created.ID != "a1" || created.Title != "Call Sam" || created.Size != 12 {
		t.Fatalf("unexpected created activity %#v", created)
	}
	if created.Elapsed != "2 days ago" {
		t.Fatalf("elapsed = %q, want 2 days ago", created.Elapsed)
	}

	rec = do(t, h, http.MethodPatch, "/activities/a1", `{"title":"Call Sam back"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d", rec.Code)
	}
	if got := decodeBody[common.ActivityView](t, rec).Title; got != "Call Sam back" {
		t.Fatalf("title = %q", got)
	}

	rec = do(t, h, http.MethodPut, "/activities/a1/position", `{"x":500,"y":-3,"width":100,"height":80}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d", rec.Code)
	}
	moved := decodeBody[common.ActivityView](t, rec)
	if moved.X != 88 || moved.Y != 0 {
		t.Fatalf("expected clamped position, got %v,%v", moved.X, moved.Y)
	}

	rec = do(t, h, http.MethodPut, "/activities/a1/image", `{"image_url":"https://example.com/sam.png"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("image status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/activities/a1/image-failed", "")
	withImage := decodeBody[common.ActivityView](t, rec)
	if !withImage.ImageFailed || withImage.DisplayImage != "" || withImage.ImageURL != "https://example.com/sam.png" {
		t.Fatalf("unexpected image state %#v", withImage)
	}

	rec = do(t, h, http.MethodPost, "/activities/a1/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/activities?category=friends", "")
	listed := decodeBody[map[string][]common.ActivityView](t, rec)
	if len(listed["activities"]) != 1 {
		t.Fatalf("expected one activity, got %#v", listed)
	}
	rec = do(t, h, http.MethodGet, "/activities?category=family", "")
	if got := decodeBody[map[string][]common.ActivityView](t, rec); len(got["activities"]) != 0 {
		t.Fatalf("expected empty family list, got %#v", got)
	}

	rec = do(t, h, http.MethodDelete, "/activities/a1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(store.List()) != 0 {
		t.Fatalf("expected store empty, got %#v", store.List())
	}
}

// TestHandlerErrorMapping verifies structured status mapping for failures.
func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		method     string
		path       string
		body       string
		writeErr   error
		wantStatus int
		wantCode   string
	}{
		{name: "blank title", method: http.MethodPost, path: "/activities", body: `{"category":"friends","title":"  "}`, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "unknown field", method: http.MethodPost, path: "/activities", body: `{"title":"x","colour":"red"}`, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "trailing content", method: http.MethodPost, path: "/activities", body: `{"category":"a","title":"x"} {}`, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "unknown id", method: http.MethodPost, path: "/activities/missing/reset", wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "bad image", method: http.MethodPut, path: "/activities/a1/image", body: `{"image_url":"data:image/png;base64,%%%"}`, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "unknown route", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "wrong method", method: http.MethodPut, path: "/activities", wantStatus: http.StatusMethodNotAllowed, wantCode: "method_not_allowed"},
		{name: "persist failure", method: http.MethodPost, path: "/activities/a1/reset", writeErr: errors.New("disk full"), wantStatus: http.StatusServiceUnavailable, wantCode: "persist_failed"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			h, store, kv := newTestHandler(t)
			if _, err := store.Add(context.Background(), "friends", "Seed"); err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			kv.writeErr = tt.writeErr

			rec := do(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body)
			}
			envelope := decodeBody[ErrorEnvelope](t, rec)
			if envelope.Error.Code != tt.wantCode {
				t.Fatalf("error.code = %q, want %q", envelope.Error.Code, tt.wantCode)
			}
		})
	}
}

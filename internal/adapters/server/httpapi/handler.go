// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evanschultz/lapse/internal/adapters/server/common"
	"github.com/evanschultz/lapse/internal/app"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 4 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	activities common.ActivityService
	router     chi.Router
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs the activity API.
func NewHandler(activities common.ActivityService) *Handler {
	h := &Handler{activities: activities}
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, APIError{
			Code:    "method_not_allowed",
			Message: "method not allowed",
		})
	})
	r.Route("/activities", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleAdd)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/", h.handleRename)
			r.Delete("/", h.handleDelete)
			r.Post("/reset", h.handleReset)
			r.Put("/image", h.handleSetImage)
			r.Post("/image-failed", h.handleImageFailed)
			r.Put("/position", h.handleMove)
		})
	})
	h.router = r
	return h
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// handleList serves GET `/activities`.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.activities.ListActivities(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activities": items,
	})
}

// handleAdd serves POST `/activities`.
func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req common.AddActivityRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	item, err := h.activities.AddActivity(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// handleGet serves GET `/activities/{id}`.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.activities.GetActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleRename serves PATCH `/activities/{id}`.
func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	var req common.RenameActivityRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	item, err := h.activities.RenameActivity(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleDelete serves DELETE `/activities/{id}`.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.activities.DeleteActivity(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReset serves POST `/activities/{id}/reset`.
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	item, err := h.activities.ResetActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleSetImage serves PUT `/activities/{id}/image`.
func (h *Handler) handleSetImage(w http.ResponseWriter, r *http.Request) {
	var req common.SetImageRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	item, err := h.activities.SetActivityImage(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleImageFailed serves POST `/activities/{id}/image-failed`.
func (h *Handler) handleImageFailed(w http.ResponseWriter, r *http.Request) {
	item, err := h.activities.MarkActivityImageFailed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleMove serves PUT `/activities/{id}/position`.
func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	var req common.MoveActivityRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	item, err := h.activities.MoveActivity(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, app.ErrPersist):
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "persist_failed",
			Message: err.Error(),
			Hint:    "The change is held in memory and will be written with the next successful save.",
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}

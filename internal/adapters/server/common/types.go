// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ActivityView is the transport shape of one activity.
type ActivityView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	LastResetAt time.Time `json:"last_reset_at"`
	Elapsed     string    `json:"elapsed"`
	ImageURL    string    `json:"image_url,omitempty"`
	ImageFailed bool      `json:"image_failed,omitempty"`
	// DisplayImage is the reference to show, empty when a fallback applies.
	DisplayImage string  `json:"display_image,omitempty"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Size         float64 `json:"size"`
}

// AddActivityRequest creates one activity.
type AddActivityRequest struct {
	Category string `json:"category"`
	Title    string `json:"title"`
}

// RenameActivityRequest retitles one activity.
type RenameActivityRequest struct {
	ID    string `json:"-"`
	Title string `json:"title"`
}

// SetImageRequest replaces the image of one activity. An empty reference
// clears it.
type SetImageRequest struct {
	ID       string `json:"-"`
	ImageURL string `json:"image_url"`
}

// MoveActivityRequest places one activity inside the caller's surface. The
// position is clamped to Width x Height when both are positive.
type MoveActivityRequest struct {
	ID     string  `json:"-"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ActivityService is the activity surface shared by the REST and MCP adapters.
type ActivityService interface {
	ListActivities(ctx context.Context, category string) ([]ActivityView, error)
	GetActivity(ctx context.Context, id string) (ActivityView, error)
	AddActivity(ctx context.Context, req AddActivityRequest) (ActivityView, error)
	RenameActivity(ctx context.Context, req RenameActivityRequest) (ActivityView, error)
	DeleteActivity(ctx context.Context, id string) error
	ResetActivity(ctx context.Context, id string) (ActivityView, error)
	SetActivityImage(ctx context.Context, req SetImageRequest) (ActivityView, error)
	MarkActivityImageFailed(ctx context.Context, id string) (ActivityView, error)
	MoveActivity(ctx context.Context, req MoveActivityRequest) (ActivityView, error)
}

// MutationObserver is told about every successful mutation, keyed by operation.
type MutationObserver interface {
	MutationApplied(op string)
}

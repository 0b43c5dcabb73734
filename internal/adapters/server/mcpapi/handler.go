// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/evanschultz/lapse/internal/adapters/server/common"
	"github.com/evanschultz/lapse/internal/app"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the activity tools.
func NewHandler(cfg Config, activities common.ActivityService) (*Handler, error) {
	if activities == nil {
		return nil, fmt.Errorf("activity service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerActivityTools(mcpSrv, activities)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "lapse"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerActivityTools registers the `lapse.*` activity tools.
func registerActivityTools(srv *mcpserver.MCPServer, activities common.ActivityService) {
	srv.AddTool(
		mcp.NewTool(
			"lapse.list_activities",
			mcp.WithDescription("List tracked activities with the time since each was last done."),
			mcp.WithString("category", mcp.Description("Only list this category")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			items, err := activities.ListActivities(ctx, req.GetString("category", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_activities", map[string]any{"activities": items})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lapse.add_activity",
			mcp.WithDescription("Start tracking a new activity."),
			mcp.WithString("category", mcp.Required(), mcp.Description("Category id, for example friends")),
			mcp.WithString("title", mcp.Required(), mcp.Description("What the activity is")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			category, err := req.RequireString("category")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			item, err := activities.AddActivity(ctx, common.AddActivityRequest{Category: category, Title: title})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("add_activity", item)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lapse.rename_activity",
			mcp.WithDescription("Change an activity's title."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Activity id")),
			mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			item, err := activities.RenameActivity(ctx, common.RenameActivityRequest{ID: id, Title: title})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("rename_activity", item)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lapse.delete_activity",
			mcp.WithDescription("Stop tracking an activity."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Activity id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := activities.DeleteActivity(ctx, id); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_activity", map[string]any{"id": id, "deleted": true})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lapse.reset_activity",
			mcp.WithDescription("Mark an activity as just done, restarting its timer."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Activity id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			item, err := activities.ResetActivity(ctx, id)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("reset_activity", item)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lapse.set_activity_image",
			mcp.WithDescription("Set or clear an activity's image."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Activity id")),
			mcp.WithString("image_url", mcp.Description("Image URL or data URI; empty clears the image")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			item, err := activities.SetActivityImage(ctx, common.SetImageRequest{
				ID:       id,
				ImageURL: req.GetString("image_url", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("set_activity_image", item)
		},
	)
}

// jsonResult encodes one structured tool result.
func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, app.ErrPersist):
		return mcp.NewToolResultError("persist_failed: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}

// Package mcpapi provides a stateless MCP streamable-HTTP adapter over the
// mutation engine, so agent tooling can drive boards through the same facade
// the JSON API uses.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/engine"
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

// NewHandler builds one stateless MCP adapter exposing the engine's board,
// column, and task operations as tools.
func NewHandler(cfg Config, eng *engine.Engine) (*Handler, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerBoardTools(mcpSrv, eng)
	registerColumnTools(mcpSrv, eng)
	registerTaskTools(mcpSrv, eng)

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
		cfg.ServerName = "tavla"
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

// actorKey scopes the authenticated caller carried on the request context.
type actorKey struct{}

// WithActor returns a context carrying the authenticated caller. The transport
// that mounts the handler resolves credentials and sets this before serving.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// actorFrom extracts the authenticated caller from a tool-call context.
func actorFrom(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(actorKey{}).(string)
	return userID, ok && userID != ""
}

// requireActor resolves the caller or produces the unauthorized tool result.
func requireActor(ctx context.Context) (string, *mcp.CallToolResult) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return "", mcp.NewToolResultError("unauthorized: no authenticated caller")
	}
	return actor, nil
}

var validationErrs = []error{
	domain.ErrInvalidID,
	domain.ErrInvalidBoardID,
	domain.ErrInvalidColumnID,
	domain.ErrInvalidName,
	domain.ErrInvalidTitle,
	domain.ErrInvalidPriority,
	domain.ErrInvalidPosition,
	domain.ErrInvalidCapacity,
	domain.ErrInvalidRole,
	domain.ErrInvalidUserID,
}

// toolResultFromError maps engine and domain errors into MCP-visible tool
// errors, prefixed by kind so callers can branch without parsing prose.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, engine.ErrForbidden):
		return mcp.NewToolResultError("forbidden: " + err.Error())
	case errors.Is(err, engine.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, engine.ErrCapacityExceeded):
		return mcp.NewToolResultError("capacity_exceeded: " + err.Error())
	case errors.Is(err, engine.ErrConflict):
		return mcp.NewToolResultError("conflict: " + err.Error())
	case errors.Is(err, engine.ErrColumnNotEmpty):
		return mcp.NewToolResultError("column_not_empty: " + err.Error())
	default:
		for _, sentinel := range validationErrs {
			if errors.Is(err, sentinel) {
				return mcp.NewToolResultError("invalid_request: " + err.Error())
			}
		}
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}

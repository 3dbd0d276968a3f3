// Package server exposes the tool registry and the support pipeline over HTTP:
// a plain JSON/NDJSON surface for tool calls and chat, and an MCP endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	orchestratorx "github.com/tanpawarit/Chative-Support-Desk/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	tracex "github.com/tanpawarit/Chative-Support-Desk/agent/trace"
)

// Tools is what the HTTP and MCP surfaces need from the tool registry.
type Tools interface {
	contractx.ToolGateway
	Has(name string) bool
}

// Chat runs messages through the pipeline and serves recorded traces.
type Chat interface {
	Handle(ctx context.Context, req orchestratorx.ChatRequest) (orchestratorx.Result, error)
	Trace(ctx context.Context, id string) (*tracex.Trace, error)
	SessionTraces(ctx context.Context, sessionID string) ([]string, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Tools  Tools
	Health Pinger

	// Chat is optional; without it only the tool surfaces are mounted.
	Chat Chat

	// Name and Version identify the MCP implementation.
	Name    string
	Version string
}

type Server struct {
	tools  Tools
	chat   Chat
	health Pinger

	name    string
	version string
}

func New(deps Deps) (*Server, error) {
	if deps.Tools == nil {
		return nil, errors.New("tools are required")
	}
	if deps.Health == nil {
		return nil, errors.New("health pinger is required")
	}
	if deps.Name == "" {
		deps.Name = "support-desk"
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Server{
		tools:   deps.Tools,
		chat:    deps.Chat,
		health:  deps.Health,
		name:    deps.Name,
		version: deps.Version,
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/tools", func(r chi.Router) {
		r.Post("/list", s.handleListTools)
		r.Post("/call", s.handleCallTool)
	})

	if s.chat != nil {
		r.Post("/chat", s.handleChat)
		r.Get("/traces/{traceID}", s.handleTrace)
		r.Get("/sessions/{sessionID}/traces", s.handleSessionTraces)
	}

	r.Handle("/mcp", s.mcpHandler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	orchestratorx "github.com/tanpawarit/Chative-Support-Desk/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	tracex "github.com/tanpawarit/Chative-Support-Desk/agent/trace"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req orchestratorx.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.chat.Handle(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, orchestratorx.ErrInvalidMessage), errors.Is(err, orchestratorx.ErrInvalidCustomer):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contractx.ErrStorageFault) && res.TraceID != "":
		// The plan halted part way; the partial result is still useful.
		writeJSON(w, http.StatusServiceUnavailable, res)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	t, err := s.chat.Trace(r.Context(), chi.URLParam(r, "traceID"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, t)
	case errors.Is(err, tracex.ErrTraceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tracex.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleSessionTraces(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ids, err := s.chat.SessionTraces(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "traces": ids})
}

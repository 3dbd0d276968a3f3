package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	toolx "github.com/tanpawarit/Chative-Support-Desk/agent/tool"
)

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.tools.ListTools(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toolx.ListResponse{Tools: tools})
}

// handleCallTool streams start, result or error, then end as NDJSON lines.
// Requests that cannot name a known tool are rejected before the stream opens.
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	var req toolx.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "tool name is required")
		return
	}
	if !s.tools.Has(req.Name) {
		writeError(w, http.StatusNotFound, "unknown tool "+req.Name)
		return
	}

	w.Header().Set("Content-Type", toolx.ContentTypeNDJSON)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	stream := &eventWriter{w: w, enc: json.NewEncoder(w)}
	flusher, _ := w.(http.Flusher)
	stream.flusher = flusher

	stream.send(toolx.Event{Event: toolx.EventStart, Tool: req.Name})

	res, err := s.tools.CallTool(r.Context(), req.Name, req.Arguments)
	switch {
	case err != nil:
		log.Ctx(r.Context()).Error().Err(err).Str("tool", req.Name).Msg("tool call failed")
		stream.send(toolx.Event{
			Event: toolx.EventError,
			Tool:  req.Name,
			Error: &contractx.ToolError{Code: toolx.CodeStorageFault, Message: err.Error()},
		})
	case res.Error != nil:
		stream.send(toolx.Event{Event: toolx.EventError, Tool: req.Name, Error: res.Error})
	default:
		out, mErr := json.Marshal(res.Result)
		if mErr != nil {
			stream.send(toolx.Event{
				Event: toolx.EventError,
				Tool:  req.Name,
				Error: &contractx.ToolError{Code: toolx.CodeStorageFault, Message: "encode result: " + mErr.Error()},
			})
			break
		}
		stream.send(toolx.Event{Event: toolx.EventResult, Tool: req.Name, Output: out})
	}

	stream.send(toolx.Event{Event: toolx.EventEnd, Tool: req.Name})
}

type eventWriter struct {
	w       http.ResponseWriter
	enc     *json.Encoder
	flusher http.Flusher
	failed  bool
}

// send writes one event per line. After the first write error the rest of the
// stream is dropped; the client treats a stream without end as a fault.
func (e *eventWriter) send(evt toolx.Event) {
	if e.failed {
		return
	}
	if err := e.enc.Encode(evt); err != nil {
		e.failed = true
		return
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

// Package trace records what happened to one message on its way through the
// router and agents.
package trace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
)

var (
	ErrTraceNotFound = errors.New("trace not found")
	ErrNilTrace      = errors.New("trace is nil")
	ErrInvalidID     = errors.New("trace id is empty")
)

const (
	defaultKeyPrefix = "support:trace:"
	defaultTTL       = 7 * 24 * time.Hour
)

type Trace struct {
	ID         string                `json:"id"`
	SessionID  string                `json:"session_id,omitempty"`
	CustomerID int64                 `json:"customer_id,omitempty"`
	Message    string                `json:"message"`
	Plan       contractx.RoutingPlan `json:"plan"`
	Steps      []StepRecord          `json:"steps,omitempty"`
	Reply      string                `json:"reply,omitempty"`
	Halted     bool                  `json:"halted,omitempty"`
	Error      string                `json:"error,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at,omitempty"`
}

// StepRecord is one executed plan step. Steps skipped after a halt are not
// recorded.
type StepRecord struct {
	Index    int                      `json:"index"`
	Step     contractx.Step           `json:"step"`
	Response *contractx.AgentResponse `json:"response,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

func New(sessionID string, customerID int64, message string, now time.Time) *Trace {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Trace{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		CustomerID: customerID,
		Message:    message,
		StartedAt:  now.UTC(),
	}
}

func (t *Trace) Validate() error {
	if t == nil {
		return ErrNilTrace
	}
	if strings.TrimSpace(t.ID) == "" {
		return ErrInvalidID
	}
	return nil
}

// ToolCalls flattens every tool exchange across the recorded steps in order.
func (t *Trace) ToolCalls() []contractx.ToolExchange {
	if t == nil {
		return nil
	}
	var out []contractx.ToolExchange
	for _, s := range t.Steps {
		if s.Response != nil {
			out = append(out, s.Response.Calls...)
		}
	}
	return out
}

// Store persists finished traces and indexes them by session.
type Store interface {
	Save(ctx context.Context, t *Trace) error
	Load(ctx context.Context, id string) (*Trace, error)
	// SessionTraces returns trace ids for a session, oldest first.
	SessionTraces(ctx context.Context, sessionID string) ([]string, error)
}

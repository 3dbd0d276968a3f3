package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	tracex "github.com/tanpawarit/Chative-Support-Desk/agent/trace"
)

var (
	ErrInvalidMessage  = errors.New("message is empty")
	ErrInvalidCustomer = errors.New("customer id must not be negative")
)

type GraphInput struct {
	SessionID  string
	CustomerID int64
	Message    string
}

type GraphOutput struct {
	TraceID   string
	SessionID string
	Plan      contractx.RoutingPlan
	Responses []contractx.AgentResponse
	Reply     string
	Halted    bool

	// Err is the storage fault that halted the plan, if any.
	Err error
}

type GraphState struct {
	Now   time.Time
	Trace *tracex.Trace

	Request   contractx.RouteRequest
	Plan      contractx.RoutingPlan
	Responses []contractx.AgentResponse
	Reply     string

	Halted bool
	Err    error
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, ErrInvalidMessage
	}
	if in.CustomerID < 0 {
		return nil, ErrInvalidCustomer
	}

	now := nowFn().UTC()
	return &GraphState{
		Now:   now,
		Trace: tracex.New(in.SessionID, in.CustomerID, message, now),
		Request: contractx.RouteRequest{
			UserMessage: message,
			CustomerID:  in.CustomerID,
		},
	}, nil
}

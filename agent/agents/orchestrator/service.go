package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	nodex "github.com/tanpawarit/Chative-Support-Desk/agent/nodes/orchestrator"
	tracex "github.com/tanpawarit/Chative-Support-Desk/agent/trace"
)

var (
	ErrInvalidMessage  = nodex.ErrInvalidMessage
	ErrInvalidCustomer = nodex.ErrInvalidCustomer
)

type ChatRequest struct {
	SessionID  string `json:"session_id,omitempty"`
	CustomerID int64  `json:"customer_id,omitempty"`
	Message    string `json:"message"`
}

type Result struct {
	TraceID   string                    `json:"trace_id"`
	SessionID string                    `json:"session_id"`
	Plan      contractx.RoutingPlan     `json:"plan"`
	Responses []contractx.AgentResponse `json:"responses"`
	Reply     string                    `json:"reply"`
	Halted    bool                      `json:"halted,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// Orchestrator drives one message through the router and agents and records
// a trace of every step.
type Orchestrator struct {
	agents contractx.Registry
	traces tracex.Store

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(agents contractx.Registry, traces tracex.Store) (*Orchestrator, error) {
	if agents == nil {
		return nil, errors.New("agent registry is required")
	}
	if traces == nil {
		return nil, errors.New("trace store is required")
	}

	o := &Orchestrator{
		agents: agents,
		traces: traces,
		now:    time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Handle runs the message end to end. When a storage fault halts the plan the
// partial result is returned together with the fault.
func (o *Orchestrator) Handle(ctx context.Context, req ChatRequest) (Result, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID:  req.SessionID,
		CustomerID: req.CustomerID,
		Message:    req.Message,
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{
		TraceID:   out.TraceID,
		SessionID: out.SessionID,
		Plan:      out.Plan,
		Responses: out.Responses,
		Reply:     out.Reply,
		Halted:    out.Halted,
	}
	if out.Err != nil {
		res.Error = out.Err.Error()
		return res, out.Err
	}
	return res, nil
}

// Trace loads a recorded trace by id.
func (o *Orchestrator) Trace(ctx context.Context, id string) (*tracex.Trace, error) {
	return o.traces.Load(ctx, id)
}

// SessionTraces lists the trace ids recorded for a session, oldest first.
func (o *Orchestrator) SessionTraces(ctx context.Context, sessionID string) ([]string, error) {
	return o.traces.SessionTraces(ctx, sessionID)
}

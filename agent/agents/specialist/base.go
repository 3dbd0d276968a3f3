package specialist

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	toolx "github.com/tanpawarit/Chative-Support-Desk/agent/tool"
)

// actionHandler runs one action. It returns a Go error only for storage
// faults; validation and tool failures are set on the response.
type actionHandler func(ctx context.Context, run *run, task contractx.SubTask) error

// run accumulates the response for a single Handle call.
type run struct {
	tools contractx.ToolGateway
	resp  contractx.AgentResponse
}

func newRun(agent contractx.AgentType, action contractx.Action, tools contractx.ToolGateway) *run {
	return &run{
		tools: tools,
		resp:  contractx.AgentResponse{Agent: agent, Action: action},
	}
}

// call invokes a tool and records the exchange. ok is false when the tool
// reported an error, which has already been written to the response.
func (r *run) call(ctx context.Context, name string, args map[string]any) (result any, ok bool, err error) {
	res, err := r.tools.CallTool(ctx, name, args)
	if res.Tool == "" {
		res.Tool = name
	}
	r.resp.Calls = append(r.resp.Calls, contractx.ToolExchange{
		Request: contractx.ToolRequest{Tool: name, Args: args},
		Result:  res,
	})
	if err != nil {
		return nil, false, err
	}
	if res.Error != nil {
		r.toolFailure(res.Error)
		return nil, false, nil
	}
	return res.Result, true, nil
}

func (r *run) toolFailure(te *contractx.ToolError) {
	r.resp.Error = &contractx.ResponseError{
		Kind:    contractx.ErrorKindTool,
		Code:    string(te.Code),
		Message: te.Message,
	}
	r.resp.Message = fmt.Sprintf("Sorry, I could not complete %s: %s.", r.resp.Action, te.Message)
}

func (r *run) invalid(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	r.resp.Error = &contractx.ResponseError{
		Kind:    contractx.ErrorKindValidation,
		Message: msg,
	}
	r.resp.Message = "I can't do that: " + msg + "."
	return nil
}

func (r *run) succeed(data any, format string, args ...any) error {
	r.resp.Data = data
	r.resp.Message = fmt.Sprintf(format, args...)
	return nil
}

// dispatch is the shared Handle body of both agents.
func dispatch(
	ctx context.Context,
	agent contractx.AgentType,
	tools contractx.ToolGateway,
	handlers map[contractx.Action]actionHandler,
	task contractx.SubTask,
) (contractx.AgentResponse, error) {
	r := newRun(agent, task.Action, tools)

	handler, ok := handlers[task.Action]
	if !ok {
		_ = r.invalid("action %q is not handled by the %s agent", task.Action, agent)
		return r.resp, nil
	}

	err := handler(ctx, r, task)
	logger := log.Ctx(ctx)
	evt := logger.Debug()
	if err != nil {
		evt = logger.Error().Err(err)
	} else if r.resp.Error != nil {
		evt = logger.Info().Str("error_kind", string(r.resp.Error.Kind)).Str("error", r.resp.Error.Message)
	}
	evt.Str("component", "agent").
		Str("agent", string(agent)).
		Str("action", string(task.Action)).
		Int("tool_calls", len(r.resp.Calls)).
		Msg("sub-task handled")

	if err != nil {
		return r.resp, fmt.Errorf("%s agent %s: %w", agent, task.Action, err)
	}
	return r.resp, nil
}

// decode converts a tool result. A result the agent cannot read means the
// tool server is broken, which is treated like an unavailable store.
func decode[T any](out any) (T, error) {
	v, err := toolx.Decode[T](out)
	if err != nil {
		return v, fmt.Errorf("%w: %v", contractx.ErrStorageFault, err)
	}
	return v, nil
}

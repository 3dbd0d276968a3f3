package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	tracex "github.com/tanpawarit/Chative-Support-Desk/agent/trace"
)

// ExecutePlan runs the plan steps strictly in order. Tool and validation
// failures stay inside their response and the next step still runs; a storage
// fault stops the plan.
func ExecutePlan(
	ctx context.Context,
	in *GraphState,
	agents contractx.Registry,
) (*GraphState, error) {
	if in == nil || in.Trace == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	logger := log.Ctx(ctx).With().
		Str("component", "orchestrator").
		Str("trace_id", in.Trace.ID).
		Logger()

	for i, step := range in.Plan.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record := tracex.StepRecord{Index: i, Step: step}
		resp, err := runStep(ctx, agents, step)
		record.Response = &resp
		logToolCalls(&logger, i, resp.Calls)

		if err != nil {
			record.Error = err.Error()
			in.Trace.Steps = append(in.Trace.Steps, record)
			in.Responses = append(in.Responses, resp)

			logger.Error().Err(err).
				Int("step", i).
				Str("agent", string(step.Agent)).
				Str("action", string(step.Task.Action)).
				Int("skipped", len(in.Plan.Steps)-i-1).
				Msg("plan halted")

			if !errors.Is(err, contractx.ErrStorageFault) {
				return nil, err
			}
			in.Halted = true
			in.Err = err
			return in, nil
		}

		in.Trace.Steps = append(in.Trace.Steps, record)
		in.Responses = append(in.Responses, resp)

		evt := logger.Info()
		if resp.Error != nil {
			evt = logger.Warn().Str("error_kind", string(resp.Error.Kind)).Str("error", resp.Error.Message)
		}
		evt.Int("step", i).
			Str("agent", string(step.Agent)).
			Str("action", string(step.Task.Action)).
			Msg("step completed")
	}
	return in, nil
}

func runStep(ctx context.Context, agents contractx.Registry, step contractx.Step) (contractx.AgentResponse, error) {
	var agent contractx.Agent
	switch step.Agent {
	case contractx.AgentTypeData:
		agent = agents.Data()
	case contractx.AgentTypeSupport:
		agent = agents.Support()
	}
	if agent == nil {
		msg := fmt.Sprintf("no agent can handle %q steps", step.Agent)
		return contractx.AgentResponse{
			Agent:   step.Agent,
			Action:  step.Task.Action,
			Message: "I can't do that: " + msg + ".",
			Error:   &contractx.ResponseError{Kind: contractx.ErrorKindValidation, Message: msg},
		}, nil
	}
	return agent.Handle(ctx, step.Task)
}

func logToolCalls(logger *zerolog.Logger, step int, calls []contractx.ToolExchange) {
	for _, call := range calls {
		evt := logger.Debug()
		if call.Result.Error != nil {
			evt = logger.Info().
				Str("tool_error_code", string(call.Result.Error.Code)).
				Str("tool_error", call.Result.Error.Message)
		}
		evt.Int("step", step).
			Str("tool", call.Request.Tool).
			Interface("args", call.Request.Args).
			Msg("tool call")
	}
}

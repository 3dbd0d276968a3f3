package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
)

const (
	NodeExecutePlan = "execute_plan"
	NodeRecordTrace = "record_trace"
)

func RouteMessage(
	ctx context.Context,
	in *GraphState,
	router contractx.Router,
) (*GraphState, error) {
	if in == nil || in.Trace == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	plan, err := router.Route(ctx, in.Request)
	if err != nil {
		return nil, err
	}

	in.Plan = plan
	in.Trace.Plan = plan

	log.Ctx(ctx).Info().
		Str("component", "orchestrator").
		Str("trace_id", in.Trace.ID).
		Str("intent", string(plan.Intent)).
		Int("steps", len(plan.Steps)).
		Bool("unrouted", plan.Unrouted).
		Msg("message routed")
	return in, nil
}

// NextAfterRoute skips execution for plans the router could not resolve.
func NextAfterRoute(ctx context.Context, in *GraphState) (string, error) {
	if in == nil {
		return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Plan.Unrouted || len(in.Plan.Steps) == 0 {
		return NodeRecordTrace, nil
	}
	return NodeExecutePlan, nil
}

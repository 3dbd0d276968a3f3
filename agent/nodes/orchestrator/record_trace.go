package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	tracex "github.com/tanpawarit/Chative-Support-Desk/agent/trace"
)

// RecordTrace composes the reply and persists the finished trace.
func RecordTrace(
	ctx context.Context,
	in *GraphState,
	store tracex.Store,
	nowFn func() time.Time,
) (*GraphState, error) {
	if in == nil || in.Trace == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Reply = ComposeReply(in.Plan, in.Responses, in.Halted)

	t := in.Trace
	t.Reply = in.Reply
	t.Halted = in.Halted
	if in.Err != nil {
		t.Error = in.Err.Error()
	}
	t.FinishedAt = nowFn().UTC()

	if err := store.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("save trace id=%s: %w", t.ID, err)
	}

	log.Ctx(ctx).Info().
		Str("component", "orchestrator").
		Str("trace_id", t.ID).
		Str("session_id", t.SessionID).
		Int("steps", len(t.Steps)).
		Int("tool_calls", len(t.ToolCalls())).
		Bool("halted", t.Halted).
		Dur("elapsed", t.FinishedAt.Sub(t.StartedAt)).
		Msg("trace recorded")
	return in, nil
}

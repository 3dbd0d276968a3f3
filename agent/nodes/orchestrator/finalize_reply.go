package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
)

const (
	unroutedReply = "Sorry, I could not tell what you need. You can ask about a customer, a ticket, your plan or a billing problem."
	haltedReply   = "I had to stop because the customer database is unavailable. Please try again shortly."
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Trace == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: empty reply", contractx.ErrValidation)
	}
	return GraphOutput{
		TraceID:   in.Trace.ID,
		SessionID: in.Trace.SessionID,
		Plan:      in.Plan,
		Responses: in.Responses,
		Reply:     reply,
		Halted:    in.Halted,
		Err:       in.Err,
	}, nil
}

// ComposeReply joins the agent messages in plan order.
func ComposeReply(plan contractx.RoutingPlan, responses []contractx.AgentResponse, halted bool) string {
	if plan.Unrouted || len(plan.Steps) == 0 {
		return unroutedReply
	}

	parts := make([]string, 0, len(responses)+1)
	for _, resp := range responses {
		if msg := strings.TrimSpace(resp.Message); msg != "" {
			parts = append(parts, msg)
		}
	}
	if halted {
		parts = append(parts, haltedReply)
	}
	if len(parts) == 0 {
		return unroutedReply
	}
	return strings.Join(parts, "\n")
}

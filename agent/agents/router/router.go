package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
)

type Mode string

const (
	ModeKeyword Mode = "keyword"
	ModeLLM     Mode = "llm"
)

func ParseMode(v string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(v))); m {
	case "", ModeKeyword:
		return ModeKeyword, nil
	case ModeLLM:
		return ModeLLM, nil
	default:
		return "", fmt.Errorf("%w: unsupported router mode %q", contractx.ErrValidation, v)
	}
}

// Router turns classifier output into an executable plan: customer ids are
// filled from the requester, steps are ordered by dependency phase and
// duplicates are merged.
type Router struct {
	classifier contractx.Classifier
}

var _ contractx.Router = (*Router)(nil)

func New(classifier contractx.Classifier) (*Router, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	return &Router{classifier: classifier}, nil
}

// Route never reports a classification failure as an error. Such messages
// come back as an unrouted plan; only context cancellation is returned.
func (r *Router) Route(ctx context.Context, req contractx.RouteRequest) (contractx.RoutingPlan, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return unrouted("message is empty"), nil
	}

	steps, err := r.classifier.Classify(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return contractx.RoutingPlan{}, ctxErr
		}
		log.Ctx(ctx).Warn().Err(err).Str("component", "router").Msg("classification failed")
		return unrouted(err.Error()), nil
	}

	plan := BuildPlan(req, steps)
	log.Ctx(ctx).Debug().
		Str("component", "router").
		Str("intent", string(plan.Intent)).
		Int("steps", len(plan.Steps)).
		Bool("unrouted", plan.Unrouted).
		Msg("message routed")
	return plan, nil
}

// BuildPlan normalizes classified steps into a plan.
func BuildPlan(req contractx.RouteRequest, steps []contractx.Step) contractx.RoutingPlan {
	normalized := make([]contractx.Step, 0, len(steps))
	for _, s := range steps {
		if !s.Task.Action.Valid() {
			continue
		}
		s.Agent = s.Task.Action.Agent()
		if s.Task.CustomerID == 0 && s.Task.Action != contractx.ActionListCustomers {
			s.Task.CustomerID = req.CustomerID
		}
		normalized = append(normalized, s)
	}

	normalized = dedupe(normalized)
	if len(normalized) == 0 {
		return unrouted("no supported intent found in message")
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Task.Action.Phase() < normalized[j].Task.Action.Phase()
	})

	intent := normalized[0].Task.Action.Intent()
	if len(normalized) > 1 {
		intent = contractx.IntentMulti
	}
	return contractx.RoutingPlan{Intent: intent, Steps: normalized}
}

func unrouted(reason string) contractx.RoutingPlan {
	return contractx.RoutingPlan{
		Intent:   contractx.IntentUnrouted,
		Unrouted: true,
		Reason:   fmt.Sprintf("%v: %s", contractx.ErrClassification, reason),
	}
}

type stepKey struct {
	action   contractx.Action
	customer int64
	ticket   int64
	status   string
	issue    string
}

// dedupe drops repeated steps, keeping the first. Repeated customer updates
// for the same customer merge their fields instead, and a customer gets at
// most one billing escalation per message with the issue texts joined.
func dedupe(steps []contractx.Step) []contractx.Step {
	seen := make(map[stepKey]int, len(steps))
	out := make([]contractx.Step, 0, len(steps))
	for _, s := range steps {
		key := stepKey{action: s.Task.Action, customer: s.Task.CustomerID}
		switch s.Task.Action {
		case contractx.ActionUpdateCustomer, contractx.ActionBillingEscalation:
		default:
			key.ticket = s.Task.TicketID
			key.status = s.Task.Status
			key.issue = strings.ToLower(strings.TrimSpace(s.Task.Issue))
		}
		idx, ok := seen[key]
		if !ok {
			seen[key] = len(out)
			out = append(out, s)
			continue
		}
		if s.Task.Action == contractx.ActionBillingEscalation {
			out[idx].Task.Issue = joinIssues(out[idx].Task.Issue, s.Task.Issue)
			continue
		}
		if s.Task.Action == contractx.ActionUpdateCustomer && len(s.Task.Fields) > 0 {
			merged := make(map[string]string, len(out[idx].Task.Fields)+len(s.Task.Fields))
			for k, v := range out[idx].Task.Fields {
				merged[k] = v
			}
			for k, v := range s.Task.Fields {
				merged[k] = v
			}
			out[idx].Task.Fields = merged
		}
	}
	return out
}

func joinIssues(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if b == "" {
		return a
	}
	if a == "" {
		return b
	}
	for _, part := range strings.Split(a, "; ") {
		if strings.EqualFold(part, b) {
			return a
		}
	}
	return a + "; " + b
}

// Fallback tries primary first and falls back to secondary when primary
// fails or finds nothing.
type Fallback struct {
	Primary   contractx.Classifier
	Secondary contractx.Classifier
}

func (f Fallback) Classify(ctx context.Context, req contractx.RouteRequest) ([]contractx.Step, error) {
	steps, err := f.Primary.Classify(ctx, req)
	if err == nil && len(steps) > 0 {
		return steps, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("component", "router").Msg("primary classifier failed, using fallback")
	}
	return f.Secondary.Classify(ctx, req)
}

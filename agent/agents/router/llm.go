package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
)

type llmOutput struct {
	Steps []llmStep `json:"steps"`
}

type llmStep struct {
	Action     string            `json:"action"`
	CustomerID int64             `json:"customer_id,omitempty"`
	TicketID   int64             `json:"ticket_id,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Status     string            `json:"status,omitempty"`
	Priority   string            `json:"priority,omitempty"`
	Issue      string            `json:"issue,omitempty"`
}

// LLM classifies messages with a chat model that answers in JSON.
type LLM struct {
	runner compose.Runnable[map[string]any, llmOutput]
}

var _ contractx.Classifier = (*LLM)(nil)

func NewLLM(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*LLM, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: router chat model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: router", contractx.ErrPromptMissing)
	}
	runner, err := compileClassifierGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile router graph: %v", contractx.ErrModelInvoke, err)
	}
	return &LLM{runner: runner}, nil
}

func (c *LLM) Classify(ctx context.Context, req contractx.RouteRequest) ([]contractx.Step, error) {
	input, err := json.Marshal(map[string]any{
		"user_message": req.UserMessage,
		"customer_id":  req.CustomerID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal router payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: router invoke: %v", contractx.ErrModelInvoke, err)
	}

	steps := make([]contractx.Step, 0, len(out.Steps))
	for i, s := range out.Steps {
		action := contractx.Action(strings.TrimSpace(s.Action))
		if !action.Valid() {
			return nil, fmt.Errorf("%w: step %d has unsupported action %q", contractx.ErrSchemaViolation, i, s.Action)
		}
		steps = append(steps, contractx.Step{
			Agent: action.Agent(),
			Task: contractx.SubTask{
				Action:     action,
				CustomerID: s.CustomerID,
				TicketID:   s.TicketID,
				Fields:     s.Fields,
				Status:     strings.TrimSpace(s.Status),
				Priority:   strings.TrimSpace(s.Priority),
				Issue:      strings.TrimSpace(s.Issue),
				Text:       req.UserMessage,
			},
		})
	}
	return steps, nil
}

func compileClassifierGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, llmOutput], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(escapeBraces(systemPrompt)),
		schema.UserMessage("{input}"),
	)

	parser := schema.NewMessageJSONParser[llmOutput](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, llmOutput]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add router prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add router model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add router parser node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "prompt"},
		{"prompt", "model"},
		{"model", "parse_json"},
		{"parse_json", compose.END},
	}
	for _, e := range edges {
		if err := graph.AddEdge(e[0], e[1]); err != nil {
			return nil, fmt.Errorf("add router edge %s->%s: %w", e[0], e[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("router.classifier_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile router graph: %w", err)
	}
	return runner, nil
}

// escapeBraces keeps literal JSON in the system prompt from being read as
// template variables.
func escapeBraces(s string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}

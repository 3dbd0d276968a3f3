package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
)

// Definition binds one tool name to one data store operation.
type Definition struct {
	Name        string
	Description string
	Input       *jsonschema.Schema
	Output      *jsonschema.Schema

	handler  handlerFunc
	resolved *jsonschema.Resolved
}

func definitions() []*Definition {
	return []*Definition{
		{Name: ToolGetCustomer, Description: "Get a single customer by id.", Input: getCustomerInput, Output: objectOutput, handler: getCustomer},
		{Name: ToolListCustomers, Description: "List customers by status with an optional limit.", Input: listCustomersInput, Output: listOutput, handler: listCustomers},
		{Name: ToolUpdateCustomer, Description: "Update fields of a customer record.", Input: updateCustomerInput, Output: objectOutput, handler: updateCustomer},
		{Name: ToolCreateTicket, Description: "Create a new support ticket for a customer.", Input: createTicketInput, Output: objectOutput, handler: createTicket},
		{Name: ToolGetCustomerHistory, Description: "Get a customer and all of their tickets.", Input: customerHistoryInput, Output: objectOutput, handler: getCustomerHistory},
		{Name: ToolGetTicket, Description: "Get a single ticket by id.", Input: getTicketInput, Output: objectOutput, handler: getTicket},
		{Name: ToolListTickets, Description: "List a customer's tickets, optionally filtered by status.", Input: listTicketsInput, Output: listOutput, handler: listTickets},
		{Name: ToolUpdateTicketStatus, Description: "Move a ticket along open -> escalated -> closed.", Input: updateTicketStatusInput, Output: objectOutput, handler: updateTicketStatus},
	}
}

// Server is the in-process tool server: a fixed registry dispatching onto a
// Backend. It satisfies contract.ToolGateway.
type Server struct {
	backend Backend
	tools   map[string]*Definition
	now     func() time.Time
}

var _ contractx.ToolGateway = (*Server)(nil)

func NewServer(backend Backend) (*Server, error) {
	if backend == nil {
		return nil, errors.New("tool backend is required")
	}

	tools := make(map[string]*Definition, 8)
	for _, def := range definitions() {
		resolved, err := def.Input.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve input schema for tool=%s: %w", def.Name, err)
		}
		def.resolved = resolved
		tools[def.Name] = def
	}

	return &Server{
		backend: backend,
		tools:   tools,
		now:     time.Now,
	}, nil
}

// Names returns the registered tool names in sorted order.
func (s *Server) Names() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) Has(name string) bool {
	_, ok := s.tools[name]
	return ok
}

func (s *Server) Describe(name string) (contractx.ToolDescriptor, bool) {
	def, ok := s.tools[name]
	if !ok {
		return contractx.ToolDescriptor{}, false
	}
	return contractx.ToolDescriptor{
		Name:         def.Name,
		Description:  def.Description,
		InputSchema:  def.Input,
		OutputSchema: def.Output,
	}, true
}

func (s *Server) ListTools(context.Context) ([]contractx.ToolDescriptor, error) {
	out := make([]contractx.ToolDescriptor, 0, len(s.tools))
	for _, name := range s.Names() {
		desc, _ := s.Describe(name)
		out = append(out, desc)
	}
	return out, nil
}

// CallTool validates args against the tool's schema and runs it. Tool
// failures come back inside the result; only storage faults are returned as
// errors.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (contractx.ToolResult, error) {
	started := s.now()
	res, err := s.call(ctx, name, args)

	evt := log.Ctx(ctx).Debug()
	if err != nil {
		evt = log.Ctx(ctx).Error().Err(err)
	}
	if res.Error != nil {
		evt = evt.Str("tool_error", string(res.Error.Code))
	}
	evt.Str("component", "tool_server").
		Str("tool", name).
		Dur("elapsed", s.now().Sub(started)).
		Msg("tool call")

	return res, err
}

func (s *Server) call(ctx context.Context, name string, args map[string]any) (contractx.ToolResult, error) {
	def, ok := s.tools[name]
	if !ok {
		return contractx.ToolResult{
			Tool:  name,
			Error: contractx.NewToolError(contractx.ToolErrUnknownTool, "unknown tool %q", name),
		}, nil
	}

	normalized, err := normalizeArgs(args)
	if err != nil {
		return contractx.ToolResult{Tool: name, Error: contractx.NewToolError(contractx.ToolErrBadArguments, "%v", err)}, nil
	}
	if err := def.resolved.ApplyDefaults(&normalized); err != nil {
		return contractx.ToolResult{Tool: name, Error: contractx.NewToolError(contractx.ToolErrBadArguments, "apply defaults: %v", err)}, nil
	}
	if err := def.resolved.Validate(normalized); err != nil {
		return contractx.ToolResult{Tool: name, Error: contractx.NewToolError(contractx.ToolErrBadArguments, "%v", err)}, nil
	}

	out, err := def.handler(ctx, s.backend, normalized)
	if err != nil {
		if te, ok := contractx.AsToolError(err); ok {
			return contractx.ToolResult{Tool: name, Error: te}, nil
		}
		if !errors.Is(err, contractx.ErrStorageFault) {
			err = fmt.Errorf("%w: %v", contractx.ErrStorageFault, err)
		}
		return contractx.ToolResult{Tool: name}, fmt.Errorf("tool=%s: %w", name, err)
	}
	return contractx.ToolResult{Tool: name, Result: out}, nil
}

// normalizeArgs round-trips args through JSON so numbers, nested maps and
// typed values look the same whether they came from an agent or the wire.
func normalizeArgs(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	return out, nil
}

// Decode converts a tool result into T. Results produced in-process hold
// store types; results from a remote server hold decoded JSON.
func Decode[T any](result any) (T, error) {
	var out T
	if typed, ok := result.(T); ok {
		return typed, nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return out, fmt.Errorf("encode tool result: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode tool result: %w", err)
	}
	return out, nil
}

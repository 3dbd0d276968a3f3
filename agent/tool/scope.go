package tool

import (
	"context"

	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
)

var agentTools = map[contractx.AgentType][]string{
	contractx.AgentTypeData: {
		ToolGetCustomer,
		ToolListCustomers,
		ToolUpdateCustomer,
	},
	contractx.AgentTypeSupport: {
		ToolCreateTicket,
		ToolGetCustomerHistory,
		ToolGetTicket,
		ToolListTickets,
		ToolUpdateTicketStatus,
	},
}

// ToolsFor returns the tool names an agent may call.
func ToolsFor(agent contractx.AgentType) []string {
	return append([]string(nil), agentTools[agent]...)
}

// Scoped restricts a gateway to one agent's tools. Calls outside the scope
// fail with unknown_tool without reaching the underlying gateway.
type Scoped struct {
	agent   contractx.AgentType
	inner   contractx.ToolGateway
	allowed map[string]struct{}
}

var _ contractx.ToolGateway = (*Scoped)(nil)

func Scope(inner contractx.ToolGateway, agent contractx.AgentType) *Scoped {
	names := agentTools[agent]
	allowed := make(map[string]struct{}, len(names))
	for _, name := range names {
		allowed[name] = struct{}{}
	}
	return &Scoped{agent: agent, inner: inner, allowed: allowed}
}

func (s *Scoped) ListTools(ctx context.Context) ([]contractx.ToolDescriptor, error) {
	all, err := s.inner.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]contractx.ToolDescriptor, 0, len(s.allowed))
	for _, desc := range all {
		if _, ok := s.allowed[desc.Name]; ok {
			out = append(out, desc)
		}
	}
	return out, nil
}

func (s *Scoped) CallTool(ctx context.Context, name string, args map[string]any) (contractx.ToolResult, error) {
	if _, ok := s.allowed[name]; !ok {
		return contractx.ToolResult{
			Tool:  name,
			Error: contractx.NewToolError(contractx.ToolErrUnknownTool, "tool=%s is unavailable for agent=%s", name, s.agent),
		}, nil
	}
	return s.inner.CallTool(ctx, name, args)
}

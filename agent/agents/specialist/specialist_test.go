package specialist

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	storex "github.com/tanpawarit/Chative-Support-Desk/agent/store"
	toolx "github.com/tanpawarit/Chative-Support-Desk/agent/tool"
)

type fakeCall struct {
	name string
	args map[string]any
}

type fakeGateway struct {
	results map[string]contractx.ToolResult
	errs    map[string]error
	calls   []fakeCall
}

func (f *fakeGateway) ListTools(ctx context.Context) ([]contractx.ToolDescriptor, error) {
	return nil, nil
}

func (f *fakeGateway) CallTool(ctx context.Context, name string, args map[string]any) (contractx.ToolResult, error) {
	f.calls = append(f.calls, fakeCall{name: name, args: args})
	if err := f.errs[name]; err != nil {
		return contractx.ToolResult{Tool: name}, err
	}
	res, ok := f.results[name]
	if !ok {
		return contractx.ToolResult{Tool: name, Error: contractx.NewToolError(contractx.ToolErrUnknownTool, "no fake for %s", name)}, nil
	}
	res.Tool = name
	return res, nil
}

func newStoreGateway(t *testing.T) (*toolx.Server, *storex.Store) {
	t.Helper()

	st, err := storex.Open(context.Background(), storex.Config{Path: filepath.Join(t.TempDir(), "agents.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if _, err := st.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	srv, err := toolx.NewServer(st)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv, st
}

func mustDataAgent(t *testing.T, gw contractx.ToolGateway) *DataAgent {
	t.Helper()
	a, err := NewDataAgent(gw)
	if err != nil {
		t.Fatalf("NewDataAgent() error = %v", err)
	}
	return a
}

func mustSupportAgent(t *testing.T, gw contractx.ToolGateway) *SupportAgent {
	t.Helper()
	a, err := NewSupportAgent(gw)
	if err != nil {
		t.Fatalf("NewSupportAgent() error = %v", err)
	}
	return a
}

func TestNewAgentsRequireGateway(t *testing.T) {
	t.Parallel()

	if _, err := NewDataAgent(nil); err == nil {
		t.Fatal("NewDataAgent(nil) error = nil")
	}
	if _, err := NewSupportAgent(nil); err == nil {
		t.Fatal("NewSupportAgent(nil) error = nil")
	}
}

func TestDataAgentRequiresCustomerID(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	agent := mustDataAgent(t, gw)

	for _, action := range []contractx.Action{contractx.ActionGetCustomer, contractx.ActionUpdateCustomer, contractx.ActionUpgradeTier} {
		resp, err := agent.Handle(context.Background(), contractx.SubTask{Action: action})
		if err != nil {
			t.Fatalf("Handle(%s) error = %v", action, err)
		}
		if resp.Error == nil || resp.Error.Kind != contractx.ErrorKindValidation {
			t.Fatalf("Handle(%s) error = %+v, want validation_error", action, resp.Error)
		}
	}
	if len(gw.calls) != 0 {
		t.Fatalf("tool calls = %d, want 0", len(gw.calls))
	}
}

func TestDataAgentUpdateRejectsBadFields(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	agent := mustDataAgent(t, gw)

	cases := []map[string]string{
		nil,
		{"tier": "enterprise"},
		{"email": "not-an-email"},
		{"status": "banned"},
		{"name": "  "},
	}
	for _, fields := range cases {
		resp, err := agent.Handle(context.Background(), contractx.SubTask{
			Action:     contractx.ActionUpdateCustomer,
			CustomerID: 1,
			Fields:     fields,
		})
		if err != nil {
			t.Fatalf("Handle(%v) error = %v", fields, err)
		}
		if resp.Error == nil || resp.Error.Kind != contractx.ErrorKindValidation {
			t.Fatalf("Handle(%v) error = %+v, want validation_error", fields, resp.Error)
		}
	}
	if len(gw.calls) != 0 {
		t.Fatalf("tool calls = %d, want 0", len(gw.calls))
	}
}

func TestDataAgentUpgradeTier(t *testing.T) {
	t.Parallel()

	srv, st := newStoreGateway(t)
	agent := mustDataAgent(t, srv)

	// Alan (#2) starts on basic.
	resp, err := agent.Handle(context.Background(), contractx.SubTask{Action: contractx.ActionUpgradeTier, CustomerID: 2})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Failed() {
		t.Fatalf("Handle() failed: %+v", resp.Error)
	}
	if len(resp.Calls) != 2 || resp.Calls[0].Request.Tool != toolx.ToolGetCustomer || resp.Calls[1].Request.Tool != toolx.ToolUpdateCustomer {
		t.Fatalf("Handle() calls = %+v", resp.Calls)
	}

	c, err := st.GetCustomer(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetCustomer() error = %v", err)
	}
	if c.Tier != storex.TierPremium {
		t.Fatalf("tier = %s, want premium", c.Tier)
	}

	// Grace (#3) is already enterprise.
	resp, err = agent.Handle(context.Background(), contractx.SubTask{Action: contractx.ActionUpgradeTier, CustomerID: 3})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != contractx.ErrorKindValidation {
		t.Fatalf("Handle() error = %+v, want validation_error", resp.Error)
	}
}

func TestDataAgentMissingCustomerIsNotFound(t *testing.T) {
	t.Parallel()

	srv, _ := newStoreGateway(t)
	agent := mustDataAgent(t, srv)

	resp, err := agent.Handle(context.Background(), contractx.SubTask{Action: contractx.ActionGetCustomer, CustomerID: 999})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != contractx.ErrorKindTool || resp.Error.Code != string(contractx.ToolErrNotFound) {
		t.Fatalf("Handle() error = %+v, want not_found tool error", resp.Error)
	}
	if resp.Data != nil {
		t.Fatalf("Handle() data = %+v, want nil", resp.Data)
	}
}

func TestDataAgentUpdateEmail(t *testing.T) {
	t.Parallel()

	srv, st := newStoreGateway(t)
	agent := mustDataAgent(t, srv)

	resp, err := agent.Handle(context.Background(), contractx.SubTask{
		Action:     contractx.ActionUpdateCustomer,
		CustomerID: 1,
		Fields:     map[string]string{"email": "countess@example.com"},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Failed() {
		t.Fatalf("Handle() failed: %+v", resp.Error)
	}
	c, _ := st.GetCustomer(context.Background(), 1)
	if c.Email != "countess@example.com" {
		t.Fatalf("email = %s, want countess@example.com", c.Email)
	}
}

func TestDataAgentListCustomers(t *testing.T) {
	t.Parallel()

	srv, _ := newStoreGateway(t)
	agent := mustDataAgent(t, srv)

	resp, err := agent.Handle(context.Background(), contractx.SubTask{Action: contractx.ActionListCustomers, Status: "disabled"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	customers, ok := resp.Data.([]storex.Customer)
	if !ok || len(customers) != 1 || customers[0].Name != "Edsger Dijkstra" {
		t.Fatalf("Handle() data = %#v", resp.Data)
	}
}

func TestAgentsRejectForeignActions(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	resp, err := mustDataAgent(t, gw).Handle(context.Background(), contractx.SubTask{Action: contractx.ActionGetTicket, TicketID: 1})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != contractx.ErrorKindValidation {
		t.Fatalf("Handle() error = %+v, want validation_error", resp.Error)
	}

	resp, err = mustSupportAgent(t, gw).Handle(context.Background(), contractx.SubTask{Action: contractx.ActionUpgradeTier, CustomerID: 1})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != contractx.ErrorKindValidation {
		t.Fatalf("Handle() error = %+v, want validation_error", resp.Error)
	}
}

func TestSupportAgentGetTicketReportsStatusVerbatim(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{results: map[string]contractx.ToolResult{
		toolx.ToolGetTicket: {Result: map[string]any{"id": 42, "customer_id": 1, "issue": "Printer jammed", "status": "escalated", "priority": "high"}},
	}}
	agent := mustSupportAgent(t, gw)

	resp, err := agent.Handle(context.Background(), contractx.SubTask{Action: contractx.ActionGetTicket, TicketID: 42})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Failed() {
		t.Fatalf("Handle() failed: %+v", resp.Error)
	}
	ticket, ok := resp.Data.(storex.Ticket)
	if !ok || ticket.Status != storex.TicketEscalated {
		t.Fatalf("Handle() data = %#v", resp.Data)
	}
	if !strings.Contains(resp.Message, "escalated") {
		t.Fatalf("Handle() message = %q", resp.Message)
	}
	if len(gw.calls) != 1 || gw.calls[0].name != toolx.ToolGetTicket || gw.calls[0].args["ticket_id"] != int64(42) {
		t.Fatalf("calls = %+v", gw.calls)
	}
}

func TestSupportAgentRejectsSkippedTransition(t *testing.T) {
	t.Parallel()

	srv, st := newStoreGateway(t)
	agent := mustSupportAgent(t, srv)

	// Seeded ticket #1 is open.
	resp, err := agent.Handle(context.Background(), contractx.SubTask{Action: contractx.ActionCloseTicket, TicketID: 1})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != contractx.ErrorKindValidation {
		t.Fatalf("Handle() error = %+v, want validation_error", resp.Error)
	}
	for _, c := range resp.Calls {
		if c.Request.Tool == toolx.ToolUpdateTicketStatus {
			t.Fatalf("update_ticket_status was called for a rejected transition")
		}
	}

	stored, err := st.GetTicket(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetTicket() error = %v", err)
	}
	if stored.Status != storex.TicketOpen {
		t.Fatalf("stored status = %s, want open", stored.Status)
	}
}

func TestSupportAgentEscalateThenClose(t *testing.T) {
	t.Parallel()

	srv, st := newStoreGateway(t)
	agent := mustSupportAgent(t, srv)
	ctx := context.Background()

	for _, action := range []contractx.Action{contractx.ActionEscalateTicket, contractx.ActionCloseTicket} {
		resp, err := agent.Handle(ctx, contractx.SubTask{Action: action, TicketID: 3})
		if err != nil {
			t.Fatalf("Handle(%s) error = %v", action, err)
		}
		if resp.Failed() {
			t.Fatalf("Handle(%s) failed: %+v", action, resp.Error)
		}
	}

	stored, _ := st.GetTicket(ctx, 3)
	if stored.Status != storex.TicketClosed {
		t.Fatalf("stored status = %s, want closed", stored.Status)
	}

	resp, err := agent.Handle(ctx, contractx.SubTask{Action: contractx.ActionCloseTicket, TicketID: 3})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != contractx.ErrorKindValidation {
		t.Fatalf("closing a closed ticket error = %+v, want validation_error", resp.Error)
	}
}

func TestSupportAgentBillingEscalation(t *testing.T) {
	t.Parallel()

	srv, st := newStoreGateway(t)
	agent := mustSupportAgent(t, srv)

	resp, err := agent.Handle(context.Background(), contractx.SubTask{
		Action:     contractx.ActionBillingEscalation,
		CustomerID: 2,
		Issue:      "I was charged twice this month",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Failed() {
		t.Fatalf("Handle() failed: %+v", resp.Error)
	}
	ticket, ok := resp.Data.(storex.Ticket)
	if !ok {
		t.Fatalf("Handle() data = %#v", resp.Data)
	}
	if ticket.Status != storex.TicketEscalated || ticket.Priority != storex.PriorityHigh {
		t.Fatalf("ticket = %+v, want escalated/high", ticket)
	}

	stored, _ := st.GetTicket(context.Background(), ticket.ID)
	if stored.Status != storex.TicketEscalated {
		t.Fatalf("stored status = %s, want escalated", stored.Status)
	}
}

func TestSupportAgentListOpenTickets(t *testing.T) {
	t.Parallel()

	srv, _ := newStoreGateway(t)
	agent := mustSupportAgent(t, srv)

	resp, err := agent.Handle(context.Background(), contractx.SubTask{Action: contractx.ActionListTickets, CustomerID: 1, Status: "open"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	tickets, ok := resp.Data.([]storex.Ticket)
	if !ok || len(tickets) != 1 || tickets[0].Status != storex.TicketOpen {
		t.Fatalf("Handle() data = %#v", resp.Data)
	}
}

func TestSupportAgentCreateTicketUsesTextWhenIssueMissing(t *testing.T) {
	t.Parallel()

	srv, _ := newStoreGateway(t)
	agent := mustSupportAgent(t, srv)

	resp, err := agent.Handle(context.Background(), contractx.SubTask{
		Action:     contractx.ActionCreateTicket,
		CustomerID: 4,
		Text:       "the dashboard is blank",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	ticket, ok := resp.Data.(storex.Ticket)
	if !ok || ticket.Issue != "the dashboard is blank" || ticket.Priority != storex.PriorityMedium {
		t.Fatalf("Handle() data = %#v", resp.Data)
	}
}

func TestStorageFaultIsReturnedAsError(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{errs: map[string]error{
		toolx.ToolGetTicket: errors.Join(contractx.ErrStorageFault, errors.New("disk gone")),
	}}
	agent := mustSupportAgent(t, gw)

	resp, err := agent.Handle(context.Background(), contractx.SubTask{Action: contractx.ActionEscalateTicket, TicketID: 9})
	if !errors.Is(err, contractx.ErrStorageFault) {
		t.Fatalf("Handle() error = %v, want ErrStorageFault", err)
	}
	if len(resp.Calls) != 1 {
		t.Fatalf("Handle() calls = %d, want the failed call recorded", len(resp.Calls))
	}
}

func TestScopedGatewayBlocksForeignTools(t *testing.T) {
	t.Parallel()

	srv, _ := newStoreGateway(t)
	agent := mustDataAgent(t, srv)

	r := newRun(contractx.AgentTypeData, contractx.ActionGetCustomer, agent.tools)
	_, ok, err := r.call(context.Background(), toolx.ToolCreateTicket, map[string]any{"customer_id": 1, "issue": "x"})
	if err != nil {
		t.Fatalf("call() error = %v", err)
	}
	if ok || r.resp.Error == nil || r.resp.Error.Code != string(contractx.ToolErrUnknownTool) {
		t.Fatalf("call() response error = %+v, want unknown_tool", r.resp.Error)
	}
}

package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	storex "github.com/tanpawarit/Chative-Support-Desk/agent/store"
	toolx "github.com/tanpawarit/Chative-Support-Desk/agent/tool"
)

// SupportAgent handles tickets: lookups, creation and the status workflow.
type SupportAgent struct {
	tools    contractx.ToolGateway
	handlers map[contractx.Action]actionHandler
}

var _ contractx.Agent = (*SupportAgent)(nil)

func NewSupportAgent(tools contractx.ToolGateway) (*SupportAgent, error) {
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}
	a := &SupportAgent{tools: toolx.Scope(tools, contractx.AgentTypeSupport)}
	a.handlers = map[contractx.Action]actionHandler{
		contractx.ActionGetTicket:         a.getTicket,
		contractx.ActionListTickets:       a.listTickets,
		contractx.ActionCustomerHistory:   a.customerHistory,
		contractx.ActionCreateTicket:      a.createTicket,
		contractx.ActionEscalateTicket:    a.transition(storex.TicketEscalated),
		contractx.ActionCloseTicket:       a.transition(storex.TicketClosed),
		contractx.ActionBillingEscalation: a.billingEscalation,
	}
	return a, nil
}

func (a *SupportAgent) Handle(ctx context.Context, task contractx.SubTask) (contractx.AgentResponse, error) {
	return dispatch(ctx, contractx.AgentTypeSupport, a.tools, a.handlers, task)
}

func (a *SupportAgent) getTicket(ctx context.Context, r *run, task contractx.SubTask) error {
	if task.TicketID <= 0 {
		return r.invalid("a ticket id is required to look up a ticket")
	}
	t, ok, err := a.fetchTicket(ctx, r, task.TicketID)
	if err != nil || !ok {
		return err
	}
	return r.succeed(t, "Ticket #%d is %s (priority %s): %s", t.ID, t.Status, t.Priority, t.Issue)
}

func (a *SupportAgent) listTickets(ctx context.Context, r *run, task contractx.SubTask) error {
	if task.CustomerID <= 0 {
		return r.invalid("a customer id is required to list tickets")
	}
	args := map[string]any{"customer_id": task.CustomerID}
	status := strings.TrimSpace(task.Status)
	if status != "" {
		if !validTicketStatus(status) {
			return r.invalid("ticket status must be open, escalated or closed, got %q", status)
		}
		args["status"] = status
	}

	out, ok, err := r.call(ctx, toolx.ToolListTickets, args)
	if err != nil || !ok {
		return err
	}
	tickets, err := decode[[]storex.Ticket](out)
	if err != nil {
		return err
	}

	label := "tickets"
	if status != "" {
		label = status + " tickets"
	}
	if len(tickets) == 0 {
		return r.succeed(tickets, "Customer #%d has no %s.", task.CustomerID, label)
	}
	return r.succeed(tickets, "Customer #%d has %d %s: %s.", task.CustomerID, len(tickets), label, summarizeTickets(tickets))
}

func (a *SupportAgent) customerHistory(ctx context.Context, r *run, task contractx.SubTask) error {
	if task.CustomerID <= 0 {
		return r.invalid("a customer id is required to fetch ticket history")
	}
	out, ok, err := r.call(ctx, toolx.ToolGetCustomerHistory, map[string]any{"customer_id": task.CustomerID})
	if err != nil || !ok {
		return err
	}
	h, err := decode[storex.History](out)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("#%d", task.CustomerID)
	if h.Customer != nil {
		name = fmt.Sprintf("#%d %s", h.Customer.ID, h.Customer.Name)
	}
	if len(h.Tickets) == 0 {
		return r.succeed(h, "Customer %s has no ticket history.", name)
	}
	return r.succeed(h, "Customer %s has %d tickets: %s.", name, len(h.Tickets), summarizeTickets(h.Tickets))
}

func (a *SupportAgent) createTicket(ctx context.Context, r *run, task contractx.SubTask) error {
	t, ok, err := a.openTicket(ctx, r, task, task.Priority)
	if err != nil || !ok {
		return err
	}
	return r.succeed(t, "Created ticket #%d (%s priority) for customer #%d.", t.ID, t.Priority, t.CustomerID)
}

// transition moves a ticket to target, enforcing open -> escalated -> closed
// before anything is written.
func (a *SupportAgent) transition(target storex.TicketStatus) actionHandler {
	return func(ctx context.Context, r *run, task contractx.SubTask) error {
		if task.TicketID <= 0 {
			return r.invalid("a ticket id is required to change ticket status")
		}

		current, ok, err := a.fetchTicket(ctx, r, task.TicketID)
		if err != nil || !ok {
			return err
		}
		if current.Status == target {
			return r.invalid("ticket #%d is already %s", current.ID, target)
		}
		if !storex.CanTransition(current.Status, target) {
			return r.invalid("ticket #%d is %s and cannot move to %s; tickets go open, escalated, closed", current.ID, current.Status, target)
		}

		updated, ok, err := a.setStatus(ctx, r, current.ID, current.Status, target)
		if err != nil || !ok {
			return err
		}
		return r.succeed(updated, "Ticket #%d moved from %s to %s.", updated.ID, current.Status, updated.Status)
	}
}

// billingEscalation files a high-priority ticket and escalates it straight
// away. A failure on the second call leaves the created ticket open.
func (a *SupportAgent) billingEscalation(ctx context.Context, r *run, task contractx.SubTask) error {
	created, ok, err := a.openTicket(ctx, r, task, string(storex.PriorityHigh))
	if err != nil || !ok {
		return err
	}

	escalated, ok, err := a.setStatus(ctx, r, created.ID, storex.TicketOpen, storex.TicketEscalated)
	if err != nil || !ok {
		return err
	}
	return r.succeed(escalated, "Filed billing ticket #%d for customer #%d and escalated it to the billing team.", escalated.ID, escalated.CustomerID)
}

func (a *SupportAgent) openTicket(ctx context.Context, r *run, task contractx.SubTask, priority string) (storex.Ticket, bool, error) {
	if task.CustomerID <= 0 {
		return storex.Ticket{}, false, r.invalid("a customer id is required to open a ticket")
	}
	issue := strings.TrimSpace(task.Issue)
	if issue == "" {
		issue = strings.TrimSpace(task.Text)
	}
	if issue == "" {
		return storex.Ticket{}, false, r.invalid("a ticket needs a description of the issue")
	}

	args := map[string]any{"customer_id": task.CustomerID, "issue": issue}
	if priority = strings.TrimSpace(priority); priority != "" {
		if !validPriority(priority) {
			return storex.Ticket{}, false, r.invalid("priority must be low, medium or high, got %q", priority)
		}
		args["priority"] = priority
	}

	out, ok, err := r.call(ctx, toolx.ToolCreateTicket, args)
	if err != nil || !ok {
		return storex.Ticket{}, false, err
	}
	t, err := decode[storex.Ticket](out)
	return t, err == nil, err
}

func (a *SupportAgent) fetchTicket(ctx context.Context, r *run, id int64) (storex.Ticket, bool, error) {
	out, ok, err := r.call(ctx, toolx.ToolGetTicket, map[string]any{"ticket_id": id})
	if err != nil || !ok {
		return storex.Ticket{}, false, err
	}
	t, err := decode[storex.Ticket](out)
	return t, err == nil, err
}

func (a *SupportAgent) setStatus(ctx context.Context, r *run, id int64, from, to storex.TicketStatus) (storex.Ticket, bool, error) {
	out, ok, err := r.call(ctx, toolx.ToolUpdateTicketStatus, map[string]any{
		"ticket_id":       id,
		"status":          string(to),
		"expected_status": string(from),
	})
	if err != nil || !ok {
		return storex.Ticket{}, false, err
	}
	t, err := decode[storex.Ticket](out)
	return t, err == nil, err
}

func summarizeTickets(tickets []storex.Ticket) string {
	parts := make([]string, 0, len(tickets))
	for _, t := range tickets {
		parts = append(parts, fmt.Sprintf("#%d %s (%s)", t.ID, t.Status, t.Issue))
	}
	return strings.Join(parts, "; ")
}

func validTicketStatus(s string) bool {
	switch storex.TicketStatus(s) {
	case storex.TicketOpen, storex.TicketEscalated, storex.TicketClosed:
		return true
	}
	return false
}

func validPriority(s string) bool {
	switch storex.TicketPriority(s) {
	case storex.PriorityLow, storex.PriorityMedium, storex.PriorityHigh:
		return true
	}
	return false
}

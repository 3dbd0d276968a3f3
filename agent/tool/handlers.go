package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	storex "github.com/tanpawarit/Chative-Support-Desk/agent/store"
)

const (
	ToolGetCustomer        = "get_customer"
	ToolListCustomers      = "list_customers"
	ToolUpdateCustomer     = "update_customer"
	ToolCreateTicket       = "create_ticket"
	ToolGetCustomerHistory = "get_customer_history"
	ToolGetTicket          = "get_ticket"
	ToolListTickets        = "list_tickets"
	ToolUpdateTicketStatus = "update_ticket_status"
)

// Backend is the slice of the data store the tools are bound to.
type Backend interface {
	GetCustomer(ctx context.Context, id int64) (*storex.Customer, error)
	ListCustomers(ctx context.Context, status storex.CustomerStatus, limit int) ([]storex.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, patch storex.CustomerPatch) (*storex.Customer, error)
	CreateTicket(ctx context.Context, customerID int64, issue string, priority storex.TicketPriority) (*storex.Ticket, error)
	CustomerHistory(ctx context.Context, customerID int64) (*storex.History, error)
	GetTicket(ctx context.Context, id int64) (*storex.Ticket, error)
	ListTickets(ctx context.Context, customerID int64, status storex.TicketStatus) ([]storex.Ticket, error)
	TransitionTicket(ctx context.Context, id int64, from, to storex.TicketStatus) (*storex.Ticket, error)
}

type handlerFunc func(ctx context.Context, b Backend, args map[string]any) (any, error)

type customerArgs struct {
	CustomerID int64 `json:"customer_id"`
}

type listCustomersArgs struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
}

type updateCustomerArgs struct {
	CustomerID int64 `json:"customer_id"`
	Data       struct {
		Name   *string `json:"name"`
		Email  *string `json:"email"`
		Phone  *string `json:"phone"`
		Status *string `json:"status"`
		Tier   *string `json:"tier"`
	} `json:"data"`
}

type createTicketArgs struct {
	CustomerID int64  `json:"customer_id"`
	Issue      string `json:"issue"`
	Priority   string `json:"priority"`
}

type ticketArgs struct {
	TicketID int64 `json:"ticket_id"`
}

type listTicketsArgs struct {
	CustomerID int64  `json:"customer_id"`
	Status     string `json:"status"`
}

type updateTicketStatusArgs struct {
	TicketID       int64  `json:"ticket_id"`
	Status         string `json:"status"`
	ExpectedStatus string `json:"expected_status"`
}

func getCustomer(ctx context.Context, b Backend, args map[string]any) (any, error) {
	in, err := decodeArgs[customerArgs](args)
	if err != nil {
		return nil, err
	}
	c, err := b.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, storeError(err, "customer %d not found", in.CustomerID)
	}
	return c, nil
}

func listCustomers(ctx context.Context, b Backend, args map[string]any) (any, error) {
	in, err := decodeArgs[listCustomersArgs](args)
	if err != nil {
		return nil, err
	}
	customers, err := b.ListCustomers(ctx, storex.CustomerStatus(in.Status), in.Limit)
	if err != nil {
		return nil, storeError(err, "no customers")
	}
	return customers, nil
}

func updateCustomer(ctx context.Context, b Backend, args map[string]any) (any, error) {
	in, err := decodeArgs[updateCustomerArgs](args)
	if err != nil {
		return nil, err
	}

	patch := storex.CustomerPatch{
		Name:  trimmed(in.Data.Name),
		Email: trimmed(in.Data.Email),
		Phone: trimmed(in.Data.Phone),
	}
	if in.Data.Status != nil {
		st := storex.CustomerStatus(*in.Data.Status)
		patch.Status = &st
	}
	if in.Data.Tier != nil {
		tier := storex.Tier(*in.Data.Tier)
		patch.Tier = &tier
	}

	c, err := b.UpdateCustomer(ctx, in.CustomerID, patch)
	if err != nil {
		return nil, storeError(err, "customer %d not found", in.CustomerID)
	}
	return c, nil
}

func createTicket(ctx context.Context, b Backend, args map[string]any) (any, error) {
	in, err := decodeArgs[createTicketArgs](args)
	if err != nil {
		return nil, err
	}
	issue := strings.TrimSpace(in.Issue)
	if issue == "" {
		return nil, contractx.NewToolError(contractx.ToolErrBadArguments, "issue must not be blank")
	}
	t, err := b.CreateTicket(ctx, in.CustomerID, issue, storex.TicketPriority(in.Priority))
	if err != nil {
		return nil, storeError(err, "customer %d not found", in.CustomerID)
	}
	return t, nil
}

func getCustomerHistory(ctx context.Context, b Backend, args map[string]any) (any, error) {
	in, err := decodeArgs[customerArgs](args)
	if err != nil {
		return nil, err
	}
	h, err := b.CustomerHistory(ctx, in.CustomerID)
	if err != nil {
		return nil, storeError(err, "customer %d not found", in.CustomerID)
	}
	return h, nil
}

func getTicket(ctx context.Context, b Backend, args map[string]any) (any, error) {
	in, err := decodeArgs[ticketArgs](args)
	if err != nil {
		return nil, err
	}
	t, err := b.GetTicket(ctx, in.TicketID)
	if err != nil {
		return nil, storeError(err, "ticket %d not found", in.TicketID)
	}
	return t, nil
}

func listTickets(ctx context.Context, b Backend, args map[string]any) (any, error) {
	in, err := decodeArgs[listTicketsArgs](args)
	if err != nil {
		return nil, err
	}
	tickets, err := b.ListTickets(ctx, in.CustomerID, storex.TicketStatus(in.Status))
	if err != nil {
		return nil, storeError(err, "customer %d not found", in.CustomerID)
	}
	return tickets, nil
}

func updateTicketStatus(ctx context.Context, b Backend, args map[string]any) (any, error) {
	in, err := decodeArgs[updateTicketStatusArgs](args)
	if err != nil {
		return nil, err
	}

	to := storex.TicketStatus(in.Status)
	from := storex.TicketStatus(in.ExpectedStatus)
	if from == "" {
		current, err := b.GetTicket(ctx, in.TicketID)
		if err != nil {
			return nil, storeError(err, "ticket %d not found", in.TicketID)
		}
		from = current.Status
	}
	if !storex.CanTransition(from, to) {
		return nil, contractx.NewToolError(contractx.ToolErrConstraintViolated,
			"ticket %d cannot move from %s to %s", in.TicketID, from, to)
	}

	t, err := b.TransitionTicket(ctx, in.TicketID, from, to)
	if err != nil {
		return nil, storeError(err, "ticket %d not found", in.TicketID)
	}
	return t, nil
}

// storeError converts store sentinels into tool errors. Everything else is a
// storage fault and passes through untouched.
func storeError(err error, notFoundFormat string, args ...any) error {
	switch {
	case errors.Is(err, storex.ErrNotFound):
		return contractx.NewToolError(contractx.ToolErrNotFound, notFoundFormat, args...)
	case errors.Is(err, storex.ErrConstraint):
		return contractx.NewToolError(contractx.ToolErrConstraintViolated, "%s", unwrapMessage(err))
	case errors.Is(err, storex.ErrNoChanges):
		return contractx.NewToolError(contractx.ToolErrBadArguments, "no valid fields to update")
	case errors.Is(err, contractx.ErrStorageFault):
		return err
	default:
		return fmt.Errorf("%w: %v", contractx.ErrStorageFault, err)
	}
}

func unwrapMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, storex.ErrConstraint.Error()); i >= 0 {
		return strings.TrimPrefix(strings.TrimSpace(msg[i+len(storex.ErrConstraint.Error()):]), ": ")
	}
	return msg
}

func decodeArgs[T any](args map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(args)
	if err != nil {
		return out, contractx.NewToolError(contractx.ToolErrBadArguments, "encode arguments: %v", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, contractx.NewToolError(contractx.ToolErrBadArguments, "decode arguments: %v", err)
	}
	return out, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

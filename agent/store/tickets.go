package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func (s *Store) CreateTicket(ctx context.Context, customerID int64, issue string, priority TicketPriority) (*Ticket, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	t := &Ticket{
		CustomerID: customerID,
		Issue:      issue,
		Status:     TicketOpen,
		Priority:   priority,
	}
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*Customer)(nil)).Where("c.id = ?", customerID).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("customer id=%d: %w", customerID, ErrNotFound)
		}
		_, err = tx.NewInsert().Model(t).Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return t, nil
}

func (s *Store) GetTicket(ctx context.Context, id int64) (*Ticket, error) {
	var t Ticket
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&t).Where("t.id = ?", id).Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("get ticket id=%d: %w", id, err)
	}
	return &t, nil
}

// ListTickets returns a customer's tickets, newest first. An empty status
// returns every ticket.
func (s *Store) ListTickets(ctx context.Context, customerID int64, status TicketStatus) ([]Ticket, error) {
	tickets := make([]Ticket, 0, 8)
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*Customer)(nil)).Where("c.id = ?", customerID).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("customer id=%d: %w", customerID, ErrNotFound)
		}
		q := tx.NewSelect().Model(&tickets).
			Where("t.customer_id = ?", customerID).
			OrderExpr("t.created_at DESC").
			OrderExpr("t.id DESC")
		if status != "" {
			q = q.Where("t.status = ?", status)
		}
		return q.Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list tickets customer=%d: %w", customerID, err)
	}
	return tickets, nil
}

func (s *Store) CustomerHistory(ctx context.Context, customerID int64) (*History, error) {
	h := &History{Customer: &Customer{}, Tickets: make([]Ticket, 0, 8)}
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(h.Customer).Where("c.id = ?", customerID).Scan(ctx); err != nil {
			return err
		}
		return tx.NewSelect().Model(&h.Tickets).
			Where("t.customer_id = ?", customerID).
			OrderExpr("t.created_at DESC").
			OrderExpr("t.id DESC").
			Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("customer history id=%d: %w", customerID, err)
	}
	return h, nil
}

// TransitionTicket moves a ticket from one status to another in a single
// compare-and-set update. A ticket whose stored status is not from, or a move
// the lifecycle forbids, fails with ErrConstraint and leaves the row untouched.
func (s *Store) TransitionTicket(ctx context.Context, id int64, from, to TicketStatus) (*Ticket, error) {
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: ticket status %s -> %s is not allowed", ErrConstraint, from, to)
	}

	var t Ticket
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*Ticket)(nil)).
			Set("status = ?", to).
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("id = ?", id).
			Where("status = ?", from).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if err := tx.NewSelect().Model(&t).Where("t.id = ?", id).Scan(ctx); err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: ticket status is %s, expected %s", ErrConstraint, t.Status, from)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transition ticket id=%d: %w", id, err)
	}
	return &t, nil
}

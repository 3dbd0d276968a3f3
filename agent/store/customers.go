package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

const defaultListLimit = 20

func (s *Store) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	var c Customer
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&c).Where("c.id = ?", id).Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("get customer id=%d: %w", id, err)
	}
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context, status CustomerStatus, limit int) ([]Customer, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	customers := make([]Customer, 0, limit)
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(&customers).
			OrderExpr("c.created_at DESC").
			OrderExpr("c.id DESC").
			Limit(limit)
		if status != "" {
			q = q.Where("c.status = ?", status)
		}
		return q.Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list customers status=%s: %w", status, err)
	}
	return customers, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c *Customer) error {
	if c.Status == "" {
		c.Status = CustomerActive
	}
	if c.Tier == "" {
		c.Tier = TierBasic
	}
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(c).Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

// UpdateCustomer applies patch and returns the stored row after the update.
func (s *Store) UpdateCustomer(ctx context.Context, id int64, patch CustomerPatch) (*Customer, error) {
	if patch.Empty() {
		return nil, ErrNoChanges
	}

	var c Customer
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewUpdate().
			Model((*Customer)(nil)).
			Where("id = ?", id).
			Set("updated_at = CURRENT_TIMESTAMP")
		if patch.Name != nil {
			q = q.Set("name = ?", *patch.Name)
		}
		if patch.Email != nil {
			q = q.Set("email = ?", *patch.Email)
		}
		if patch.Phone != nil {
			q = q.Set("phone = ?", *patch.Phone)
		}
		if patch.Status != nil {
			q = q.Set("status = ?", *patch.Status)
		}
		if patch.Tier != nil {
			q = q.Set("tier = ?", *patch.Tier)
		}

		res, err := q.Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return tx.NewSelect().Model(&c).Where("c.id = ?", id).Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("update customer id=%d: %w", id, err)
	}
	return &c, nil
}

package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
)

type seedCustomer struct {
	customer Customer
	tickets  []Ticket
}

var seedData = []seedCustomer{
	{
		customer: Customer{Name: "Ada Lovelace", Email: "ada@example.com", Phone: "+1-555-0100", Status: CustomerActive, Tier: TierPremium},
		tickets: []Ticket{
			{Issue: "Cannot log in after password reset", Status: TicketOpen, Priority: PriorityHigh},
			{Issue: "Invoice shows the wrong billing address", Status: TicketEscalated, Priority: PriorityMedium},
		},
	},
	{
		customer: Customer{Name: "Alan Turing", Email: "alan@example.com", Phone: "+1-555-0101", Status: CustomerActive, Tier: TierBasic},
		tickets: []Ticket{
			{Issue: "Export to CSV times out", Status: TicketOpen, Priority: PriorityLow},
		},
	},
	{
		customer: Customer{Name: "Grace Hopper", Email: "grace@example.com", Phone: "+1-555-0102", Status: CustomerActive, Tier: TierEnterprise},
		tickets: []Ticket{
			{Issue: "Request for SSO configuration help", Status: TicketClosed, Priority: PriorityMedium},
		},
	},
	{
		customer: Customer{Name: "Edsger Dijkstra", Email: "edsger@example.com", Status: CustomerDisabled, Tier: TierBasic},
	},
}

// Seed inserts demo customers and tickets when the customers table is empty.
// It reports how many customers were inserted.
func (s *Store) Seed(ctx context.Context) (int, error) {
	inserted := 0
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		count, err := tx.NewSelect().Model((*Customer)(nil)).Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		for _, sc := range seedData {
			c := sc.customer
			if _, err := tx.NewInsert().Model(&c).Returning("id").Exec(ctx); err != nil {
				return fmt.Errorf("insert customer %q: %w", c.Name, err)
			}
			for _, t := range sc.tickets {
				t.CustomerID = c.ID
				if _, err := tx.NewInsert().Model(&t).Returning("id").Exec(ctx); err != nil {
					return fmt.Errorf("insert ticket for %q: %w", c.Name, err)
				}
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}

	log.Info().Str("component", "store").Int("customers", inserted).Msg("seed complete")
	return inserted, nil
}

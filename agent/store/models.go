package store

import (
	"time"

	"github.com/uptrace/bun"
)

type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerDisabled CustomerStatus = "disabled"
)

type Tier string

const (
	TierBasic      Tier = "basic"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// NextTier returns the tier above t, or false when t is already the top tier
// or unknown.
func NextTier(t Tier) (Tier, bool) {
	switch t {
	case TierBasic:
		return TierPremium, true
	case TierPremium:
		return TierEnterprise, true
	default:
		return "", false
	}
}

type TicketStatus string

const (
	TicketOpen      TicketStatus = "open"
	TicketEscalated TicketStatus = "escalated"
	TicketClosed    TicketStatus = "closed"
)

// CanTransition enforces the ticket lifecycle open -> escalated -> closed.
func CanTransition(from, to TicketStatus) bool {
	switch from {
	case TicketOpen:
		return to == TicketEscalated
	case TicketEscalated:
		return to == TicketClosed
	default:
		return false
	}
}

type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
)

type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID        int64          `bun:"id,pk,autoincrement" json:"id"`
	Name      string         `bun:"name,notnull" json:"name"`
	Email     string         `bun:"email,nullzero" json:"email,omitempty"`
	Phone     string         `bun:"phone,nullzero" json:"phone,omitempty"`
	Status    CustomerStatus `bun:"status,notnull" json:"status"`
	Tier      Tier           `bun:"tier,notnull" json:"tier"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID         int64          `bun:"id,pk,autoincrement" json:"id"`
	CustomerID int64          `bun:"customer_id,notnull" json:"customer_id"`
	Issue      string         `bun:"issue,notnull" json:"issue"`
	Status     TicketStatus   `bun:"status,notnull" json:"status"`
	Priority   TicketPriority `bun:"priority,notnull" json:"priority"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

type History struct {
	Customer *Customer `json:"customer"`
	Tickets  []Ticket  `json:"tickets"`
}

// CustomerPatch lists the columns a caller may change. Nil fields are left alone.
type CustomerPatch struct {
	Name   *string
	Email  *string
	Phone  *string
	Status *CustomerStatus
	Tier   *Tier
}

func (p CustomerPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Status == nil && p.Tier == nil
}

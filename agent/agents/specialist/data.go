package specialist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	storex "github.com/tanpawarit/Chative-Support-Desk/agent/store"
	toolx "github.com/tanpawarit/Chative-Support-Desk/agent/tool"
)

var updatableFields = map[string]struct{}{
	"name":   {},
	"email":  {},
	"phone":  {},
	"status": {},
}

// DataAgent handles customer lookups and account changes.
type DataAgent struct {
	tools    contractx.ToolGateway
	handlers map[contractx.Action]actionHandler
}

var _ contractx.Agent = (*DataAgent)(nil)

func NewDataAgent(tools contractx.ToolGateway) (*DataAgent, error) {
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}
	a := &DataAgent{tools: toolx.Scope(tools, contractx.AgentTypeData)}
	a.handlers = map[contractx.Action]actionHandler{
		contractx.ActionGetCustomer:    a.getCustomer,
		contractx.ActionUpdateCustomer: a.updateCustomer,
		contractx.ActionUpgradeTier:    a.upgradeTier,
		contractx.ActionListCustomers:  a.listCustomers,
	}
	return a, nil
}

func (a *DataAgent) Handle(ctx context.Context, task contractx.SubTask) (contractx.AgentResponse, error) {
	return dispatch(ctx, contractx.AgentTypeData, a.tools, a.handlers, task)
}

func (a *DataAgent) getCustomer(ctx context.Context, r *run, task contractx.SubTask) error {
	if task.CustomerID <= 0 {
		return r.invalid("a customer id is required to look up a customer")
	}
	out, ok, err := r.call(ctx, toolx.ToolGetCustomer, map[string]any{"customer_id": task.CustomerID})
	if err != nil || !ok {
		return err
	}
	c, err := decode[storex.Customer](out)
	if err != nil {
		return err
	}
	return r.succeed(c, "%s", describeCustomer(c))
}

func (a *DataAgent) updateCustomer(ctx context.Context, r *run, task contractx.SubTask) error {
	if task.CustomerID <= 0 {
		return r.invalid("a customer id is required to update a customer")
	}
	if len(task.Fields) == 0 {
		return r.invalid("at least one of name, email, phone or status must be given")
	}

	data := make(map[string]any, len(task.Fields))
	for key, value := range task.Fields {
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if _, ok := updatableFields[key]; !ok {
			return r.invalid("field %q cannot be updated", key)
		}
		if value == "" {
			return r.invalid("field %q needs a value", key)
		}
		switch key {
		case "email":
			if !strings.Contains(value, "@") {
				return r.invalid("%q is not an email address", value)
			}
		case "status":
			if value != string(storex.CustomerActive) && value != string(storex.CustomerDisabled) {
				return r.invalid("status must be active or disabled, got %q", value)
			}
		}
		data[key] = value
	}

	out, ok, err := r.call(ctx, toolx.ToolUpdateCustomer, map[string]any{
		"customer_id": task.CustomerID,
		"data":        data,
	})
	if err != nil || !ok {
		return err
	}
	c, err := decode[storex.Customer](out)
	if err != nil {
		return err
	}
	return r.succeed(c, "Updated %s for customer #%d.", joinKeys(data), c.ID)
}

func (a *DataAgent) upgradeTier(ctx context.Context, r *run, task contractx.SubTask) error {
	if task.CustomerID <= 0 {
		return r.invalid("a customer id is required to upgrade a plan")
	}

	out, ok, err := r.call(ctx, toolx.ToolGetCustomer, map[string]any{"customer_id": task.CustomerID})
	if err != nil || !ok {
		return err
	}
	current, err := decode[storex.Customer](out)
	if err != nil {
		return err
	}
	if current.Status != storex.CustomerActive {
		return r.invalid("customer #%d is %s and cannot be upgraded", current.ID, current.Status)
	}
	next, canUpgrade := storex.NextTier(current.Tier)
	if !canUpgrade {
		return r.invalid("customer #%d is already on the %s tier", current.ID, current.Tier)
	}

	out, ok, err = r.call(ctx, toolx.ToolUpdateCustomer, map[string]any{
		"customer_id": task.CustomerID,
		"data":        map[string]any{"tier": string(next)},
	})
	if err != nil || !ok {
		return err
	}
	upgraded, err := decode[storex.Customer](out)
	if err != nil {
		return err
	}
	return r.succeed(upgraded, "Upgraded customer #%d from %s to %s.", upgraded.ID, current.Tier, upgraded.Tier)
}

func (a *DataAgent) listCustomers(ctx context.Context, r *run, task contractx.SubTask) error {
	args := map[string]any{}
	switch status := strings.TrimSpace(task.Status); status {
	case "":
	case string(storex.CustomerActive), string(storex.CustomerDisabled):
		args["status"] = status
	default:
		return r.invalid("customer status must be active or disabled, got %q", status)
	}

	out, ok, err := r.call(ctx, toolx.ToolListCustomers, args)
	if err != nil || !ok {
		return err
	}
	customers, err := decode[[]storex.Customer](out)
	if err != nil {
		return err
	}

	if len(customers) == 0 {
		return r.succeed(customers, "No customers found.")
	}
	names := make([]string, 0, len(customers))
	for _, c := range customers {
		names = append(names, fmt.Sprintf("#%d %s (%s)", c.ID, c.Name, c.Tier))
	}
	return r.succeed(customers, "Found %d customers: %s.", len(customers), strings.Join(names, ", "))
}

func describeCustomer(c storex.Customer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer #%d %s is %s on the %s tier", c.ID, c.Name, c.Status, c.Tier)
	if c.Email != "" {
		fmt.Fprintf(&b, ", email %s", c.Email)
	}
	if c.Phone != "" {
		fmt.Fprintf(&b, ", phone %s", c.Phone)
	}
	b.WriteString(".")
	return b.String()
}

func joinKeys(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

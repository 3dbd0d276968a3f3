package contract

import (
	"github.com/google/jsonschema-go/jsonschema"
)

type AgentType string

const (
	AgentTypeRouter  AgentType = "router"
	AgentTypeData    AgentType = "data"
	AgentTypeSupport AgentType = "support"
)

type Intent string

const (
	IntentLookup            Intent = "lookup"
	IntentAccountUpdate     Intent = "account_update"
	IntentUpgrade           Intent = "upgrade"
	IntentBillingEscalation Intent = "billing_escalation"
	IntentReporting         Intent = "reporting"
	IntentTicketCreate      Intent = "ticket_create"
	IntentTicketTransition  Intent = "ticket_transition"
	IntentMulti             Intent = "multi_intent"
	IntentUnrouted          Intent = "unrouted"
)

// Action is the closed set of sub-task kinds. Each action belongs to exactly
// one agent and one intent.
type Action string

const (
	ActionGetCustomer       Action = "get_customer"
	ActionUpdateCustomer    Action = "update_customer"
	ActionUpgradeTier       Action = "upgrade_tier"
	ActionListCustomers     Action = "list_customers"
	ActionGetTicket         Action = "get_ticket"
	ActionListTickets       Action = "list_tickets"
	ActionCustomerHistory   Action = "customer_history"
	ActionCreateTicket      Action = "create_ticket"
	ActionEscalateTicket    Action = "escalate_ticket"
	ActionCloseTicket       Action = "close_ticket"
	ActionBillingEscalation Action = "billing_escalation"
)

// Dependency phases used to order multi-intent plans.
const (
	PhaseCustomerWrite = iota
	PhaseCustomerRead
	PhaseTicketWrite
	PhaseTicketRead
)

type actionSpec struct {
	agent  AgentType
	intent Intent
	phase  int
}

var actionSpecs = map[Action]actionSpec{
	ActionGetCustomer:       {AgentTypeData, IntentLookup, PhaseCustomerRead},
	ActionUpdateCustomer:    {AgentTypeData, IntentAccountUpdate, PhaseCustomerWrite},
	ActionUpgradeTier:       {AgentTypeData, IntentUpgrade, PhaseCustomerWrite},
	ActionListCustomers:     {AgentTypeData, IntentReporting, PhaseCustomerRead},
	ActionGetTicket:         {AgentTypeSupport, IntentLookup, PhaseTicketRead},
	ActionListTickets:       {AgentTypeSupport, IntentReporting, PhaseTicketRead},
	ActionCustomerHistory:   {AgentTypeSupport, IntentReporting, PhaseTicketRead},
	ActionCreateTicket:      {AgentTypeSupport, IntentTicketCreate, PhaseTicketWrite},
	ActionEscalateTicket:    {AgentTypeSupport, IntentTicketTransition, PhaseTicketWrite},
	ActionCloseTicket:       {AgentTypeSupport, IntentTicketTransition, PhaseTicketWrite},
	ActionBillingEscalation: {AgentTypeSupport, IntentBillingEscalation, PhaseTicketWrite},
}

func (a Action) Valid() bool {
	_, ok := actionSpecs[a]
	return ok
}

func (a Action) Agent() AgentType {
	return actionSpecs[a].agent
}

func (a Action) Intent() Intent {
	if spec, ok := actionSpecs[a]; ok {
		return spec.intent
	}
	return IntentUnrouted
}

func (a Action) Phase() int {
	return actionSpecs[a].phase
}

type RouteRequest struct {
	UserMessage string `json:"user_message"`
	// CustomerID identifies the requester; steps that name no customer fall back to it.
	CustomerID int64 `json:"customer_id,omitempty"`
}

type SubTask struct {
	Action     Action            `json:"action"`
	CustomerID int64             `json:"customer_id,omitempty"`
	TicketID   int64             `json:"ticket_id,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Status     string            `json:"status,omitempty"`
	Priority   string            `json:"priority,omitempty"`
	Issue      string            `json:"issue,omitempty"`
	Text       string            `json:"text,omitempty"`
}

type Step struct {
	Agent AgentType `json:"agent"`
	Task  SubTask   `json:"task"`
}

type RoutingPlan struct {
	Intent   Intent `json:"intent"`
	Steps    []Step `json:"steps"`
	Unrouted bool   `json:"unrouted,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation_error"
	ErrorKindTool       ErrorKind = "tool_error"
)

type ResponseError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
}

type AgentResponse struct {
	Agent   AgentType      `json:"agent"`
	Action  Action         `json:"action"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Calls   []ToolExchange `json:"calls,omitempty"`
	Error   *ResponseError `json:"error,omitempty"`
}

func (r AgentResponse) Failed() bool {
	return r.Error != nil
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string     `json:"tool"`
	Result any        `json:"result,omitempty"`
	Error  *ToolError `json:"error,omitempty"`
}

type ToolExchange struct {
	Request ToolRequest `json:"request"`
	Result  ToolResult  `json:"result"`
}

type ToolDescriptor struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	InputSchema  *jsonschema.Schema `json:"input_schema"`
	OutputSchema *jsonschema.Schema `json:"output_schema,omitempty"`
}

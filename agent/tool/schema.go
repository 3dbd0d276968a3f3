package tool

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

func ptr[T any](v T) *T {
	return &v
}

func closed() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

func idSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc, Minimum: ptr(1.0)}
}

func enumSchema(desc string, def string, values ...string) *jsonschema.Schema {
	s := &jsonschema.Schema{Type: "string", Description: desc}
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}
	if def != "" {
		s.Default = json.RawMessage(`"` + def + `"`)
	}
	return s
}

func objectSchema(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: closed(),
	}
}

var (
	objectOutput = &jsonschema.Schema{Type: "object"}
	listOutput   = &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "object"}}
)

var (
	getCustomerInput = objectSchema([]string{"customer_id"}, map[string]*jsonschema.Schema{
		"customer_id": idSchema("Customer id."),
	})

	listCustomersInput = objectSchema(nil, map[string]*jsonschema.Schema{
		"status": enumSchema("Customer status filter.", "active", "active", "disabled"),
		"limit": {
			Type:        "integer",
			Description: "Maximum number of customers to return.",
			Minimum:     ptr(1.0),
			Maximum:     ptr(100.0),
			Default:     json.RawMessage(`20`),
		},
	})

	updateCustomerInput = objectSchema([]string{"customer_id", "data"}, map[string]*jsonschema.Schema{
		"customer_id": idSchema("Customer id."),
		"data": {
			Type:          "object",
			Description:   "Fields to change.",
			MinProperties: ptr(1),
			Properties: map[string]*jsonschema.Schema{
				"name":   {Type: "string", MinLength: ptr(1)},
				"email":  {Type: "string", MinLength: ptr(3)},
				"phone":  {Type: "string", MinLength: ptr(3)},
				"status": enumSchema("Account status.", "", "active", "disabled"),
				"tier":   enumSchema("Account tier.", "", "basic", "premium", "enterprise"),
			},
			AdditionalProperties: closed(),
		},
	})

	createTicketInput = objectSchema([]string{"customer_id", "issue"}, map[string]*jsonschema.Schema{
		"customer_id": idSchema("Customer the ticket belongs to."),
		"issue":       {Type: "string", Description: "Subject and body of the ticket.", MinLength: ptr(1)},
		"priority":    enumSchema("Ticket priority.", "medium", "low", "medium", "high"),
	})

	customerHistoryInput = objectSchema([]string{"customer_id"}, map[string]*jsonschema.Schema{
		"customer_id": idSchema("Customer id."),
	})

	getTicketInput = objectSchema([]string{"ticket_id"}, map[string]*jsonschema.Schema{
		"ticket_id": idSchema("Ticket id."),
	})

	listTicketsInput = objectSchema([]string{"customer_id"}, map[string]*jsonschema.Schema{
		"customer_id": idSchema("Customer id."),
		"status":      enumSchema("Only return tickets in this status.", "", "open", "escalated", "closed"),
	})

	updateTicketStatusInput = objectSchema([]string{"ticket_id", "status"}, map[string]*jsonschema.Schema{
		"ticket_id":       idSchema("Ticket id."),
		"status":          enumSchema("Target status.", "", "escalated", "closed"),
		"expected_status": enumSchema("Status the ticket must currently have.", "", "open", "escalated", "closed"),
	})
)

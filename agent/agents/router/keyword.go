package router

import (
	"context"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
)

var (
	clauseSeparator = regexp.MustCompile(`(?i)\s*(?:[;!?]+|\.\s+|,\s*(?:and\s+|then\s+)?|\s+and\s+then\s+|\s+and\s+also\s+|\s+and\s+|\s+then\s+|\s+also\s+)\s*`)

	createTicketPattern = regexp.MustCompile(`(?i)\b(?:(?:create|file|raise|submit|log)\s+(?:[\w-]+\s+){0,3}ticket|open\s+(?:a|an|another)\s+(?:[\w-]+\s+){0,2}ticket|new\s+ticket|report\s+(?:a|an)\s+(?:problem|issue|bug))`)
	issuePrefixPattern  = regexp.MustCompile(`(?i)^.*?\b(?:ticket|problem|issue|bug)\b\s*(?:for\s+(?:me|customer\s*#?\d+)\s*)?(?:(?:about|regarding|re|saying|that|because|for)\b|:|-)?\s*:?\s*`)
	updateVerbPattern   = regexp.MustCompile(`(?i)\b(?:update|change|set|modify|correct|edit|replace)\b`)
	closeVerbPattern    = regexp.MustCompile(`(?i)\b(?:close|resolve|resolved|mark\s+.*\s+closed)\b`)
	disablePattern      = regexp.MustCompile(`(?i)\b(?:disable|deactivate|suspend|close)\s+(?:my\s+|the\s+|this\s+)?account\b`)
	enablePattern       = regexp.MustCompile(`(?i)\b(?:reactivate|re-enable|enable|activate|reopen)\s+(?:my\s+|the\s+|this\s+)?account\b`)
	customersPattern    = regexp.MustCompile(`(?i)\bcustomers\b`)
)

var (
	billingWords   = []string{"billing", "invoice", "charge", "refund", "payment", "overcharg"}
	complaintWords = []string{"escalat", "dispute", "complain", "wrong", "problem", "issue", "twice", "double", "incorrect", "overcharg"}
	customerWords  = []string{"my account", "my profile", "my details", "my info", "account details", "contact info", "my tier", "my plan", "customer"}
)

// Keyword is the default classifier. It splits a message into clauses on
// conjunctions and punctuation and classifies each clause by keyword.
type Keyword struct{}

var _ contractx.Classifier = Keyword{}

func NewKeyword() Keyword {
	return Keyword{}
}

func (Keyword) Classify(_ context.Context, req contractx.RouteRequest) ([]contractx.Step, error) {
	var (
		steps   []contractx.Step
		pending []string
	)

	for _, clause := range splitClauses(req.UserMessage) {
		task, ok := classifyClause(clause)
		if !ok {
			if len(steps) == 0 {
				pending = append(pending, clause)
				continue
			}
			foldDetail(&steps[len(steps)-1].Task, clause)
			continue
		}
		if len(pending) > 0 {
			task.Text = strings.Join(append(pending, task.Text), ", ")
			pending = nil
		}
		if len(steps) > 0 && continuesStep(steps[len(steps)-1].Task, task) {
			mergeStep(&steps[len(steps)-1].Task, task)
			continue
		}
		steps = append(steps, contractx.Step{Agent: task.Action.Agent(), Task: task})
	}
	return steps, nil
}

func splitClauses(message string) []string {
	parts := clauseSeparator.Split(strings.TrimSpace(message), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), ".,;:!?")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// continuesStep reports whether next only restates the complaint of prev.
// A billing complaint split over several clauses is one escalation, and a
// ticket request whose issue follows in a later clause is one ticket.
func continuesStep(prev, next contractx.SubTask) bool {
	if prev.Action != next.Action || next.TicketID != 0 {
		return false
	}
	if next.CustomerID != 0 && next.CustomerID != prev.CustomerID {
		return false
	}
	switch next.Action {
	case contractx.ActionBillingEscalation:
		return true
	case contractx.ActionCreateTicket:
		return prev.Issue == "" || next.Issue == ""
	default:
		return false
	}
}

// foldDetail attaches a clause to the step before it. Contact details named
// in the clause extend a pending customer update.
func foldDetail(task *contractx.SubTask, clause string) {
	task.Text = strings.TrimSpace(task.Text + ", " + clause)
	switch task.Action {
	case contractx.ActionCreateTicket, contractx.ActionBillingEscalation:
		appendIssue(task, clause)
	case contractx.ActionUpdateCustomer:
		fields := customerFields(strings.ToLower(clause), extractIdentifiers(clause))
		if len(fields) == 0 {
			return
		}
		if task.Fields == nil {
			task.Fields = make(map[string]string, len(fields))
		}
		for k, v := range fields {
			if _, set := task.Fields[k]; !set {
				task.Fields[k] = v
			}
		}
	}
}

func mergeStep(prev *contractx.SubTask, next contractx.SubTask) {
	prev.Text = strings.TrimSpace(prev.Text + ", " + next.Text)
	appendIssue(prev, next.Issue)
	if prev.Priority == "" {
		prev.Priority = next.Priority
	}
}

func appendIssue(task *contractx.SubTask, detail string) {
	switch {
	case detail == "":
	case task.Issue == "":
		task.Issue = detail
	default:
		task.Issue = task.Issue + "; " + detail
	}
}

func classifyClause(clause string) (contractx.SubTask, bool) {
	l := strings.ToLower(clause)
	ids := extractIdentifiers(clause)
	mentionsTicket := ids.TicketID > 0 || strings.Contains(l, "ticket")

	task := contractx.SubTask{
		CustomerID: ids.CustomerID,
		TicketID:   ids.TicketID,
		Text:       clause,
	}

	switch {
	case strings.Contains(l, "escalat") && ids.TicketID > 0:
		task.Action = contractx.ActionEscalateTicket
	case containsAny(l, billingWords...) && containsAny(l, complaintWords...):
		task.Action = contractx.ActionBillingEscalation
		task.Issue = clause
	case strings.Contains(l, "escalat") && mentionsTicket:
		task.Action = contractx.ActionEscalateTicket
	case closeVerbPattern.MatchString(clause) && mentionsTicket:
		task.Action = contractx.ActionCloseTicket
	case createTicketPattern.MatchString(clause):
		task.Action = contractx.ActionCreateTicket
		task.Issue = issueText(clause)
		task.Priority = priorityOf(l)
	case strings.Contains(l, "upgrade"):
		task.Action = contractx.ActionUpgradeTier
	case disablePattern.MatchString(clause):
		task.Action = contractx.ActionUpdateCustomer
		task.Fields = map[string]string{"status": "disabled"}
	case enablePattern.MatchString(clause):
		task.Action = contractx.ActionUpdateCustomer
		task.Fields = map[string]string{"status": "active"}
	case updateVerbPattern.MatchString(clause) && containsAny(l, "email", "phone", "name", "contact", "address"):
		task.Action = contractx.ActionUpdateCustomer
		task.Fields = customerFields(l, ids)
	case strings.Contains(l, "history"):
		task.Action = contractx.ActionCustomerHistory
	case ids.TicketID > 0:
		task.Action = contractx.ActionGetTicket
	case strings.Contains(l, "ticket"):
		task.Action = contractx.ActionListTickets
		task.Status = ticketStatusOf(l)
	case customersPattern.MatchString(clause) && ids.CustomerID == 0:
		task.Action = contractx.ActionListCustomers
		task.Status = customerStatusOf(l)
	case ids.CustomerID > 0 || containsAny(l, customerWords...):
		task.Action = contractx.ActionGetCustomer
	default:
		return contractx.SubTask{}, false
	}
	return task, true
}

func customerFields(l string, ids identifiers) map[string]string {
	fields := map[string]string{}
	if ids.Email != "" && strings.Contains(l, "email") {
		fields["email"] = ids.Email
	}
	if ids.Phone != "" {
		fields["phone"] = ids.Phone
	}
	if ids.Name != "" {
		fields["name"] = ids.Name
	}
	return fields
}

// issueText strips the "create a ticket for ..." preamble. An empty result
// means the issue text, if any, follows in a later clause.
func issueText(clause string) string {
	return strings.TrimSpace(issuePrefixPattern.ReplaceAllString(clause, ""))
}

func priorityOf(l string) string {
	switch {
	case containsAny(l, "urgent", "asap", "critical", "high priority", "emergency"):
		return "high"
	case containsAny(l, "low priority", "minor", "whenever"):
		return "low"
	default:
		return ""
	}
}

func ticketStatusOf(l string) string {
	switch {
	case strings.Contains(l, "open"):
		return "open"
	case strings.Contains(l, "escalated"):
		return "escalated"
	case strings.Contains(l, "closed") || strings.Contains(l, "resolved"):
		return "closed"
	default:
		return ""
	}
}

func customerStatusOf(l string) string {
	switch {
	case containsAny(l, "disabled", "inactive", "deactivated"):
		return "disabled"
	case strings.Contains(l, "active"):
		return "active"
	default:
		return ""
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

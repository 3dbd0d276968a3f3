package router

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ticketIDPattern   = regexp.MustCompile(`(?i)\b(?:ticket|case)s?\s*(?:#|no\.?|number|id)?\s*:?\s*#?(\d+)\b`)
	hashIDPattern     = regexp.MustCompile(`#(\d+)\b`)
	customerIDPattern = regexp.MustCompile(`(?i)\b(?:customer|account|client)\s*(?:#|no\.?|number|id)?\s*:?\s*#?(\d+)\b`)
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern      = regexp.MustCompile(`\+?\d[\d\s().\-]{5,}\d`)
	namePattern       = regexp.MustCompile(`(?i)\bname\s+(?:to|=|as)\s+["']?([A-Za-z][A-Za-z .'\-]*[A-Za-z])`)
)

// identifiers holds everything pulled out of one clause.
type identifiers struct {
	TicketID   int64
	CustomerID int64
	Email      string
	Phone      string
	Name       string
}

func extractIdentifiers(clause string) identifiers {
	var ids identifiers

	if m := ticketIDPattern.FindStringSubmatch(clause); m != nil {
		ids.TicketID = parseID(m[1])
	}
	if m := customerIDPattern.FindStringSubmatch(clause); m != nil {
		ids.CustomerID = parseID(m[1])
	}
	if ids.TicketID == 0 && ids.CustomerID == 0 {
		if m := hashIDPattern.FindStringSubmatch(clause); m != nil {
			ids.TicketID = parseID(m[1])
		}
	}

	ids.Email = emailPattern.FindString(clause)

	// Only look for a phone number when the clause talks about one; bare
	// digits are usually ids.
	if strings.Contains(strings.ToLower(clause), "phone") {
		if m := phonePattern.FindString(clause); m != "" {
			ids.Phone = strings.TrimSpace(m)
		}
	}

	if m := namePattern.FindStringSubmatch(clause); m != nil {
		ids.Name = strings.TrimSpace(m[1])
	}
	return ids
}

func parseID(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}

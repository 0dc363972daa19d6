package quotes

import "fmt"

// InvalidTransitionError reports an attempt to move a quote along an edge the
// transition table does not contain. The quote row is left untouched.
type InvalidTransitionError struct {
	QuoteID int64
	From    Status
	To      Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("quotes: quote %d: illegal transition %s -> %s", e.QuoteID, e.From, e.To)
}

// NoOptionSelectedError reports an approval attempt without exactly one
// selected option.
type NoOptionSelectedError struct {
	QuoteID int64
}

func (e *NoOptionSelectedError) Error() string {
	return fmt.Sprintf("quotes: quote %d: approval requires exactly one selected option", e.QuoteID)
}

// transitions is the single authoritative table. Every status change in the
// codebase goes through CanTransition; no call site carries its own rules.
var transitions = map[Status]map[Status]bool{
	StatusDraft: {
		StatusSent: true,
		StatusVoid: true,
	},
	StatusSent: {
		StatusRevised:  true,
		StatusApproved: true,
		StatusExpired:  true,
		StatusVoid:     true,
		StatusOnHold:   true,
	},
	StatusRevised: {
		StatusSent:     true,
		StatusApproved: true,
		StatusVoid:     true,
	},
	StatusApproved: {
		StatusPaid:    true,
		StatusExpired: true,
		StatusVoid:    true,
		StatusOnHold:  true,
	},
	StatusOnHold: {
		// Resume edges; the dispute row remembers which one applies.
		StatusSent:     true,
		StatusApproved: true,
		StatusVoid:     true,
	},
	// paid, expired, void: terminal, no outgoing edges.
}

// CanTransition validates an edge of the lifecycle graph.
func CanTransition(quoteID int64, from, to Status) error {
	if allowed := transitions[from]; allowed[to] {
		return nil
	}
	return &InvalidTransitionError{QuoteID: quoteID, From: from, To: to}
}

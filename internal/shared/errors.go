package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNotApproved indicates the acting agent has not been approved yet.
	ErrNotApproved = errors.New("agent not approved")
	// ErrForbidden indicates the actor does not own the resource.
	ErrForbidden = errors.New("forbidden")
)

// Package bizerr defines the business-outcome error taxonomy shared by all
// services. An expected rejection (invalid transition, insufficient balance,
// overlapping booking, …) is an *Error carrying a stable Kind that callers and
// HTTP handlers branch on; the display message is separate so the frontend can
// localize it. Infrastructure faults (DB down, Redis down) are NOT wrapped in
// this package — they propagate as plain errors and surface as 500s.
package bizerr

import "errors"

// Kind identifies the category of a business rejection.
type Kind string

const (
	NotFound           Kind = "not_found"           // missing or soft-deleted record
	InvalidTransition  Kind = "invalid_transition"  // status change not in the allowed table
	PreconditionFailed Kind = "precondition_failed" // status-specific requirement not met
	InvalidArgument    Kind = "invalid_argument"    // bad amount, condition, or date range
	ExceedsBalance     Kind = "exceeds_balance"     // payment larger than remaining balance
	OutstandingBalance Kind = "outstanding_balance" // close attempted with money owed
	AlreadyTerminal    Kind = "already_terminal"    // mutation on a closed/canceled invoice
	Canceled           Kind = "canceled"            // ledger write on a canceled invoice
	Unauthorized       Kind = "unauthorized"        // privileged action without permission
)

// Error is a tagged business rejection with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// New builds a business rejection of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the Kind from err, or "" when err is not a business error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsKind reports whether err is a business error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

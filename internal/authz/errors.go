package authz

import "errors"

// Coded errors form the stable machine-readable taxonomy returned to calling
// route handlers. Codes never change without a review of every call site.
var (
	// ErrAuthRequired — no valid session; the caller must re-authenticate.
	ErrAuthRequired = &Error{Code: "AUTH_REQUIRED", Message: "authentication required"}

	// ErrOrgNotFound — authenticated principal has no organization membership.
	ErrOrgNotFound = &Error{Code: "ORG_NOT_FOUND", Message: "no organization context"}

	// ErrForbidden — the membership role lacks the required permission.
	ErrForbidden = &Error{Code: "FORBIDDEN", Message: "insufficient permissions"}

	// ErrAdminRequired — the operation is restricted to owner/admin roles.
	ErrAdminRequired = &Error{Code: "ADMIN_REQUIRED", Message: "administrator role required"}

	// ErrOrgMismatch — a fetched row belongs to a different organization.
	// Treated as a bug or attack signal and logged distinctly.
	ErrOrgMismatch = &Error{Code: "ORG_MISMATCH", Message: "resource not found"}

	// ErrSelfApproval — segregation-of-duties violation: the actor may not
	// approve work they performed themselves.
	ErrSelfApproval = &Error{Code: "SELF_APPROVAL", Message: "cannot approve your own submission"}

	// ErrRateLimited — a volume guard rejected the request; retryable after
	// the indicated window.
	ErrRateLimited = &Error{Code: "RATE_LIMITED", Message: "rate limit exceeded"}

	// ErrComplianceBlocked — an unresolved compliance gate blocks the action.
	ErrComplianceBlocked = &Error{Code: "COMPLIANCE_BLOCKED", Message: "action blocked by compliance gate"}
)

// Error is an authorization failure with a stable machine code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is makes errors.Is match on the code, so wrapped guard failures still
// compare equal to the sentinel values above.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// CodeOf extracts the machine code from an error chain, or "" when the error
// is not an authorization failure.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

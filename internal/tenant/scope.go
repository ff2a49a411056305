package tenant

import (
	"fmt"

	"formaos.io/internal/authz"
)

// Scoped is implemented by every entity carrying an organization id.
type Scoped interface {
	Scope() string
}

// VerifyScope re-checks at the data-access boundary that a fetched row
// belongs to the caller's organization. The stores already filter by
// organization id; this guards the case where a lookup by primary key alone
// slipped through.
func VerifyScope(ac authz.Context, e Scoped) error {
	if e == nil {
		return fmt.Errorf("verify scope: %w", ErrNotFound)
	}
	if e.Scope() == "" || ac.OrgID == "" || e.Scope() != ac.OrgID {
		return authz.ErrOrgMismatch
	}
	return nil
}

package httpapi

import (
	"net/http"
	"strings"
	"time"

	"formaos.io/internal/authz"
	"formaos.io/internal/tenant"
)

type createBlockRequest struct {
	GateKey string `json:"gate_key"`
	Reason  string `json:"reason"`
}

func (a *API) handleComplianceBlocks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermAuditViewOrgCompliance)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		gate := strings.TrimSpace(r.URL.Query().Get("gate"))
		blocks, err := a.store.ComplianceBlocks().ListUnresolved(r.Context(), ac.OrgID, gate)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"blocks": blocks})

	case http.MethodPost:
		ac, err := a.guard.RequireAdmin(r.Context(), authz.PermOrgManageSettings)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req createBlockRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		gate := strings.TrimSpace(req.GateKey)
		if gate == "" {
			writeError(w, r, http.StatusBadRequest, "", "gate_key is required")
			return
		}
		b := &tenant.ComplianceBlock{
			OrganizationID: ac.OrgID,
			GateKey:        gate,
			Reason:         req.Reason,
			CreatedBy:      ac.UserID,
		}
		if err := a.store.ComplianceBlocks().Create(r.Context(), b); err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "compliance_block", b.ID, "compliance.block.create", nil, b, req.Reason)
		writeJSON(w, http.StatusCreated, b)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleComplianceBlockResource resolves every open block for a gate:
// POST /v1/compliance/blocks/{gateKey}/resolve.
func (a *API) handleComplianceBlockResource(w http.ResponseWriter, r *http.Request) {
	gate, action := resourceID(r.URL.Path, "/v1/compliance/blocks/")
	if gate == "" || action != "resolve" || r.Method != http.MethodPost {
		writeError(w, r, http.StatusNotFound, "", "resource not found")
		return
	}

	ac, err := a.guard.RequireAdmin(r.Context(), authz.PermOrgManageSettings)
	if err != nil {
		writeAuthzError(w, r, err)
		return
	}

	open, err := a.store.ComplianceBlocks().ListUnresolved(r.Context(), ac.OrgID, gate)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if len(open) == 0 {
		writeError(w, r, http.StatusNotFound, "", "resource not found")
		return
	}
	// The person who raised a block does not get to clear it.
	for _, b := range open {
		if b.CreatedBy == ac.UserID {
			writeAuthzError(w, r, authz.ErrSelfApproval)
			return
		}
	}

	n, err := a.store.ComplianceBlocks().Resolve(r.Context(), ac.OrgID, gate, ac.UserID, time.Now().UTC())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.record(r, ac, "compliance_block", gate, "compliance.block.resolve", open, nil, "")
	writeJSON(w, http.StatusOK, map[string]any{"resolved": n})
}

// gateOpen reports whether an unresolved block guards the given gate.
func (a *API) gateOpen(r *http.Request, orgID, gateKey string) (bool, error) {
	blocks, err := a.store.ComplianceBlocks().ListUnresolved(r.Context(), orgID, gateKey)
	if err != nil {
		return false, err
	}
	return len(blocks) > 0, nil
}

package httpapi

import (
	"net/http"

	"formaos.io/internal/authz"
	"formaos.io/internal/ratelimit"
	"formaos.io/internal/tenant"
)

func (a *API) handleAuditEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ac, err := a.guard.Require(r.Context(), authz.PermAuditViewLogs)
	if err != nil {
		writeAuthzError(w, r, err)
		return
	}
	if a.auditLog == nil {
		writeError(w, r, http.StatusServiceUnavailable, "", "audit log unavailable")
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 50, 1, 500)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "", err.Error())
		return
	}
	events, err := a.auditLog.List(r.Context(), ac.OrgID, limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleAuditExport is the expensive full-history pull: rate limited,
// permission gated, and blocked outright while an AUDIT_EXPORT
// compliance gate is open.
func (a *API) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if res := a.limiter.Check(ratelimit.Export, clientIP(r), userIDFrom(r)); !res.Allowed {
		writeRateLimited(w, r, res, "export")
		return
	}
	ac, err := a.guard.Require(r.Context(), authz.PermAuditExportReports)
	if err != nil {
		writeAuthzError(w, r, err)
		return
	}
	blocked, err := a.gateOpen(r, ac.OrgID, tenant.GateAuditExport)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "", "internal error")
		return
	}
	if blocked {
		writeAuthzError(w, r, authz.ErrComplianceBlocked)
		return
	}
	if a.auditLog == nil {
		writeError(w, r, http.StatusServiceUnavailable, "", "audit log unavailable")
		return
	}
	events, err := a.auditLog.List(r.Context(), ac.OrgID, 500)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "", "internal error")
		return
	}
	a.record(r, ac, "audit_export", ac.OrgID, "audit.export", nil, map[string]any{"count": len(events)}, "")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-export.json"`)
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

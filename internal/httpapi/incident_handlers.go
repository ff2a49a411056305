package httpapi

import (
	"net/http"
	"strings"
	"time"

	"formaos.io/internal/authz"
	"formaos.io/internal/tenant"
)

type createIncidentRequest struct {
	Title    string `json:"title"`
	Severity string `json:"severity"`
}

type incidentStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleIncidents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermAuditViewOrgCompliance)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		incidents, err := a.store.Incidents().ListByOrg(r.Context(), ac.OrgID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"incidents": incidents})

	case http.MethodPost:
		ac, err := a.guard.Require(r.Context(), authz.PermTaskCreateOwn)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req createIncidentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			writeError(w, r, http.StatusBadRequest, "", "title is required")
			return
		}
		severity := strings.ToLower(strings.TrimSpace(req.Severity))
		switch severity {
		case "":
			severity = "low"
		case "low", "medium", "high", "critical":
		default:
			writeError(w, r, http.StatusBadRequest, "", "unknown severity")
			return
		}
		inc := &tenant.Incident{
			OrganizationID: ac.OrgID,
			Title:          req.Title,
			Severity:       severity,
			ReportedBy:     ac.UserID,
		}
		if err := a.store.Incidents().Create(r.Context(), inc); err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "incident", inc.ID, "incident.report", nil, inc, "")
		writeJSON(w, http.StatusCreated, inc)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleIncidentResource(w http.ResponseWriter, r *http.Request) {
	id, action := resourceID(r.URL.Path, "/v1/incidents/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "", "resource not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermAuditViewOrgCompliance)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		inc, err := a.store.Incidents().Find(r.Context(), ac.OrgID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if err := tenant.VerifyScope(ac, *inc); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, inc)

	case action == "status" && r.Method == http.MethodPut:
		ac, err := a.guard.Require(r.Context(), authz.PermTaskAssign)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req incidentStatusRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		switch req.Status {
		case tenant.IncidentOpen, tenant.IncidentInvestigating, tenant.IncidentResolved:
		default:
			writeError(w, r, http.StatusBadRequest, "", "unknown incident status")
			return
		}
		before, err := a.store.Incidents().Find(r.Context(), ac.OrgID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		inc, err := a.store.Incidents().SetStatus(r.Context(), ac.OrgID, id, req.Status, ac.UserID, time.Now().UTC())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "incident", inc.ID, "incident.status.update", before, inc, "")
		writeJSON(w, http.StatusOK, inc)

	default:
		writeError(w, r, http.StatusNotFound, "", "resource not found")
	}
}

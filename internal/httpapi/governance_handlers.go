package httpapi

import (
	"net/http"
	"strings"
	"time"

	"formaos.io/internal/authz"
	"formaos.io/internal/tenant"
)

type createPolicyRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type updatePolicyRequest struct {
	Title  *string `json:"title"`
	Body   *string `json:"body"`
	Status *string `json:"status"`
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssigneeID  string     `json:"assignee_id"`
	DueAt       *time.Time `json:"due_at"`
}

type assignTaskRequest struct {
	AssigneeID string `json:"assignee_id"`
}

func (a *API) handlePolicies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermAuditViewOrgCompliance)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		policies, err := a.store.Policies().ListByOrg(r.Context(), ac.OrgID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"policies": policies})

	case http.MethodPost:
		ac, err := a.guard.RequireAdmin(r.Context(), authz.PermOrgManageSettings)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req createPolicyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			writeError(w, r, http.StatusBadRequest, "", "title is required")
			return
		}
		p := &tenant.Policy{
			OrganizationID: ac.OrgID,
			Title:          req.Title,
			Body:           req.Body,
			CreatedBy:      ac.UserID,
		}
		if err := a.store.Policies().Create(r.Context(), p); err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "policy", p.ID, "policy.create", nil, p, "")
		writeJSON(w, http.StatusCreated, p)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePolicyResource(w http.ResponseWriter, r *http.Request) {
	id, action := resourceID(r.URL.Path, "/v1/policies/")
	if id == "" || action != "" {
		writeError(w, r, http.StatusNotFound, "", "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermAuditViewOrgCompliance)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		p, err := a.store.Policies().Find(r.Context(), ac.OrgID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if err := tenant.VerifyScope(ac, *p); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)

	case http.MethodPatch:
		ac, err := a.guard.RequireAdmin(r.Context(), authz.PermOrgManageSettings)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req updatePolicyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		if req.Status != nil {
			switch *req.Status {
			case tenant.PolicyDraft, tenant.PolicyPublished, tenant.PolicyArchived:
			default:
				writeError(w, r, http.StatusBadRequest, "", "unknown policy status")
				return
			}
		}
		before, err := a.store.Policies().Find(r.Context(), ac.OrgID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		p, err := a.store.Policies().Update(r.Context(), ac.OrgID, id, tenant.PolicyUpdate{
			Title: req.Title, Body: req.Body, Status: req.Status,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "policy", p.ID, "policy.update", before, p, "")
		writeJSON(w, http.StatusOK, p)

	case http.MethodDelete:
		ac, err := a.guard.RequireAdmin(r.Context(), authz.PermOrgManageSettings)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		before, err := a.store.Policies().Find(r.Context(), ac.OrgID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if err := a.store.Policies().Delete(r.Context(), ac.OrgID, id); err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "policy", id, "policy.delete", before, nil, "")
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermTaskViewOwn)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		tasks, err := a.store.Tasks().ListByOrg(r.Context(), ac.OrgID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		// Without task:view_all the listing narrows to the caller's tasks.
		if !authz.HasPermission(ac.Role, authz.PermTaskViewAll) {
			own := tasks[:0]
			for _, t := range tasks {
				if t.AssigneeID == ac.UserID || t.CreatedBy == ac.UserID {
					own = append(own, t)
				}
			}
			tasks = own
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})

	case http.MethodPost:
		ac, err := a.guard.Require(r.Context(), authz.PermTaskCreateOwn)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req createTaskRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			writeError(w, r, http.StatusBadRequest, "", "title is required")
			return
		}
		assignee := strings.TrimSpace(req.AssigneeID)
		if assignee != "" && assignee != ac.UserID {
			if _, err := a.guard.Require(r.Context(), authz.PermTaskCreateForOthers); err != nil {
				writeAuthzError(w, r, err)
				return
			}
		}
		t := &tenant.Task{
			OrganizationID: ac.OrgID,
			Title:          req.Title,
			Description:    req.Description,
			AssigneeID:     assignee,
			CreatedBy:      ac.UserID,
			DueAt:          req.DueAt,
		}
		if err := a.store.Tasks().Create(r.Context(), t); err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "task", t.ID, "task.create", nil, t, "")
		writeJSON(w, http.StatusCreated, t)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTaskResource(w http.ResponseWriter, r *http.Request) {
	id, action := resourceID(r.URL.Path, "/v1/tasks/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "", "resource not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermTaskViewOwn)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		t, err := a.store.Tasks().Find(r.Context(), ac.OrgID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if err := tenant.VerifyScope(ac, *t); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		if !authz.HasPermission(ac.Role, authz.PermTaskViewAll) &&
			t.AssigneeID != ac.UserID && t.CreatedBy != ac.UserID {
			writeError(w, r, http.StatusNotFound, "", "resource not found")
			return
		}
		writeJSON(w, http.StatusOK, t)

	case action == "assign" && r.Method == http.MethodPost:
		ac, err := a.guard.Require(r.Context(), authz.PermTaskAssign)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req assignTaskRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		before, err := a.store.Tasks().Find(r.Context(), ac.OrgID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		t, err := a.store.Tasks().Assign(r.Context(), ac.OrgID, id, strings.TrimSpace(req.AssigneeID))
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "task", t.ID, "task.assign", before, t, "")
		writeJSON(w, http.StatusOK, t)

	case action == "complete" && r.Method == http.MethodPost:
		ac, err := a.guard.Require(r.Context(), authz.PermTaskCompleteOwn)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		before, err := a.store.Tasks().Find(r.Context(), ac.OrgID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		// Completing someone else's task needs the assignment permission.
		if before.AssigneeID != ac.UserID && before.CreatedBy != ac.UserID {
			if _, err := a.guard.Require(r.Context(), authz.PermTaskAssign); err != nil {
				writeAuthzError(w, r, err)
				return
			}
		}
		t, err := a.store.Tasks().Complete(r.Context(), ac.OrgID, id, time.Now().UTC())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "task", t.ID, "task.complete", before, t, "")
		writeJSON(w, http.StatusOK, t)

	default:
		writeError(w, r, http.StatusNotFound, "", "resource not found")
	}
}

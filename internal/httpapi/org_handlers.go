package httpapi

import (
	"net/http"
	"strings"

	"formaos.io/internal/authz"
	"formaos.io/internal/tenant"
)

type updateOrgRequest struct {
	Name     string `json:"name"`
	PlanTier string `json:"plan_tier"`
}

type inviteMemberRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// handleOrg serves the caller's own organization: overview on GET,
// settings on PATCH. There is no way to address another tenant.
func (a *API) handleOrg(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermOrgViewOverview)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		org, err := a.store.Organizations().Find(r.Context(), ac.OrgID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, org)

	case http.MethodPatch:
		ac, err := a.guard.RequireAdmin(r.Context(), authz.PermOrgManageSettings)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req updateOrgRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		before, err := a.store.Organizations().Find(r.Context(), ac.OrgID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		org, err := a.store.Organizations().UpdateSettings(r.Context(), ac.OrgID, req.Name, req.PlanTier)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "organization", org.ID, "org.settings.update", before, org, "")
		writeJSON(w, http.StatusOK, org)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}

func (a *API) handleMembers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermTeamViewAllMembers)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		members, err := a.store.Memberships().ListByOrg(r.Context(), ac.OrgID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"members": members})

	case http.MethodPost:
		ac, err := a.guard.Require(r.Context(), authz.PermTeamInviteMembers)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req inviteMemberRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		req.UserID = strings.TrimSpace(req.UserID)
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.UserID == "" || req.Email == "" {
			writeError(w, r, http.StatusBadRequest, "", "user_id and email are required")
			return
		}
		role := authz.ParseRole(req.Role)
		if !role.Known() {
			writeError(w, r, http.StatusBadRequest, "", "unknown role")
			return
		}
		// Only admins hand out admin or owner seats.
		if role == authz.RoleAdmin || role == authz.RoleOwner {
			if _, err := a.guard.RequireAdmin(r.Context(), authz.PermTeamInviteMembers); err != nil {
				writeAuthzError(w, r, err)
				return
			}
		}
		m := &tenant.Membership{
			UserID:         req.UserID,
			OrganizationID: ac.OrgID,
			Email:          req.Email,
			Role:           string(role),
		}
		if err := a.store.Memberships().Create(r.Context(), m); err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "membership", m.UserID, "team.member.invite", nil, m, "")
		writeJSON(w, http.StatusCreated, m)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleMemberResource covers /v1/members/{userID} and
// /v1/members/{userID}/role.
func (a *API) handleMemberResource(w http.ResponseWriter, r *http.Request) {
	userID, action := resourceID(r.URL.Path, "/v1/members/")
	if userID == "" {
		writeError(w, r, http.StatusNotFound, "", "resource not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermTeamViewAllMembers)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		m, err := a.store.Memberships().Find(r.Context(), ac.OrgID, userID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if err := tenant.VerifyScope(ac, m); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, m)

	case action == "" && r.Method == http.MethodDelete:
		ac, err := a.guard.Require(r.Context(), authz.PermTeamRemoveMembers)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		if userID == ac.UserID {
			writeError(w, r, http.StatusConflict, "", "cannot remove your own membership")
			return
		}
		before, err := a.store.Memberships().Find(r.Context(), ac.OrgID, userID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if err := a.store.Memberships().Remove(r.Context(), ac.OrgID, userID); err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "membership", userID, "team.member.remove", before, nil, "")
		w.WriteHeader(http.StatusNoContent)

	case action == "role" && r.Method == http.MethodPut:
		ac, err := a.guard.Require(r.Context(), authz.PermTeamChangeRoles)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req changeRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		role := authz.ParseRole(req.Role)
		if !role.Known() {
			writeError(w, r, http.StatusBadRequest, "", "unknown role")
			return
		}
		if userID == ac.UserID {
			writeError(w, r, http.StatusConflict, "", "cannot change your own role")
			return
		}
		if role == authz.RoleAdmin || role == authz.RoleOwner {
			if _, err := a.guard.RequireAdmin(r.Context(), authz.PermTeamChangeRoles); err != nil {
				writeAuthzError(w, r, err)
				return
			}
		}
		before, err := a.store.Memberships().Find(r.Context(), ac.OrgID, userID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		m, err := a.store.Memberships().UpdateRole(r.Context(), ac.OrgID, userID, string(role))
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "membership", userID, "team.member.change_role", before, m, "")
		writeJSON(w, http.StatusOK, m)

	default:
		writeError(w, r, http.StatusNotFound, "", "resource not found")
	}
}

package httpapi

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"formaos.io/internal/authz"
	"formaos.io/internal/tenant"
)

type createCredentialRequest struct {
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	IssuedBy  string     `json:"issued_by"`
	Secret    string     `json:"secret"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type credentialStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleCredentials(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermCertViewOwn)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		creds, err := a.store.Credentials().ListByOrg(r.Context(), ac.OrgID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if !authz.HasPermission(ac.Role, authz.PermCertViewAll) {
			own := creds[:0]
			for _, c := range creds {
				if c.UserID == ac.UserID {
					own = append(own, c)
				}
			}
			creds = own
		}
		writeJSON(w, http.StatusOK, map[string]any{"credentials": creds})

	case http.MethodPost:
		ac, err := a.guard.Require(r.Context(), authz.PermCertCreate)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req createCredentialRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, r, http.StatusBadRequest, "", "name is required")
			return
		}
		userID := strings.TrimSpace(req.UserID)
		if userID == "" {
			userID = ac.UserID
		}
		c := &tenant.Credential{
			OrganizationID: ac.OrgID,
			UserID:         userID,
			Name:           req.Name,
			IssuedBy:       req.IssuedBy,
			ExpiresAt:      req.ExpiresAt,
		}
		if req.Secret != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), bcrypt.DefaultCost)
			if err != nil {
				writeError(w, r, http.StatusInternalServerError, "", "internal error")
				return
			}
			c.SecretHash = string(hash)
		}
		if err := a.store.Credentials().Create(r.Context(), c); err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "credential", c.ID, "cert.create", nil, c, "")
		writeJSON(w, http.StatusCreated, c)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCredentialResource(w http.ResponseWriter, r *http.Request) {
	id, action := resourceID(r.URL.Path, "/v1/credentials/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "", "resource not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermCertViewOwn)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		c, err := a.store.Credentials().Find(r.Context(), ac.OrgID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if err := tenant.VerifyScope(ac, *c); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		if !authz.HasPermission(ac.Role, authz.PermCertViewAll) && c.UserID != ac.UserID {
			writeError(w, r, http.StatusNotFound, "", "resource not found")
			return
		}
		writeJSON(w, http.StatusOK, c)

	case action == "status" && r.Method == http.MethodPut:
		ac, err := a.guard.Require(r.Context(), authz.PermCertEdit)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req credentialStatusRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		switch req.Status {
		case tenant.CredentialActive, tenant.CredentialExpired, tenant.CredentialRevoked:
		default:
			writeError(w, r, http.StatusBadRequest, "", "unknown credential status")
			return
		}
		before, err := a.store.Credentials().Find(r.Context(), ac.OrgID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		c, err := a.store.Credentials().SetStatus(r.Context(), ac.OrgID, id, req.Status)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "credential", c.ID, "cert.status.update", before, c, "")
		writeJSON(w, http.StatusOK, c)

	case action == "" && r.Method == http.MethodDelete:
		ac, err := a.guard.Require(r.Context(), authz.PermCertDelete)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		before, err := a.store.Credentials().Find(r.Context(), ac.OrgID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if err := a.store.Credentials().Delete(r.Context(), ac.OrgID, id); err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "credential", id, "cert.delete", before, nil, "")
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, r, http.StatusNotFound, "", "resource not found")
	}
}

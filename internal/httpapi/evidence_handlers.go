package httpapi

import (
	"net/http"
	"strings"
	"time"

	"formaos.io/internal/authz"
	"formaos.io/internal/ratelimit"
	"formaos.io/internal/tenant"
)

type uploadEvidenceRequest struct {
	TaskID   string `json:"task_id"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

type verifyEvidenceRequest struct {
	Reason string `json:"reason"`
}

func (a *API) handleEvidence(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermEvidenceViewOwn)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		items, err := a.store.Evidence().ListByOrg(r.Context(), ac.OrgID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if !authz.HasPermission(ac.Role, authz.PermEvidenceViewAll) {
			own := items[:0]
			for _, e := range items {
				if e.UploadedBy == ac.UserID {
					own = append(own, e)
				}
			}
			items = own
		}
		writeJSON(w, http.StatusOK, map[string]any{"evidence": items})

	case http.MethodPost:
		// Volume guard first: an over-limit caller learns nothing about
		// permissions or other tenants.
		if res := a.limiter.Check(ratelimit.Upload, clientIP(r), userIDFrom(r)); !res.Allowed {
			writeRateLimited(w, r, res, "upload")
			return
		}
		ac, err := a.guard.Require(r.Context(), authz.PermEvidenceUpload)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		var req uploadEvidenceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "", err.Error())
			return
		}
		if strings.TrimSpace(req.FileName) == "" || strings.TrimSpace(req.FilePath) == "" {
			writeError(w, r, http.StatusBadRequest, "", "file_name and file_path are required")
			return
		}
		if req.TaskID != "" {
			// The referenced task must live in the caller's org.
			if _, err := a.store.Tasks().Find(r.Context(), ac.OrgID, req.TaskID); err != nil {
				writeStoreError(w, r, err)
				return
			}
		}
		e := &tenant.Evidence{
			OrganizationID: ac.OrgID,
			TaskID:         req.TaskID,
			FileName:       req.FileName,
			FilePath:       req.FilePath,
			FileType:       req.FileType,
			FileSize:       req.FileSize,
			UploadedBy:     ac.UserID,
		}
		if err := a.store.Evidence().Create(r.Context(), e); err != nil {
			writeStoreError(w, r, err)
			return
		}
		a.record(r, ac, "evidence", e.ID, "evidence.upload", nil, e, "")
		writeJSON(w, http.StatusCreated, e)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEvidenceResource(w http.ResponseWriter, r *http.Request) {
	id, action := resourceID(r.URL.Path, "/v1/evidence/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "", "resource not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		ac, err := a.guard.Require(r.Context(), authz.PermEvidenceViewOwn)
		if err != nil {
			writeAuthzError(w, r, err)
			return
		}
		e, err := a.store.Evidence().Find(r.Context(), ac.OrgID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if err := tenant.VerifyScope(ac, *e); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		if !authz.HasPermission(ac.Role, authz.PermEvidenceViewAll) && e.UploadedBy != ac.UserID {
			writeError(w, r, http.StatusNotFound, "", "resource not found")
			return
		}
		writeJSON(w, http.StatusOK, e)

	case action == "verify" && r.Method == http.MethodPost:
		a.setEvidenceVerification(w, r, id, tenant.EvidenceVerified, authz.PermEvidenceApprove, "evidence.verify")

	case action == "reject" && r.Method == http.MethodPost:
		a.setEvidenceVerification(w, r, id, tenant.EvidenceRejected, authz.PermEvidenceReject, "evidence.reject")

	default:
		writeError(w, r, http.StatusNotFound, "", "resource not found")
	}
}

// setEvidenceVerification runs the shared approve/reject path. The
// uploader can never pass verdict on their own submission, whatever
// their role.
func (a *API) setEvidenceVerification(w http.ResponseWriter, r *http.Request, id, status string, perm authz.Permission, action string) {
	ac, err := a.guard.Require(r.Context(), perm)
	if err != nil {
		writeAuthzError(w, r, err)
		return
	}
	var req verifyEvidenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "", err.Error())
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, r, http.StatusBadRequest, "", "reason is required")
		return
	}
	before, err := a.store.Evidence().Find(r.Context(), ac.OrgID, id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if err := tenant.VerifyScope(ac, *before); err != nil {
		writeAuthzError(w, r, err)
		return
	}
	if before.UploadedBy == ac.UserID {
		writeAuthzError(w, r, authz.ErrSelfApproval)
		return
	}
	e, err := a.store.Evidence().SetVerification(r.Context(), ac.OrgID, id, status, ac.UserID, time.Now().UTC())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.record(r, ac, "evidence", e.ID, action, before, e, req.Reason)
	writeJSON(w, http.StatusOK, e)
}

// userIDFrom extracts the authenticated user id for rate-limit keying,
// before any guard has run.
func userIDFrom(r *http.Request) string {
	if p, ok := authz.PrincipalFromContext(r.Context()); ok {
		return p.UserID
	}
	return ""
}

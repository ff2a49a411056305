package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"formaos.io/internal/authz"
	"formaos.io/internal/obs"
	"formaos.io/internal/ratelimit"
	"formaos.io/internal/tenant"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders the error contract: {error, code, request_id}.
// The machine code is omitted when there is none.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if code != "" {
		payload["code"] = code
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, status, payload)
}

// writeAuthzError maps guard failures onto HTTP statuses. Scope
// mismatches deliberately render as a plain not-found so another
// tenant's ids are indistinguishable from random ones.
func writeAuthzError(w http.ResponseWriter, r *http.Request, err error) {
	code := authz.CodeOf(err)
	if code != "" {
		obs.IncAuthzDenial(code)
	}
	switch {
	case errors.Is(err, authz.ErrAuthRequired):
		writeError(w, r, http.StatusUnauthorized, code, err.Error())
	case errors.Is(err, authz.ErrOrgNotFound):
		writeError(w, r, http.StatusForbidden, code, authz.ErrOrgNotFound.Message)
	case errors.Is(err, authz.ErrForbidden), errors.Is(err, authz.ErrAdminRequired):
		writeError(w, r, http.StatusForbidden, code, err.Error())
	case errors.Is(err, authz.ErrOrgMismatch):
		obs.IncOrgMismatch()
		writeError(w, r, http.StatusNotFound, "", "resource not found")
	case errors.Is(err, authz.ErrSelfApproval):
		writeError(w, r, http.StatusConflict, code, err.Error())
	case errors.Is(err, authz.ErrRateLimited):
		writeError(w, r, http.StatusTooManyRequests, code, err.Error())
	case errors.Is(err, authz.ErrComplianceBlocked):
		writeError(w, r, http.StatusConflict, code, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "", "internal error")
	}
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tenant.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "", err.Error())
	case errors.Is(err, tenant.ErrConflict):
		writeError(w, r, http.StatusConflict, "", err.Error())
	case errors.Is(err, tenant.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "", "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "", "internal error")
	}
}

// writeRateLimited renders a 429 with the standard retry headers.
func writeRateLimited(w http.ResponseWriter, r *http.Request, res ratelimit.Result, scope string) {
	obs.IncRateLimited(scope)
	obs.IncAuthzDenial(authz.ErrRateLimited.Code)
	w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", "0")
	writeError(w, r, http.StatusTooManyRequests, authz.ErrRateLimited.Code, authz.ErrRateLimited.Message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "", "method not allowed")
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit out of range")
	}
	return val, nil
}

// resourceID splits "/v1/<collection>/<id>[/<action>]" into id and action.
func resourceID(path, prefix string) (id, action string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action
}

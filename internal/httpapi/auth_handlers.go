package httpapi

import (
	"net/http"
	"strings"
	"time"

	"formaos.io/internal/audit"
	"formaos.io/internal/ratelimit"
	"formaos.io/internal/session"
)

type tokenRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

const tokenTTL = 15 * time.Minute

// handleAuthToken mints a session token. The endpoint itself proves
// nothing about org membership; the guard resolves that per request.
func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	if res := a.limiter.Check(ratelimit.Auth, clientIP(r), ""); !res.Allowed {
		writeRateLimited(w, r, res, "auth")
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "", err.Error())
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, "", "user_id is required")
		return
	}

	token, err := session.GenerateToken(userID, req.Email, tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "", "token generation failed")
		return
	}

	expiresAt := time.Now().UTC().Add(tokenTTL)
	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"user_id":    userID,
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

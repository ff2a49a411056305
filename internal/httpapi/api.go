// Package httpapi is the HTTP surface of the service. Every mutating
// route follows the same order: volume guard, permission guard, scoped
// store call, audit record, response.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"formaos.io/api/spec"
	"formaos.io/internal/audit"
	"formaos.io/internal/authz"
	"formaos.io/internal/obs"
	"formaos.io/internal/ratelimit"
	"formaos.io/internal/stream"
	"formaos.io/internal/tenant"
)

// ReadyProbe checks external dependencies for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API's collaborators.
type Config struct {
	Guard      *authz.Guard
	Store      tenant.Store
	Recorder   *audit.Recorder
	AuditLog   audit.Reader
	Limiter    *ratelimit.Limiter
	Stream     *stream.Stream
	ReadyProbe ReadyProbe
	Version    string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	guard      *authz.Guard
	store      tenant.Store
	recorder   *audit.Recorder
	auditLog   audit.Reader
	limiter    *ratelimit.Limiter
	stream     *stream.Stream
	readyProbe ReadyProbe
	version    string

	rateBurst  int
	ratePerSec int
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		guard:      cfg.Guard,
		store:      cfg.Store,
		recorder:   cfg.Recorder,
		auditLog:   cfg.AuditLog,
		limiter:    cfg.Limiter,
		stream:     cfg.Stream,
		readyProbe: cfg.ReadyProbe,
		version:    cfg.Version,
		rateBurst:  50,
		ratePerSec: 25,
	}
	if a.limiter == nil {
		a.limiter = ratelimit.New()
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// OpenAPI YAML
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// session
	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	// tenant surface
	a.mux.HandleFunc("/v1/org", a.handleOrg)
	a.mux.HandleFunc("/v1/members", a.handleMembers)
	a.mux.HandleFunc("/v1/members/", a.handleMemberResource)
	a.mux.HandleFunc("/v1/policies", a.handlePolicies)
	a.mux.HandleFunc("/v1/policies/", a.handlePolicyResource)
	a.mux.HandleFunc("/v1/tasks", a.handleTasks)
	a.mux.HandleFunc("/v1/tasks/", a.handleTaskResource)
	a.mux.HandleFunc("/v1/evidence", a.handleEvidence)
	a.mux.HandleFunc("/v1/evidence/", a.handleEvidenceResource)
	a.mux.HandleFunc("/v1/credentials", a.handleCredentials)
	a.mux.HandleFunc("/v1/credentials/", a.handleCredentialResource)
	a.mux.HandleFunc("/v1/incidents", a.handleIncidents)
	a.mux.HandleFunc("/v1/incidents/", a.handleIncidentResource)
	a.mux.HandleFunc("/v1/compliance/blocks", a.handleComplianceBlocks)
	a.mux.HandleFunc("/v1/compliance/blocks/", a.handleComplianceBlockResource)
	a.mux.HandleFunc("/v1/audit/events", a.handleAuditEvents)
	a.mux.HandleFunc("/v1/audit/export", a.handleAuditExport)
	a.mux.HandleFunc("/v1/audit/stream", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.windowLimit(a.mux))
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// windowLimit applies the fixed-window quotas across the routed surface:
// versioned routes share the API window, everything else the General one.
// The token mint runs its own tighter window inside the handler, and the
// upload and export routes layer their windows on top of this one.
func (a *API) windowLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || r.URL.Path == "/v1/auth/token" {
			next.ServeHTTP(w, r)
			return
		}
		window, scope := ratelimit.General, "general"
		if strings.HasPrefix(r.URL.Path, "/v1/") {
			window, scope = ratelimit.API, "api"
		}
		res := a.limiter.Check(window, clientIP(r), userIDFrom(r))
		if !res.Allowed {
			writeRateLimited(w, r, res, scope)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		next.ServeHTTP(w, r)
	})
}

// --- service handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "formaos-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	// Status peeks at the caller's API window without consuming it.
	quota := a.limiter.Status(ratelimit.API, clientIP(r), userIDFrom(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "formaos-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
		"rate": map[string]any{
			"limit":     quota.Limit,
			"remaining": quota.Remaining,
			"reset_at":  quota.ResetAt.UTC().Format(time.RFC3339),
		},
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

// record writes the audit trail for a committed mutation and publishes
// the matching live event. Both are best effort.
func (a *API) record(r *http.Request, ac authz.Context, entityType, entityID, action string, before, after any, reason string) {
	a.recorder.Record(r.Context(), audit.Record{
		OrganizationID: ac.OrgID,
		ActorUserID:    ac.UserID,
		ActorRole:      string(ac.Role),
		EntityType:     entityType,
		EntityID:       entityID,
		ActionType:     action,
		Before:         audit.Snapshot(before),
		After:          audit.Snapshot(after),
		Reason:         reason,
	})
	if a.stream != nil {
		a.stream.Publish(stream.Event{
			OrganizationID: ac.OrgID,
			EntityType:     entityType,
			EntityID:       entityID,
			ActionType:     action,
			ActorUserID:    ac.UserID,
		})
	}
}

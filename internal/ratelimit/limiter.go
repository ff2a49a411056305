// Package ratelimit implements fixed-window volume guards applied to
// mutating operations before any authorization work happens.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Spec describes one fixed window. All requests sharing a key within
// Window count against MaxRequests; the window then resets in full.
type Spec struct {
	Window      time.Duration
	MaxRequests int
	KeyPrefix   string
}

// Guard specs. Auth is deliberately tight to slow credential stuffing;
// Export throttles the expensive report path.
var (
	Auth    = Spec{Window: 15 * time.Minute, MaxRequests: 10, KeyPrefix: "rl:auth"}
	API     = Spec{Window: time.Minute, MaxRequests: 100, KeyPrefix: "rl:api"}
	General = Spec{Window: time.Minute, MaxRequests: 200, KeyPrefix: "rl:gen"}
	Upload  = Spec{Window: time.Minute, MaxRequests: 20, KeyPrefix: "rl:upload"}
	Export  = Spec{Window: 10 * time.Minute, MaxRequests: 5, KeyPrefix: "rl:export"}
)

// Result reports the outcome of one check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter is an in-memory fixed-window counter. Counters are keyed by
// user id when known, falling back to the caller-supplied identifier
// (normally the client IP) for unauthenticated traffic.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func New() *Limiter {
	return NewWithClock(time.Now)
}

// NewWithClock injects the time source. Tests use a fake clock to walk
// across window boundaries.
func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{entries: make(map[string]*entry), now: now}
}

func key(spec Spec, identifier, userID string) string {
	if strings.TrimSpace(userID) != "" {
		return spec.KeyPrefix + ":user:" + userID
	}
	return spec.KeyPrefix + ":ip:" + identifier
}

// Check consumes one request from the window and reports whether it
// was within the limit.
func (l *Limiter) Check(spec Spec, identifier, userID string) Result {
	k := key(spec, identifier, userID)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	e, ok := l.entries[k]
	if !ok || !e.resetAt.After(now) {
		e = &entry{resetAt: now.Add(spec.Window)}
		l.entries[k] = e
	}
	e.count++

	res := Result{
		Limit:   spec.MaxRequests,
		ResetAt: e.resetAt,
	}
	if e.count <= spec.MaxRequests {
		res.Allowed = true
		res.Remaining = spec.MaxRequests - e.count
		return res
	}
	res.RetryAfter = e.resetAt.Sub(now)
	return res
}

// Status peeks at the window without consuming a request.
func (l *Limiter) Status(spec Spec, identifier, userID string) Result {
	k := key(spec, identifier, userID)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[k]
	if !ok || !e.resetAt.After(now) {
		return Result{Allowed: true, Limit: spec.MaxRequests, Remaining: spec.MaxRequests, ResetAt: now.Add(spec.Window)}
	}
	res := Result{
		Allowed:   e.count < spec.MaxRequests,
		Limit:     spec.MaxRequests,
		Remaining: spec.MaxRequests - e.count,
		ResetAt:   e.resetAt,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = e.resetAt.Sub(now)
	}
	return res
}

// sweep drops expired windows. Called under l.mu.
func (l *Limiter) sweep(now time.Time) {
	for k, e := range l.entries {
		if !e.resetAt.After(now) {
			delete(l.entries, k)
		}
	}
}

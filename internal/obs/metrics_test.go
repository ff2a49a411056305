package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                            "/",
		"/metrics":                    "/metrics",
		"/v1/policies/abc":            "/v1/policies/:id",
		"/v1/evidence/abc/verify":     "/v1/evidence/:id/verify",
		"/v1/tasks/abc":               "/v1/tasks/:id",
		"/v1/compliance/blocks/abc":   "/v1/compliance/blocks/:id",
		"/v1/audit/events":            "/v1/audit/events",
		"/v1/audit/events?limit=10":   "/v1/audit/events",
		"/v1/members/u1/role":         "/v1/members/:id/role",
		"/v1/credentials/abc/extra/x": "/v1/credentials/abc/extra/x",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

package httpapi

import (
	"net/http"
	"net/url"
	"testing"

	"formaos.io/internal/audit"
	"formaos.io/internal/tenant"
)

// twoOrgs seeds a pair of tenants with the usual cast: acme has an
// owner, an admin, a manager, a member and a viewer; globex has its
// own admin.
func twoOrgs(t *testing.T) *apiClient {
	t.Helper()
	api := newTestAPI(t)
	api.seedOrg("org-acme", "Acme Compliance")
	api.seedOrg("org-globex", "Globex")
	api.seedMember("org-acme", "acme-owner", "owner")
	api.seedMember("org-acme", "acme-admin", "admin")
	api.seedMember("org-acme", "acme-manager", "manager")
	api.seedMember("org-acme", "acme-member", "member")
	api.seedMember("org-acme", "acme-viewer", "viewer")
	api.seedMember("org-globex", "globex-admin", "admin")
	return api
}

func TestInsufficientRoleIsForbidden(t *testing.T) {
	api := twoOrgs(t)

	// Viewers cannot upload evidence.
	resp := api.do(http.MethodPost, "/v1/evidence", map[string]any{
		"file_name": "soc2.pdf",
		"file_path": "/uploads/soc2.pdf",
	}, api.token("acme-viewer"))
	errBody := decode[errorBody](t, resp)
	if resp.StatusCode != http.StatusForbidden || errBody.Code != "FORBIDDEN" {
		t.Fatalf("viewer upload: expected 403 FORBIDDEN, got %d %q", resp.StatusCode, errBody.Code)
	}

	// Managers cannot change roles.
	resp = api.do(http.MethodPut, "/v1/members/acme-member/role", map[string]any{"role": "viewer"}, api.token("acme-manager"))
	errBody = decode[errorBody](t, resp)
	if resp.StatusCode != http.StatusForbidden || errBody.Code != "FORBIDDEN" {
		t.Fatalf("manager role change: expected 403 FORBIDDEN, got %d %q", resp.StatusCode, errBody.Code)
	}

	// Managers cannot touch org settings either.
	resp = api.do(http.MethodPatch, "/v1/org", map[string]any{"name": "Evil Corp"}, api.token("acme-manager"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("manager org patch: expected 403, got %d", resp.StatusCode)
	}
}

func TestAdminSeatsNeedAdminInviter(t *testing.T) {
	api := twoOrgs(t)

	// A manager may invite ordinary members.
	resp := api.do(http.MethodPost, "/v1/members", map[string]any{
		"user_id": "new-member", "email": "new@example.com", "role": "member",
	}, api.token("acme-manager"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("manager invites member: expected 201, got %d", resp.StatusCode)
	}

	// But not admins.
	resp = api.do(http.MethodPost, "/v1/members", map[string]any{
		"user_id": "new-admin", "email": "na@example.com", "role": "admin",
	}, api.token("acme-manager"))
	errBody := decode[errorBody](t, resp)
	if resp.StatusCode != http.StatusForbidden || errBody.Code != "ADMIN_REQUIRED" {
		t.Fatalf("manager invites admin: expected 403 ADMIN_REQUIRED, got %d %q", resp.StatusCode, errBody.Code)
	}

	resp = api.do(http.MethodPost, "/v1/members", map[string]any{
		"user_id": "new-admin", "email": "na@example.com", "role": "admin",
	}, api.token("acme-admin"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin invites admin: expected 201, got %d", resp.StatusCode)
	}
}

func TestSelfServiceMembershipChangesRejected(t *testing.T) {
	api := twoOrgs(t)
	token := api.token("acme-admin")

	resp := api.do(http.MethodPut, "/v1/members/acme-admin/role", map[string]any{"role": "viewer"}, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("self role change: expected 409, got %d", resp.StatusCode)
	}

	resp = api.do(http.MethodDelete, "/v1/members/acme-admin", nil, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("self removal: expected 409, got %d", resp.StatusCode)
	}
}

func TestCrossTenantResourceLooksMissing(t *testing.T) {
	api := twoOrgs(t)

	// A policy created inside acme.
	resp := api.do(http.MethodPost, "/v1/policies", map[string]any{
		"title": "Data retention", "body": "Keep for 7 years.",
	}, api.token("acme-admin"))
	policy := decode[tenant.Policy](t, resp)
	if resp.StatusCode != http.StatusCreated || policy.ID == "" {
		t.Fatalf("create policy: %d %+v", resp.StatusCode, policy)
	}

	// Globex cannot see it by id. The body is a plain not-found with no
	// mismatch code, so the probe confirms nothing.
	resp = api.get("/v1/policies/"+policy.ID, nil, api.token("globex-admin"))
	errBody := decode[errorBody](t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-tenant fetch: expected 404, got %d", resp.StatusCode)
	}
	if errBody.Code != "" {
		t.Fatalf("cross-tenant fetch leaked code %q", errBody.Code)
	}

	// Nor in a listing.
	resp = api.get("/v1/policies", nil, api.token("globex-admin"))
	listing := decode[map[string][]tenant.Policy](t, resp)
	if len(listing["policies"]) != 0 {
		t.Fatalf("cross-tenant listing leaked %d policies", len(listing["policies"]))
	}

	// Acme still sees its own.
	resp = api.get("/v1/policies/"+policy.ID, nil, api.token("acme-admin"))
	got := decode[tenant.Policy](t, resp)
	if resp.StatusCode != http.StatusOK || got.ID != policy.ID {
		t.Fatalf("same-tenant fetch: %d %+v", resp.StatusCode, got)
	}
}

func TestUploaderCannotVerifyOwnEvidence(t *testing.T) {
	api := twoOrgs(t)
	managerToken := api.token("acme-manager")

	resp := api.do(http.MethodPost, "/v1/evidence", map[string]any{
		"file_name": "pentest.pdf",
		"file_path": "/uploads/pentest.pdf",
	}, managerToken)
	ev := decode[tenant.Evidence](t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d", resp.StatusCode)
	}

	verifyBody := map[string]any{"reason": "reviewed annex A"}
	resp = api.do(http.MethodPost, "/v1/evidence/"+ev.ID+"/verify", verifyBody, managerToken)
	errBody := decode[errorBody](t, resp)
	if resp.StatusCode != http.StatusConflict || errBody.Code != "SELF_APPROVAL" {
		t.Fatalf("self verify: expected 409 SELF_APPROVAL, got %d %q", resp.StatusCode, errBody.Code)
	}

	// A different reviewer passes.
	resp = api.do(http.MethodPost, "/v1/evidence/"+ev.ID+"/verify", verifyBody, api.token("acme-admin"))
	verified := decode[tenant.Evidence](t, resp)
	if resp.StatusCode != http.StatusOK || verified.VerificationStatus != tenant.EvidenceVerified {
		t.Fatalf("admin verify: %d %+v", resp.StatusCode, verified)
	}
	if verified.VerifiedBy != "acme-admin" {
		t.Fatalf("verified_by = %q, want acme-admin", verified.VerifiedBy)
	}
}

func TestEvidenceVerifyRequiresReason(t *testing.T) {
	api := twoOrgs(t)

	resp := api.do(http.MethodPost, "/v1/evidence", map[string]any{
		"file_name": "cert.pdf",
		"file_path": "/uploads/cert.pdf",
	}, api.token("acme-member"))
	ev := decode[tenant.Evidence](t, resp)

	resp = api.do(http.MethodPost, "/v1/evidence/"+ev.ID+"/reject", map[string]any{}, api.token("acme-manager"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reject without reason: expected 400, got %d", resp.StatusCode)
	}
}

func TestUploadRateLimitBoundary(t *testing.T) {
	api := twoOrgs(t)
	token := api.token("acme-member")

	body := map[string]any{"file_name": "log.txt", "file_path": "/uploads/log.txt"}
	for i := 1; i <= 20; i++ {
		resp := api.do(http.MethodPost, "/v1/evidence", body, token)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("upload %d should pass, got %d", i, resp.StatusCode)
		}
	}

	resp := api.do(http.MethodPost, "/v1/evidence", body, token)
	errBody := decode[errorBody](t, resp)
	if resp.StatusCode != http.StatusTooManyRequests || errBody.Code != "RATE_LIMITED" {
		t.Fatalf("21st upload: expected 429 RATE_LIMITED, got %d %q", resp.StatusCode, errBody.Code)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if resp.Header.Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 0", resp.Header.Get("X-RateLimit-Remaining"))
	}
}

func TestMutationsLandInTheAuditTrail(t *testing.T) {
	api := twoOrgs(t)

	resp := api.do(http.MethodPost, "/v1/policies", map[string]any{"title": "Access control"}, api.token("acme-admin"))
	policy := decode[tenant.Policy](t, resp)

	resp = api.get("/v1/audit/events", url.Values{"limit": {"10"}}, api.token("acme-admin"))
	events := decode[map[string][]audit.Record](t, resp)["events"]
	if len(events) == 0 {
		t.Fatal("no audit events recorded")
	}
	latest := events[0]
	if latest.ActionType != "policy.create" || latest.EntityID != policy.ID {
		t.Fatalf("latest event = %s/%s, want policy.create/%s", latest.ActionType, latest.EntityID, policy.ID)
	}
	if latest.ActorUserID != "acme-admin" || latest.OrganizationID != "org-acme" {
		t.Fatalf("actor/org = %s/%s", latest.ActorUserID, latest.OrganizationID)
	}
	if latest.RequestID == "" {
		t.Fatal("audit event missing request id")
	}

	// The trail is tenant scoped: globex sees none of it.
	resp = api.get("/v1/audit/events", nil, api.token("globex-admin"))
	other := decode[map[string][]audit.Record](t, resp)["events"]
	if len(other) != 0 {
		t.Fatalf("globex sees %d foreign events", len(other))
	}
}

func TestAuditExportBlockedByOpenGate(t *testing.T) {
	api := twoOrgs(t)
	adminToken := api.token("acme-admin")
	ownerToken := api.token("acme-owner")

	// Member lacks the export permission outright.
	resp := api.get("/v1/audit/export", nil, api.token("acme-member"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member export: expected 403, got %d", resp.StatusCode)
	}

	// Managers hold audit:export_reports, so an ungated export flows.
	resp = api.get("/v1/audit/export", nil, api.token("acme-manager"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("manager export: expected 200, got %d", resp.StatusCode)
	}

	// Admin raises a block on the export gate.
	resp = api.do(http.MethodPost, "/v1/compliance/blocks", map[string]any{
		"gate_key": tenant.GateAuditExport,
		"reason":   "evidence review incomplete",
	}, adminToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create block: expected 201, got %d", resp.StatusCode)
	}

	resp = api.get("/v1/audit/export", nil, adminToken)
	errBody := decode[errorBody](t, resp)
	if resp.StatusCode != http.StatusConflict || errBody.Code != "COMPLIANCE_BLOCKED" {
		t.Fatalf("gated export: expected 409 COMPLIANCE_BLOCKED, got %d %q", resp.StatusCode, errBody.Code)
	}

	// The admin who raised the block cannot clear it.
	resp = api.do(http.MethodPost, "/v1/compliance/blocks/"+tenant.GateAuditExport+"/resolve", nil, adminToken)
	errBody = decode[errorBody](t, resp)
	if resp.StatusCode != http.StatusConflict || errBody.Code != "SELF_APPROVAL" {
		t.Fatalf("self resolve: expected 409 SELF_APPROVAL, got %d %q", resp.StatusCode, errBody.Code)
	}

	// The owner can.
	resp = api.do(http.MethodPost, "/v1/compliance/blocks/"+tenant.GateAuditExport+"/resolve", nil, ownerToken)
	resolved := decode[map[string]int](t, resp)
	if resp.StatusCode != http.StatusOK || resolved["resolved"] != 1 {
		t.Fatalf("owner resolve: %d %v", resp.StatusCode, resolved)
	}

	// Export flows once the gate is clear.
	resp = api.get("/v1/audit/export", nil, adminToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export after resolve: expected 200, got %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd == "" {
		t.Fatal("expected Content-Disposition on export")
	}
}

func TestTaskViewNarrowsToOwnForMembers(t *testing.T) {
	api := twoOrgs(t)

	// Manager creates one task for the member and one for the viewer.
	managerToken := api.token("acme-manager")
	resp := api.do(http.MethodPost, "/v1/tasks", map[string]any{
		"title": "Collect SOC2 evidence", "assignee_id": "acme-member",
	}, managerToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task: expected 201, got %d", resp.StatusCode)
	}
	resp = api.do(http.MethodPost, "/v1/tasks", map[string]any{
		"title": "Review access list", "assignee_id": "acme-viewer",
	}, managerToken)
	resp.Body.Close()

	// The member sees only their own task.
	resp = api.get("/v1/tasks", nil, api.token("acme-member"))
	tasks := decode[map[string][]tenant.Task](t, resp)["tasks"]
	if len(tasks) != 1 || tasks[0].AssigneeID != "acme-member" {
		t.Fatalf("member listing = %+v, want exactly their own task", tasks)
	}

	// The manager sees both.
	resp = api.get("/v1/tasks", nil, managerToken)
	tasks = decode[map[string][]tenant.Task](t, resp)["tasks"]
	if len(tasks) != 2 {
		t.Fatalf("manager listing has %d tasks, want 2", len(tasks))
	}

	// A member cannot assign tasks to others.
	resp = api.do(http.MethodPost, "/v1/tasks", map[string]any{
		"title": "Shadow work", "assignee_id": "acme-viewer",
	}, api.token("acme-member"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member assigning others: expected 403, got %d", resp.StatusCode)
	}
}

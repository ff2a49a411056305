package authz

import "testing"

func TestParseRoleFailsClosed(t *testing.T) {
	cases := map[string]Role{
		"owner":     RoleOwner,
		" Admin ":   RoleAdmin,
		"MANAGER":   RoleManager,
		"member":    RoleMember,
		"viewer":    RoleViewer,
		"":          RoleUnknown,
		"superuser": RoleUnknown,
		"root":      RoleUnknown,
	}
	for in, want := range cases {
		if got := ParseRole(in); got != want {
			t.Fatalf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPermissionTableIsTotal(t *testing.T) {
	for _, role := range Roles {
		if _, ok := rolePermissions[role]; !ok {
			t.Fatalf("role %q has no entry in the capability table", role)
		}
		// Every pairing must be deterministic, never panic.
		for _, perm := range Permissions {
			_ = HasPermission(role, perm)
		}
	}
}

func TestUnknownRoleHasNoPermissions(t *testing.T) {
	for _, perm := range Permissions {
		if HasPermission(RoleUnknown, perm) {
			t.Fatalf("unknown role granted %q", perm)
		}
		if HasPermission(Role("superadmin"), perm) {
			t.Fatalf("unrecognised role granted %q", perm)
		}
	}
	if perms := PermissionsFor(RoleUnknown); len(perms) != 0 {
		t.Fatalf("expected empty permission set, got %v", perms)
	}
}

func TestOwnerHasEveryPermission(t *testing.T) {
	for _, perm := range Permissions {
		if !HasPermission(RoleOwner, perm) {
			t.Fatalf("owner missing %q", perm)
		}
	}
}

func TestRoleBoundaries(t *testing.T) {
	if HasPermission(RoleAdmin, PermBillingManage) {
		t.Fatal("admin must not manage billing")
	}
	if HasPermission(RoleManager, PermOrgManageSettings) {
		t.Fatal("manager must not manage org settings")
	}
	if HasPermission(RoleManager, PermCertDelete) {
		t.Fatal("manager must not delete certificates")
	}
	if !HasPermission(RoleManager, PermEvidenceApprove) {
		t.Fatal("manager should approve evidence")
	}
	if !HasPermission(RoleManager, PermAuditExportReports) {
		t.Fatal("manager should export audit reports")
	}
	if HasPermission(RoleMember, PermEvidenceApprove) {
		t.Fatal("member must not approve evidence")
	}
	if !HasPermission(RoleMember, PermEvidenceUpload) {
		t.Fatal("member should upload evidence")
	}
	if HasPermission(RoleViewer, PermEvidenceUpload) {
		t.Fatal("viewer must not upload evidence")
	}
}

func TestPermissionsForReturnsCopy(t *testing.T) {
	perms := PermissionsFor(RoleViewer)
	if len(perms) == 0 {
		t.Fatal("viewer permission set should not be empty")
	}
	perms[0] = Permission("mutated")
	again := PermissionsFor(RoleViewer)
	if again[0] == Permission("mutated") {
		t.Fatal("PermissionsFor leaked internal slice")
	}
}

package authz

// Permission is a named capability checked by the guard. The set is closed;
// adding a key is a breaking change that requires reviewing every call site.
type Permission string

const (
	// Organization
	PermOrgViewOverview   Permission = "org:view_overview"
	PermOrgManageSettings Permission = "org:manage_settings"

	// Team management
	PermTeamInviteMembers  Permission = "team:invite_members"
	PermTeamRemoveMembers  Permission = "team:remove_members"
	PermTeamChangeRoles    Permission = "team:change_roles"
	PermTeamViewAllMembers Permission = "team:view_all_members"

	// Certificates and licences
	PermCertViewAll Permission = "cert:view_all"
	PermCertViewOwn Permission = "cert:view_own"
	PermCertCreate  Permission = "cert:create"
	PermCertEdit    Permission = "cert:edit"
	PermCertDelete  Permission = "cert:delete"

	// Evidence
	PermEvidenceViewAll Permission = "evidence:view_all"
	PermEvidenceViewOwn Permission = "evidence:view_own"
	PermEvidenceUpload  Permission = "evidence:upload"
	PermEvidenceApprove Permission = "evidence:approve"
	PermEvidenceReject  Permission = "evidence:reject"

	// Tasks
	PermTaskCreateForOthers Permission = "task:create_for_others"
	PermTaskCreateOwn       Permission = "task:create_own"
	PermTaskViewAll         Permission = "task:view_all"
	PermTaskViewOwn         Permission = "task:view_own"
	PermTaskCompleteOwn     Permission = "task:complete_own"
	PermTaskAssign          Permission = "task:assign"

	// Audit and compliance
	PermAuditViewLogs          Permission = "audit:view_logs"
	PermAuditExportReports     Permission = "audit:export_reports"
	PermAuditViewOrgCompliance Permission = "audit:view_org_compliance"

	// Billing
	PermBillingView   Permission = "billing:view"
	PermBillingManage Permission = "billing:manage"
)

// Permissions lists every capability in the closed set.
var Permissions = []Permission{
	PermOrgViewOverview, PermOrgManageSettings,
	PermTeamInviteMembers, PermTeamRemoveMembers, PermTeamChangeRoles, PermTeamViewAllMembers,
	PermCertViewAll, PermCertViewOwn, PermCertCreate, PermCertEdit, PermCertDelete,
	PermEvidenceViewAll, PermEvidenceViewOwn, PermEvidenceUpload, PermEvidenceApprove, PermEvidenceReject,
	PermTaskCreateForOthers, PermTaskCreateOwn, PermTaskViewAll, PermTaskViewOwn, PermTaskCompleteOwn, PermTaskAssign,
	PermAuditViewLogs, PermAuditExportReports, PermAuditViewOrgCompliance,
	PermBillingView, PermBillingManage,
}

// rolePermissions is the static role capability table. Every known role has
// an explicit entry; RoleUnknown has none. Read-only after init.
var rolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermOrgViewOverview, PermOrgManageSettings,
		PermTeamInviteMembers, PermTeamRemoveMembers, PermTeamChangeRoles, PermTeamViewAllMembers,
		PermCertViewAll, PermCertViewOwn, PermCertCreate, PermCertEdit, PermCertDelete,
		PermEvidenceViewAll, PermEvidenceViewOwn, PermEvidenceUpload, PermEvidenceApprove, PermEvidenceReject,
		PermTaskCreateForOthers, PermTaskCreateOwn, PermTaskViewAll, PermTaskViewOwn, PermTaskCompleteOwn, PermTaskAssign,
		PermAuditViewLogs, PermAuditExportReports, PermAuditViewOrgCompliance,
		PermBillingView, PermBillingManage,
	},
	RoleAdmin: {
		PermOrgViewOverview, PermOrgManageSettings,
		PermTeamInviteMembers, PermTeamRemoveMembers, PermTeamChangeRoles, PermTeamViewAllMembers,
		PermCertViewAll, PermCertViewOwn, PermCertCreate, PermCertEdit, PermCertDelete,
		PermEvidenceViewAll, PermEvidenceViewOwn, PermEvidenceUpload, PermEvidenceApprove, PermEvidenceReject,
		PermTaskCreateForOthers, PermTaskCreateOwn, PermTaskViewAll, PermTaskViewOwn, PermTaskCompleteOwn, PermTaskAssign,
		PermAuditViewLogs, PermAuditExportReports, PermAuditViewOrgCompliance,
	},
	RoleManager: {
		PermOrgViewOverview,
		PermTeamInviteMembers, PermTeamViewAllMembers,
		PermCertViewAll, PermCertViewOwn, PermCertCreate, PermCertEdit,
		PermEvidenceViewAll, PermEvidenceViewOwn, PermEvidenceUpload, PermEvidenceApprove, PermEvidenceReject,
		PermTaskCreateForOthers, PermTaskCreateOwn, PermTaskViewAll, PermTaskViewOwn, PermTaskCompleteOwn, PermTaskAssign,
		PermAuditViewLogs, PermAuditExportReports, PermAuditViewOrgCompliance,
	},
	RoleMember: {
		PermCertViewOwn,
		PermEvidenceViewOwn, PermEvidenceUpload,
		PermTaskCreateOwn, PermTaskViewOwn, PermTaskCompleteOwn,
		PermAuditViewOrgCompliance,
	},
	RoleViewer: {
		PermOrgViewOverview,
		PermCertViewOwn,
		PermEvidenceViewOwn,
		PermTaskViewOwn,
		PermAuditViewOrgCompliance,
	},
}

var permissionSets = buildPermissionSets()

func buildPermissionSets() map[Role]map[Permission]struct{} {
	sets := make(map[Role]map[Permission]struct{}, len(rolePermissions))
	for role, perms := range rolePermissions {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		sets[role] = set
	}
	return sets
}

// HasPermission reports whether the role grants the permission. Unknown roles
// are denied everything.
func HasPermission(role Role, perm Permission) bool {
	set, ok := permissionSets[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// PermissionsFor returns a copy of the role's permission set. RoleUnknown
// yields an empty slice.
func PermissionsFor(role Role) []Permission {
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

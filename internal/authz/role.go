package authz

import "strings"

// Role is the closed set of membership roles. The zero value is RoleUnknown,
// which carries no permissions.
type Role string

const (
	RoleUnknown Role = ""
	RoleViewer  Role = "viewer"
	RoleMember  Role = "member"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
)

// Roles lists every recognised role, least privileged first.
var Roles = []Role{RoleViewer, RoleMember, RoleManager, RoleAdmin, RoleOwner}

// ParseRole maps a stored role string to a Role. Unrecognised values map to
// RoleUnknown so that a corrupted or tampered membership row never grants
// access.
func ParseRole(s string) Role {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "owner":
		return RoleOwner
	case "admin":
		return RoleAdmin
	case "manager":
		return RoleManager
	case "member":
		return RoleMember
	case "viewer":
		return RoleViewer
	default:
		return RoleUnknown
	}
}

// Known reports whether the role is part of the closed enumeration.
func (r Role) Known() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleMember, RoleViewer:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Package access maps roles to permissions.
package access

import (
	"strings"

	"simplyinvoicing/api/internal/models"
)

// Permission represents an allowed action on a resource type.
// Format: "resource:action" (e.g., "invoice:create", "client:read")
type Permission string

const (
	WildcardAll                     = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Resource and action names used by the API.
const (
	ResourceInvoice  = "invoice"
	ResourceClient   = "client"
	ResourceSettings = "settings"
	ResourceBilling  = "billing"
	ResourceEmailLog = "emaillog"
	ResourceRole     = "role"

	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionSend   = "send"
	ActionManage = "manage"
)

// NewPermission creates a permission from resource type and action.
func NewPermission(resource, action string) Permission {
	return Permission(resource + ":" + action)
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resource, action string) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

// Matches checks if this permission grants the requested one.
// "*:*" matches all, "invoice:*" matches all invoice actions.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res != "" && res == reqRes && act == WildcardAll
}

var memberPermissions = []Permission{
	"invoice:*",
	"client:*",
	"settings:*",
	"billing:*",
	"emaillog:read",
}

var rolePermissions = map[string][]Permission{
	models.RoleAdmin:   {PermissionSuperAdmin},
	models.RoleManager: memberPermissions,
	models.RoleUser:    memberPermissions,
	models.RoleGuest:   {"invoice:read", "client:read"},
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// PermissionsFor returns the permissions of a role. Unknown roles get none.
func PermissionsFor(role string) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// Strings returns the permissions as plain strings for storage.
func Strings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

// Allowed reports whether role grants the requested permission.
func Allowed(role string, requested Permission) bool {
	for _, p := range rolePermissions[role] {
		if p.Matches(requested) {
			return true
		}
	}
	return false
}

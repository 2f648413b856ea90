package auth

// Permission represents a named capability in the API.
type Permission string

// Permission constants.
const (
	PermRunRead   Permission = "run:read"
	PermRunWatch  Permission = "run:watch"
	PermRunDelete Permission = "run:delete"
	PermAuditRead Permission = "audit:read"
)

// rolePermissions maps each role to its granted permissions.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {PermRunRead, PermRunWatch},
	RoleAdmin:  {PermRunRead, PermRunWatch, PermRunDelete, PermAuditRead},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

package model

import "strconv"

type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionCreate Permission = "create"
	PermissionEdit   Permission = "edit"
	PermissionDelete Permission = "delete"
)

var AllPermissions = []Permission{PermissionRead, PermissionCreate, PermissionEdit, PermissionDelete}

// Principal names a holder of permissions, e.g. "user:42" or "role:admin".
type Principal string

const (
	EveryonePrincipal      Principal = "system:everyone"
	AuthenticatedPrincipal Principal = "system:authenticated"
)

func UserPrincipal(id int64) Principal {
	return Principal("user:" + strconv.FormatInt(id, 10))
}

func RolePrincipal(role string) Principal {
	return Principal("role:" + role)
}

// Entry is one allow rule of an access control list.
type Entry struct {
	Principal   Principal
	Permissions []Permission
}

func Allow(p Principal, perms ...Permission) Entry {
	return Entry{Principal: p, Permissions: perms}
}

// Resource is anything guarded by an ACL.
type Resource interface {
	ACL() []Entry
}

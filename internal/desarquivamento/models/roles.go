package models

import (
	"strings"

	dErrors "desarquivamento/pkg/domain-errors"
	pstrings "desarquivamento/pkg/platform/strings"
)

// Role is a coarse account role issued by the identity provider.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinator"
	RoleOperator    Role = "operator"
	RoleViewer      Role = "viewer"
	RoleUser        Role = "user"
)

// Permission is one capability granted by a role.
type Permission uint16

const (
	PermViewAny Permission = 1 << iota
	PermEditAny
	PermForceStatus
	PermDeleteAny
	PermDeleteInProgress
	PermDeleteFinalized
	PermRestore
	PermHardDelete
)

// rolePermissions is the single place where role rules live. Every
// authorization predicate on Request resolves roles through this table.
var rolePermissions = map[Role]Permission{
	RoleAdmin: PermViewAny | PermEditAny | PermForceStatus | PermDeleteAny |
		PermDeleteInProgress | PermDeleteFinalized | PermRestore | PermHardDelete,
	RoleCoordinator: PermViewAny | PermEditAny | PermForceStatus | PermDeleteAny,
	RoleOperator:    PermViewAny | PermEditAny | PermForceStatus | PermDeleteAny | PermRestore,
	RoleViewer:      PermViewAny,
	RoleUser:        0,
}

const (
	maxRoles      = 16
	maxRoleLength = 64
)

// PermissionSet is the union of permissions granted by a list of roles.
type PermissionSet Permission

// PermissionsFor resolves roles to their combined permissions. Unknown roles
// grant nothing. Matching is case-insensitive.
func PermissionsFor(roles []string) PermissionSet {
	var set Permission
	for _, r := range roles {
		set |= rolePermissions[Role(strings.ToLower(strings.TrimSpace(r)))]
	}
	return PermissionSet(set)
}

// Has reports whether every permission in p is granted.
func (s PermissionSet) Has(p Permission) bool {
	return Permission(s)&p == p
}

// IsElevated reports whether roles grant visibility over every request.
func IsElevated(roles []string) bool {
	return PermissionsFor(roles).Has(PermViewAny)
}

// NormalizeRoles validates the shape of a role list taken from a command and
// returns it trimmed, lowercased and deduplicated.
//
// Errors: CodeInvalidInput when the list is empty, too long, or carries an
// oversized entry.
func NormalizeRoles(roles []string) ([]string, error) {
	if !pstrings.WithinBounds(roles, maxRoles, maxRoleLength) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid user roles")
	}
	normalized := pstrings.DedupeAndTrimLower(roles)
	if len(normalized) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user roles are required")
	}
	return normalized, nil
}

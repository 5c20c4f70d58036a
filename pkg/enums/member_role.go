package enums

import (
	"fmt"
	"slices"
	"strings"
)

// MemberRole represents an organization-level permissions role. The role is
// the casbin subject when authorizing work board actions.
type MemberRole string

const (
	MemberRoleOwner      MemberRole = "owner"
	MemberRoleAdmin      MemberRole = "admin"
	MemberRoleManager    MemberRole = "manager"
	MemberRoleTechnician MemberRole = "technician"
	MemberRoleViewer     MemberRole = "viewer"
)

var memberRoles = []MemberRole{
	MemberRoleOwner,
	MemberRoleAdmin,
	MemberRoleManager,
	MemberRoleTechnician,
	MemberRoleViewer,
}

func (m MemberRole) String() string {
	return string(m)
}

func (m MemberRole) IsValid() bool {
	return slices.Contains(memberRoles, m)
}

// ParseMemberRole accepts any casing and surrounding whitespace.
func ParseMemberRole(value string) (MemberRole, error) {
	role := MemberRole(strings.ToLower(strings.TrimSpace(value)))
	if !role.IsValid() {
		return "", fmt.Errorf("invalid member role %q", value)
	}
	return role, nil
}

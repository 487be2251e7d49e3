package enums

import (
	"fmt"
	"strings"
)

// Role is the permission level of a login principal.
type Role string

const (
	RoleMasterAdmin  Role = "master_admin"
	RoleAdmin        Role = "admin"
	RoleReceptionist Role = "receptionist"
	RoleStaff        Role = "staff"
	RoleTenant       Role = "tenant"
)

var validRoles = []Role{
	RoleMasterAdmin,
	RoleAdmin,
	RoleReceptionist,
	RoleStaff,
	RoleTenant,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsHostelScoped reports whether principals of this role belong to exactly one hostel.
func (r Role) IsHostelScoped() bool {
	return r.IsValid() && r != RoleMasterAdmin
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

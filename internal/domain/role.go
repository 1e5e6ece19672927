package domain

import "fmt"

// Role is the closed authorization enumeration. Every user carries exactly
// one role; there is no per-user permission model beyond it.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleProjectLead Role = "project_lead"
	RoleDeveloper   Role = "developer"
)

// ParseRole validates a wire value against the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleProjectLead, RoleDeveloper:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string { return string(r) }

package enums

import "strings"

// Role is the account role carried in access tokens.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

var roles = []Role{RoleAdmin, RoleUser}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool { return member(r, roles) }

// ParseRole ignores case and surrounding space.
func ParseRole(value string) (Role, error) {
	return parse("role", strings.ToLower(strings.TrimSpace(value)), roles)
}

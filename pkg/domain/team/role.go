package team

// Role represents a user's role within a team.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEditor    Role = "editor"
	RoleMember    Role = "member"
	RoleViewer    Role = "viewer"
	RoleRequester Role = "requester"
	RoleBlocked   Role = "blocked"
)

// rolePriorities is the total order used for meets-or-exceeds checks.
// Higher priority wins; blocked sorts below every grantable role.
var rolePriorities = map[Role]int{
	RoleAdmin:     7,
	RoleEditor:    5,
	RoleMember:    3,
	RoleViewer:    1,
	RoleRequester: 0,
	RoleBlocked:   -1,
}

// AssignableRoles returns the roles that can be assigned explicitly.
var AssignableRoles = []Role{RoleAdmin, RoleEditor, RoleMember, RoleViewer, RoleRequester, RoleBlocked}

// IsValid checks if the role is valid.
func (r Role) IsValid() bool {
	_, ok := rolePriorities[r]
	return ok
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Priority returns the priority of the role (higher = more permissions).
// Unknown roles sort below blocked.
func (r Role) Priority() int {
	if p, ok := rolePriorities[r]; ok {
		return p
	}
	return -2
}

// MeetsOrExceeds reports whether this role satisfies the required role.
// Unknown roles on either side fail closed.
func (r Role) MeetsOrExceeds(required Role) bool {
	if !r.IsValid() || !required.IsValid() {
		return false
	}
	return rolePriorities[r] >= rolePriorities[required]
}

// ParseRole parses a string to a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}

// ParseRoles parses a list of role names, skipping unknown names.
func ParseRoles(names []string) []Role {
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		if r, ok := ParseRole(n); ok {
			roles = append(roles, r)
		}
	}
	return roles
}

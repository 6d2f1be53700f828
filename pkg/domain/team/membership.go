package team

import (
	"github.com/openctemio/teams/pkg/domain/shared"
)

// Membership is an explicit (team, role) pair held by a user. A user holds
// at most one explicit role per team; implicit membership is computed,
// never stored.
type Membership struct {
	TeamID shared.ID
	Role   Role
}

// Principal is the authorization-relevant projection of a user. Resolvers
// operate on this projection only; they never reach back into the full
// user entity.
type Principal struct {
	ID             shared.ID
	Memberships    []Membership
	ExternalRoles  []string
	ExternalGroups []string

	// BypassAccessCheck short-circuits implicit-team-matching predicates
	// to true. It does not affect external-role matching.
	BypassAccessCheck bool
}

// ExplicitRole looks up the principal's explicit role on a team. There is
// no fallback of any kind here.
func (p *Principal) ExplicitRole(teamID shared.ID) (Role, bool) {
	for _, m := range p.Memberships {
		if m.TeamID.Equals(teamID) {
			return m.Role, true
		}
	}
	return "", false
}

// IsBlockedOn reports whether the principal holds an explicit blocked role
// on the team. An explicit block always overrides an implicit grant.
func (p *Principal) IsBlockedOn(teamID shared.ID) bool {
	r, ok := p.ExplicitRole(teamID)
	return ok && r == RoleBlocked
}

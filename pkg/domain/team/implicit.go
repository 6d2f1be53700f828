package team

import (
	"slices"
)

// MeetsRequiredExternalTeams reports whether the principal qualifies for
// the team via external groups. Matching is ANY-of: one shared group is
// enough. An empty requirement list never matches. BypassAccessCheck
// short-circuits to true.
func MeetsRequiredExternalTeams(p *Principal, t *Team) bool {
	if p.BypassAccessCheck {
		return true
	}
	for _, g := range t.requiresExternalTeams {
		if slices.Contains(p.ExternalGroups, g) {
			return true
		}
	}
	return false
}

// MeetsRequiredExternalRoles reports whether the principal qualifies for
// the team via external roles. Matching is ALL-of: every required role
// must be present. An empty requirement list never matches.
//
// The ANY/ALL asymmetry with MeetsRequiredExternalTeams is intentional.
func MeetsRequiredExternalRoles(p *Principal, t *Team) bool {
	if len(t.requiresExternalRoles) == 0 {
		return false
	}
	for _, r := range t.requiresExternalRoles {
		if !slices.Contains(p.ExternalRoles, r) {
			return false
		}
	}
	return true
}

// IsImplicitMember reports whether the principal is an implicit member of
// the team under the resolver's strategy. Implicit membership only ever
// grants the member role.
func (r *Resolver) IsImplicitMember(p *Principal, t *Team) bool {
	switch r.settings.ImplicitStrategy {
	case StrategyRoles:
		return MeetsRequiredExternalRoles(p, t)
	case StrategyTeams:
		return MeetsRequiredExternalTeams(p, t)
	default:
		return false
	}
}

// ImplicitTeamFilter is the storage counterpart of IsImplicitMember over
// teams: it matches every team the principal implicitly qualifies for.
// Teams the principal is explicitly blocked on still match here; callers
// subtract those afterwards.
func (r *Resolver) ImplicitTeamFilter(p *Principal) Filter {
	switch r.settings.ImplicitStrategy {
	case StrategyRoles:
		return And(
			Eq(FieldImplicitMembers, true),
			ContainedBy(FieldRequiresExternalRoles, p.ExternalRoles),
		)
	case StrategyTeams:
		if p.BypassAccessCheck {
			return Eq(FieldImplicitMembers, true)
		}
		return And(
			Eq(FieldImplicitMembers, true),
			Overlaps(FieldRequiresExternalTeams, p.ExternalGroups),
		)
	default:
		return Nothing()
	}
}

// ImplicitMemberFilter is the storage counterpart of IsImplicitMember over
// users: it matches every user implicitly qualifying for the team,
// excluding users explicitly blocked on it. Returns Nothing when implicit
// membership does not apply to the team.
func (r *Resolver) ImplicitMemberFilter(t *Team) Filter {
	if !r.settings.ImplicitEnabled() || !t.implicitMembers {
		return Nothing()
	}

	var qualifies Filter
	switch r.settings.ImplicitStrategy {
	case StrategyRoles:
		qualifies = ContainsAll(FieldExternalRoles, t.requiresExternalRoles)
	case StrategyTeams:
		matches := Overlaps(FieldExternalGroups, t.requiresExternalTeams)
		qualifies = Or(Eq(FieldBypassAccessCheck, true), matches)
	default:
		return Nothing()
	}

	if IsNothing(qualifies) {
		return Nothing()
	}

	return And(qualifies, Not(HasMembership(t.id, RoleBlocked)))
}

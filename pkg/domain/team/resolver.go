package team

// Resolver computes a principal's role in a team. It is pure: every input
// is already-fetched data, so calls are safe to run in parallel across
// (principal, team) pairs.
type Resolver struct {
	settings Settings
}

// NewResolver creates a new Resolver.
func NewResolver(settings Settings) *Resolver {
	return &Resolver{settings: settings}
}

// Settings returns the resolver's settings.
func (r *Resolver) Settings() Settings {
	return r.settings
}

// TeamRole resolves the principal's explicit role on the team, falling
// back to the ancestor chain when nested teams are enabled. Ancestors are
// checked in stored order and the first explicit role found wins; roles
// are never merged across levels.
func (r *Resolver) TeamRole(p *Principal, t *Team) (Role, bool) {
	if role, ok := p.ExplicitRole(t.id); ok {
		return role, true
	}
	if !r.settings.NestedTeams {
		return "", false
	}
	for _, ancestor := range t.ancestors {
		if role, ok := p.ExplicitRole(ancestor); ok {
			return role, true
		}
	}
	return "", false
}

// ActiveTeamRole resolves the principal's effective role on the team:
// explicit or inherited first, then the implicit fallback when the
// strategy is active and the team opts in. An implicit grant is always
// the member role. Not being a member is a valid (zero, false) result,
// not an error.
func (r *Resolver) ActiveTeamRole(p *Principal, t *Team) (Role, bool) {
	if role, ok := r.TeamRole(p, t); ok {
		return role, true
	}
	if r.settings.ImplicitEnabled() && t.implicitMembers && r.IsImplicitMember(p, t) {
		return RoleMember, true
	}
	return "", false
}

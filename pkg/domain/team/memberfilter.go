package team

import (
	"slices"
)

// MemberType selects which kind of membership a member search covers.
type MemberType string

const (
	// MemberTypeExplicit selects stored memberships.
	MemberTypeExplicit MemberType = "explicit"
	// MemberTypeImplicit selects computed memberships.
	MemberTypeImplicit MemberType = "implicit"
)

// IsValid checks if the member type is valid.
func (m MemberType) IsValid() bool {
	return m == MemberTypeExplicit || m == MemberTypeImplicit
}

// ParseMemberTypes parses member type names, skipping unknown names.
func ParseMemberTypes(names []string) []MemberType {
	types := make([]MemberType, 0, len(names))
	for _, n := range names {
		if t := MemberType(n); t.IsValid() {
			types = append(types, t)
		}
	}
	return types
}

// MemberFilter translates a member search's type and role criteria into a
// single filter over users. The result is a top-level disjunction of an
// implicit branch and an explicit branch; a combination no user can
// satisfy (implicit with a non-member role, say) yields the impossible
// predicate rather than an unconstrained one.
//
// The builder is pure: it allocates a fresh filter on every call and
// never mutates t or its own previous results.
func (r *Resolver) MemberFilter(t *Team, types []MemberType, roles []Role) Filter {
	wantExplicit := slices.Contains(types, MemberTypeExplicit)
	wantImplicit := slices.Contains(types, MemberTypeImplicit)
	hasType := len(types) > 0
	hasRole := len(roles) > 0
	memberRequested := slices.Contains(roles, RoleMember)

	var branches []Filter

	addImplicit := func() {
		if f := r.ImplicitMemberFilter(t); !IsNothing(f) {
			branches = append(branches, f)
		}
	}

	switch {
	case !hasType && !hasRole:
		// All current members of the team.
		addImplicit()
		branches = append(branches, HasMembership(t.id))

	case hasType && hasRole:
		if wantImplicit && memberRequested {
			addImplicit()
		}
		if wantExplicit {
			branches = append(branches, HasMembership(t.id, roles...))
		}

	case hasType:
		if wantImplicit {
			addImplicit()
		}
		if wantExplicit {
			branches = append(branches, HasMembership(t.id))
		}

	default: // role only
		if memberRequested {
			addImplicit()
		}
		branches = append(branches, HasMembership(t.id, roles...))
	}

	return Or(branches...)
}

package team

import (
	"context"
	"fmt"

	"github.com/openctemio/teams/pkg/domain/shared"
)

// Guard checks structural invariants before destructive or role-reducing
// operations commit.
//
// VerifyNotLastAdmin on its own is a check-then-act: two concurrent
// demotions of the two remaining admins can both pass it. Callers must
// pair it with a conditional write that re-evaluates the admin count
// server-side (the postgres user repository's RemoveMembership and
// SetMembershipRole do this).
type Guard struct {
	resolver   *Resolver
	principals PrincipalStore
	resources  ResourceCounter
}

// NewGuard creates a new Guard. A nil resources counter defaults to
// NoResources.
func NewGuard(resolver *Resolver, principals PrincipalStore, resources ResourceCounter) *Guard {
	if resources == nil {
		resources = NoResources{}
	}
	return &Guard{resolver: resolver, principals: principals, resources: resources}
}

// VerifyNotLastAdmin succeeds when at least one user other than p holds an
// explicit admin membership on the team whose active role also resolves
// to admin. An explicit admin row that resolves lower (a blocked ancestor
// chain, say) does not count.
func (g *Guard) VerifyNotLastAdmin(ctx context.Context, p *Principal, t *Team) error {
	if p == nil {
		return fmt.Errorf("%w: principal is required", shared.ErrInvalidUser)
	}

	admins, err := g.principals.FindPrincipalsByTeamRole(ctx, t.id, RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to list team admins: %w", err)
	}

	for _, other := range admins {
		if other.ID.Equals(p.ID) {
			continue
		}
		if active, ok := g.resolver.ActiveTeamRole(other, t); ok && active == RoleAdmin {
			return nil
		}
	}

	return fmt.Errorf("%w: team must have at least one admin", shared.ErrBadRequest)
}

// VerifyNoResourcesInTeam succeeds when the team owns no resources. It
// must pass before team deletion proceeds.
func (g *Guard) VerifyNoResourcesInTeam(ctx context.Context, t *Team) error {
	count, err := g.resources.CountResourcesOwnedByTeam(ctx, t.id)
	if err != nil {
		return fmt.Errorf("failed to count team resources: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: team still owns %d resource(s)", shared.ErrBadRequest, count)
	}
	return nil
}

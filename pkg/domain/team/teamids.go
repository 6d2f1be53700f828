package team

import (
	"context"
	"fmt"
	"slices"

	"github.com/openctemio/teams/pkg/domain/shared"
)

// TeamIDResolver produces the set of team ids reachable for a principal
// via explicit, implicit, and nested-descendant resolution. Implicit and
// nested resolution read from storage; everything else is computed over
// the principal's own data.
type TeamIDResolver struct {
	resolver *Resolver
	store    IDStore
}

// NewTeamIDResolver creates a new TeamIDResolver.
func NewTeamIDResolver(resolver *Resolver, store IDStore) *TeamIDResolver {
	return &TeamIDResolver{resolver: resolver, store: store}
}

// ExplicitTeamIDs returns the ids of all teams the principal holds an
// explicit role on, optionally filtered to roles (empty = all).
func (s *TeamIDResolver) ExplicitTeamIDs(p *Principal, roles ...Role) ([]shared.ID, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: principal is required", shared.ErrInvalidUser)
	}
	ids := make([]shared.ID, 0, len(p.Memberships))
	for _, m := range p.Memberships {
		if len(roles) > 0 && !slices.Contains(roles, m.Role) {
			continue
		}
		ids = append(ids, m.TeamID)
	}
	return ids, nil
}

// ImplicitTeamIDs returns the ids of all teams the principal implicitly
// qualifies for, optionally filtered to roles. Since an implicit grant is
// always the member role, a role filter without member short-circuits to
// empty. Teams the principal is explicitly blocked on are excluded: an
// explicit block always overrides an implicit grant.
func (s *TeamIDResolver) ImplicitTeamIDs(ctx context.Context, p *Principal, roles ...Role) ([]shared.ID, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: principal is required", shared.ErrInvalidUser)
	}
	if !s.resolver.settings.ImplicitEnabled() {
		return nil, nil
	}
	if len(roles) > 0 && !slices.Contains(roles, RoleMember) {
		return nil, nil
	}

	f := s.resolver.ImplicitTeamFilter(p)
	if IsNothing(f) {
		return nil, nil
	}

	ids, err := s.store.DistinctTeamIDsMatching(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve implicit team ids: %w", err)
	}

	out := ids[:0]
	for _, id := range ids {
		if !p.IsBlockedOn(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

// NestedTeamIDs returns the ids of all strict descendants of teamIDs:
// teams whose ancestor chain intersects the input, minus the input itself.
// Empty when nested teams are disabled.
func (s *TeamIDResolver) NestedTeamIDs(ctx context.Context, teamIDs []shared.ID) ([]shared.ID, error) {
	if !s.resolver.settings.NestedTeams || len(teamIDs) == 0 {
		return nil, nil
	}

	ids, err := s.store.DistinctTeamIDsMatching(ctx, AncestorsOverlap(teamIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve nested team ids: %w", err)
	}

	out := ids[:0]
	for _, id := range ids {
		if !containsID(teamIDs, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

// TeamIDs returns the deduplicated union of explicit, implicit, and
// nested-descendant team ids, each computed under the same role filter.
// Membership in a team carries through to every descendant team.
func (s *TeamIDResolver) TeamIDs(ctx context.Context, p *Principal, roles ...Role) ([]shared.ID, error) {
	explicit, err := s.ExplicitTeamIDs(p, roles...)
	if err != nil {
		return nil, err
	}
	implicit, err := s.ImplicitTeamIDs(ctx, p, roles...)
	if err != nil {
		return nil, err
	}

	direct := dedupeIDs(append(explicit, implicit...))

	nested, err := s.NestedTeamIDs(ctx, direct)
	if err != nil {
		return nil, err
	}

	return dedupeIDs(append(direct, nested...)), nil
}

// FilterTeamIDs returns the principal's member/editor/admin team ids. When
// candidates is non-empty the result is its intersection with that set,
// preserving candidate order.
func (s *TeamIDResolver) FilterTeamIDs(ctx context.Context, p *Principal, candidates []shared.ID) ([]shared.ID, error) {
	reachable, err := s.TeamIDs(ctx, p, RoleMember, RoleEditor, RoleAdmin)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return reachable, nil
	}

	out := make([]shared.ID, 0, len(candidates))
	for _, id := range candidates {
		if containsID(reachable, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func containsID(ids []shared.ID, id shared.ID) bool {
	for _, candidate := range ids {
		if candidate.Equals(id) {
			return true
		}
	}
	return false
}

func dedupeIDs(ids []shared.ID) []shared.ID {
	seen := make(map[string]struct{}, len(ids))
	out := make([]shared.ID, 0, len(ids))
	for _, id := range ids {
		key := id.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, id)
	}
	return out
}

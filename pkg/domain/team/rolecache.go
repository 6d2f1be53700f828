package team

import (
	"context"

	"github.com/openctemio/teams/pkg/domain/shared"
)

// Rebuilder recomputes a user's cached per-team role list. It runs at
// login, when implicit grants and nested inheritance may have changed out
// from under the stored list.
type Rebuilder struct {
	resolver *Resolver
	ids      *TeamIDResolver
}

// NewRebuilder creates a new Rebuilder.
func NewRebuilder(resolver *Resolver, ids *TeamIDResolver) *Rebuilder {
	return &Rebuilder{resolver: resolver, ids: ids}
}

// RebuildMemberships computes the collapsed membership list for the
// principal. The second return is false when no rebuild is needed: with
// implicit membership and nested teams both disabled the cache already
// equals the explicit memberships.
//
// Role dominance collapses the three tiers: admin absorbs editor and
// member, editor absorbs member. Each team id appears exactly once, at
// its highest-earned role.
func (r *Rebuilder) RebuildMemberships(ctx context.Context, p *Principal) ([]Membership, bool, error) {
	s := r.resolver.settings
	if !s.ImplicitEnabled() && !s.NestedTeams {
		return nil, false, nil
	}

	adminIDs, err := r.ids.TeamIDs(ctx, p, RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	editorIDs, err := r.ids.TeamIDs(ctx, p, RoleEditor)
	if err != nil {
		return nil, false, err
	}
	memberIDs, err := r.ids.TeamIDs(ctx, p, RoleMember)
	if err != nil {
		return nil, false, err
	}

	editorIDs = subtractIDs(editorIDs, adminIDs)
	memberIDs = subtractIDs(subtractIDs(memberIDs, adminIDs), editorIDs)

	memberships := make([]Membership, 0, len(adminIDs)+len(editorIDs)+len(memberIDs))
	for _, id := range adminIDs {
		memberships = append(memberships, Membership{TeamID: id, Role: RoleAdmin})
	}
	for _, id := range editorIDs {
		memberships = append(memberships, Membership{TeamID: id, Role: RoleEditor})
	}
	for _, id := range memberIDs {
		memberships = append(memberships, Membership{TeamID: id, Role: RoleMember})
	}

	return memberships, true, nil
}

func subtractIDs(ids, remove []shared.ID) []shared.ID {
	out := make([]shared.ID, 0, len(ids))
	for _, id := range ids {
		if !containsID(remove, id) {
			out = append(out, id)
		}
	}
	return out
}

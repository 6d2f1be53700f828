package team

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/teams/pkg/domain/shared"
)

func TestRebuildMembershipsNoop(t *testing.T) {
	settings := Settings{NestedTeams: false, ImplicitStrategy: StrategyNone}
	resolver := NewResolver(settings)
	r := NewRebuilder(resolver, NewTeamIDResolver(resolver, &fakeIDStore{}))

	p := &Principal{ID: shared.NewID(), Memberships: []Membership{{TeamID: shared.NewID(), Role: RoleAdmin}}}
	_, rebuilt, err := r.RebuildMemberships(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, rebuilt, "cache already equals explicit memberships")
}

func TestRebuildMembershipsDominance(t *testing.T) {
	settings := Settings{NestedTeams: true, ImplicitStrategy: StrategyNone}
	resolver := NewResolver(settings)
	r := NewRebuilder(resolver, NewTeamIDResolver(resolver, &fakeIDStore{}))

	t1 := shared.NewID()
	t2 := shared.NewID()

	// Stale state: t1 appears both as admin and as member.
	p := &Principal{
		ID: shared.NewID(),
		Memberships: []Membership{
			{TeamID: t1, Role: RoleAdmin},
			{TeamID: t1, Role: RoleMember},
			{TeamID: t2, Role: RoleEditor},
		},
	}

	memberships, rebuilt, err := r.RebuildMemberships(context.Background(), p)
	require.NoError(t, err)
	require.True(t, rebuilt)

	byTeam := map[string]Role{}
	for _, m := range memberships {
		_, dup := byTeam[m.TeamID.String()]
		assert.False(t, dup, "team %s listed twice", m.TeamID)
		byTeam[m.TeamID.String()] = m.Role
	}
	assert.Equal(t, RoleAdmin, byTeam[t1.String()], "admin absorbs the stale member entry")
	assert.Equal(t, RoleEditor, byTeam[t2.String()])
}

func TestRebuildMembershipsIncludesDescendants(t *testing.T) {
	parent := shared.NewID()
	child := shared.NewID()
	store := &fakeIDStore{descendants: map[string][]shared.ID{parent.String(): {child}}}

	settings := Settings{NestedTeams: true, ImplicitStrategy: StrategyNone}
	resolver := NewResolver(settings)
	r := NewRebuilder(resolver, NewTeamIDResolver(resolver, store))

	p := &Principal{
		ID:          shared.NewID(),
		Memberships: []Membership{{TeamID: parent, Role: RoleAdmin}},
	}

	memberships, rebuilt, err := r.RebuildMemberships(context.Background(), p)
	require.NoError(t, err)
	require.True(t, rebuilt)

	assert.ElementsMatch(t, []Membership{
		{TeamID: parent, Role: RoleAdmin},
		{TeamID: child, Role: RoleAdmin},
	}, memberships)
}

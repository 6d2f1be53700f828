package team

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/teams/pkg/domain/shared"
)

type fakePrincipalStore struct {
	admins []*Principal
}

func (f *fakePrincipalStore) FindPrincipalsByTeamRole(_ context.Context, _ shared.ID, _ Role) ([]*Principal, error) {
	return f.admins, nil
}

type fixedResources struct {
	count int
}

func (f fixedResources) CountResourcesOwnedByTeam(_ context.Context, _ shared.ID) (int, error) {
	return f.count, nil
}

func TestVerifyNotLastAdmin(t *testing.T) {
	tm := newTestTeam(t, "security", nil)
	resolver := NewResolver(Settings{})

	self := &Principal{
		ID:          shared.NewID(),
		Memberships: []Membership{{TeamID: tm.ID(), Role: RoleAdmin}},
	}

	t.Run("another active admin exists", func(t *testing.T) {
		other := &Principal{
			ID:          shared.NewID(),
			Memberships: []Membership{{TeamID: tm.ID(), Role: RoleAdmin}},
		}
		guard := NewGuard(resolver, &fakePrincipalStore{admins: []*Principal{self, other}}, nil)
		assert.NoError(t, guard.VerifyNotLastAdmin(context.Background(), self, tm))
	})

	t.Run("sole admin cannot be removed", func(t *testing.T) {
		guard := NewGuard(resolver, &fakePrincipalStore{admins: []*Principal{self}}, nil)
		err := guard.VerifyNotLastAdmin(context.Background(), self, tm)
		assert.ErrorIs(t, err, shared.ErrBadRequest)
	})

	t.Run("stored admin whose active role resolves lower does not count", func(t *testing.T) {
		// The other user's admin row exists but their active role no
		// longer resolves to admin for this team.
		stale := &Principal{ID: shared.NewID()}
		guard := NewGuard(resolver, &fakePrincipalStore{admins: []*Principal{self, stale}}, nil)
		err := guard.VerifyNotLastAdmin(context.Background(), self, tm)
		assert.ErrorIs(t, err, shared.ErrBadRequest)
	})

	t.Run("nil principal is rejected", func(t *testing.T) {
		guard := NewGuard(resolver, &fakePrincipalStore{}, nil)
		err := guard.VerifyNotLastAdmin(context.Background(), nil, tm)
		assert.ErrorIs(t, err, shared.ErrInvalidUser)
	})
}

func TestVerifyNoResourcesInTeam(t *testing.T) {
	tm := newTestTeam(t, "security", nil)
	resolver := NewResolver(Settings{})

	t.Run("default counter reports zero", func(t *testing.T) {
		guard := NewGuard(resolver, &fakePrincipalStore{}, nil)
		assert.NoError(t, guard.VerifyNoResourcesInTeam(context.Background(), tm))
	})

	t.Run("owned resources block deletion", func(t *testing.T) {
		guard := NewGuard(resolver, &fakePrincipalStore{}, fixedResources{count: 3})
		err := guard.VerifyNoResourcesInTeam(context.Background(), tm)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrBadRequest)
	})
}

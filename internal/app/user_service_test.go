package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/jwt"
	"github.com/openctemio/teams/pkg/logger"
)

type userServiceFixture struct {
	teams *MockTeamRepository
	users *MockUserRepository
	svc   *UserService
}

func newUserServiceFixture(settings team.Settings) *userServiceFixture {
	teams := new(MockTeamRepository)
	users := new(MockUserRepository)
	resolver := team.NewResolver(settings)
	rebuilder := team.NewRebuilder(resolver, team.NewTeamIDResolver(resolver, teams))

	return &userServiceFixture{
		teams: teams,
		users: users,
		svc:   NewUserService(users, rebuilder, nil, logger.NewNop()),
	}
}

func TestHandleLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("first login creates the user", func(t *testing.T) {
		fix := newUserServiceFixture(team.Settings{})

		fix.users.On("GetByEmail", mock.Anything, "new@example.com").
			Return(nil, shared.ErrNotFound)
		fix.users.On("Create", mock.Anything, mock.AnythingOfType("*user.User")).Return(nil)

		u, err := fix.svc.HandleLogin(ctx, &jwt.Claims{
			UserID: "ext-1",
			Email:  "new@example.com",
			Name:   "New User",
		})
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", u.Email())
		assert.Equal(t, "New User", u.Name())
		assert.NotNil(t, u.LastLoginAt())

		// With implicit membership and nesting both off, no rebuild runs.
		fix.users.AssertNotCalled(t, "UpdateMemberships", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing email rejected", func(t *testing.T) {
		fix := newUserServiceFixture(team.Settings{})
		_, err := fix.svc.HandleLogin(ctx, &jwt.Claims{UserID: "ext-1"})
		assert.ErrorIs(t, err, shared.ErrInvalidUser)
	})

	t.Run("implicit grant materializes at login", func(t *testing.T) {
		fix := newUserServiceFixture(team.Settings{ImplicitStrategy: team.StrategyRoles})
		existing := newTestUser("dev@example.com")
		teamAID := shared.NewID()

		fix.users.On("GetByEmail", mock.Anything, "dev@example.com").Return(existing, nil)
		fix.users.On("Update", mock.Anything, existing).Return(nil)
		fix.teams.On("DistinctTeamIDsMatching", mock.Anything, mock.Anything).
			Return([]shared.ID{teamAID}, nil).Once()
		fix.users.On("UpdateMemberships", mock.Anything, existing.ID(), mock.MatchedBy(func(ms []team.Membership) bool {
			return len(ms) == 1 && ms[0].TeamID.Equals(teamAID) && ms[0].Role == team.RoleMember
		})).Return(nil)

		u, err := fix.svc.HandleLogin(ctx, &jwt.Claims{
			UserID:        "ext-2",
			Email:         "dev@example.com",
			ExternalRoles: []string{"security"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"security"}, u.ExternalRoles())

		memberships := u.Memberships()
		require.Len(t, memberships, 1)
		assert.Equal(t, team.RoleMember, memberships[0].Role)
		fix.users.AssertExpectations(t)
	})

	t.Run("explicit block survives the rebuild", func(t *testing.T) {
		fix := newUserServiceFixture(team.Settings{ImplicitStrategy: team.StrategyRoles})
		teamAID := shared.NewID()
		blockedTeamID := shared.NewID()
		existing := newTestUser("dev@example.com",
			team.Membership{TeamID: blockedTeamID, Role: team.RoleBlocked})

		fix.users.On("GetByEmail", mock.Anything, "dev@example.com").Return(existing, nil)
		fix.users.On("Update", mock.Anything, existing).Return(nil)
		fix.teams.On("DistinctTeamIDsMatching", mock.Anything, mock.Anything).
			Return([]shared.ID{teamAID}, nil).Once()
		fix.users.On("UpdateMemberships", mock.Anything, existing.ID(), mock.MatchedBy(func(ms []team.Membership) bool {
			if len(ms) != 2 {
				return false
			}
			blocked := false
			for _, m := range ms {
				if m.TeamID.Equals(blockedTeamID) && m.Role == team.RoleBlocked {
					blocked = true
				}
			}
			return blocked
		})).Return(nil)

		_, err := fix.svc.HandleLogin(ctx, &jwt.Claims{
			UserID:        "ext-3",
			Email:         "dev@example.com",
			ExternalRoles: []string{"security"},
		})
		require.NoError(t, err)
	})
}

func TestRebuildUserMemberships(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid id", func(t *testing.T) {
		fix := newUserServiceFixture(team.Settings{})
		err := fix.svc.RebuildUserMemberships(ctx, "not-a-uuid")
		assert.True(t, shared.IsInvalidInput(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		fix := newUserServiceFixture(team.Settings{})
		id := shared.NewID()
		fix.users.On("GetByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		err := fix.svc.RebuildUserMemberships(ctx, id.String())
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestRebuildAllMemberships(t *testing.T) {
	ctx := context.Background()

	fix := newUserServiceFixture(team.Settings{})
	u1 := newTestUser("one@example.com")
	u2 := newTestUser("two@example.com")

	fix.users.On("ListIDs", mock.Anything).Return([]shared.ID{u1.ID(), u2.ID()}, nil)
	fix.users.On("GetByID", mock.Anything, u1.ID()).Return(u1, nil)
	fix.users.On("GetByID", mock.Anything, u2.ID()).Return(u2, nil)

	processed, err := fix.svc.RebuildAllMemberships(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
}

func TestUserServiceGetUser(t *testing.T) {
	ctx := context.Background()
	fix := newUserServiceFixture(team.Settings{})
	u := newTestUser("dev@example.com")
	fix.users.On("GetByID", mock.Anything, u.ID()).Return(u, nil)

	got, err := fix.svc.GetUser(ctx, u.ID().String())
	require.NoError(t, err)
	assert.Equal(t, u.ID(), got.ID())

	_, err = fix.svc.GetUser(ctx, "nope")
	assert.True(t, shared.IsInvalidInput(err))
}

func TestNewUserService_DefaultsToPassthrough(t *testing.T) {
	fix := newUserServiceFixture(team.Settings{})
	assert.IsType(t, PassthroughRoleMap{}, fix.svc.roleMap)
}

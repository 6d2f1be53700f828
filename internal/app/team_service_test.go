package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/domain/user"
	"github.com/openctemio/teams/pkg/logger"
)

func newTestTeam(name string, parent *team.Team) *team.Team {
	t, err := team.NewTeam(name, parent)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestUser(email string, memberships ...team.Membership) *user.User {
	now := time.Now().UTC()
	return user.Reconstitute(
		shared.NewID(), email, "Test User",
		memberships, nil, nil, false, nil, now, now,
	)
}

type teamServiceFixture struct {
	teams *MockTeamRepository
	users *MockUserRepository
	svc   *TeamService
}

func newTeamServiceFixture(settings team.Settings, resources team.ResourceCounter) *teamServiceFixture {
	teams := new(MockTeamRepository)
	users := new(MockUserRepository)
	resolver := team.NewResolver(settings)
	guard := team.NewGuard(resolver, NewPrincipalStore(users), resources)

	return &teamServiceFixture{
		teams: teams,
		users: users,
		svc:   NewTeamService(teams, users, resolver, guard, logger.NewNop()),
	}
}

func TestCreateTeam(t *testing.T) {
	ctx := context.Background()

	t.Run("root team makes creator admin", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		creator := &team.Principal{ID: shared.NewID()}

		fix.teams.On("Create", mock.Anything, mock.AnythingOfType("*team.Team")).Return(nil)
		fix.users.On("SetMembershipRole", mock.Anything, creator.ID, mock.AnythingOfType("shared.ID"), team.RoleAdmin).
			Return(true, nil)

		created, err := fix.svc.CreateTeam(ctx, CreateTeamInput{Name: "Platform"}, creator)
		require.NoError(t, err)
		assert.Equal(t, "Platform", created.Name())
		assert.Nil(t, created.ParentID())
		fix.users.AssertExpectations(t)
	})

	t.Run("subteam derives ancestors from parent", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		parent := newTestTeam("Engineering", nil)
		creator := &team.Principal{
			ID:          shared.NewID(),
			Memberships: []team.Membership{{TeamID: parent.ID(), Role: team.RoleAdmin}},
		}

		fix.teams.On("GetByID", mock.Anything, parent.ID()).Return(parent, nil)
		fix.teams.On("Create", mock.Anything, mock.AnythingOfType("*team.Team")).Return(nil)
		fix.users.On("SetMembershipRole", mock.Anything, creator.ID, mock.AnythingOfType("shared.ID"), team.RoleAdmin).
			Return(true, nil)

		parentID := parent.ID().String()
		created, err := fix.svc.CreateTeam(ctx, CreateTeamInput{Name: "Backend", ParentID: &parentID}, creator)
		require.NoError(t, err)
		require.NotNil(t, created.ParentID())
		assert.Equal(t, []shared.ID{parent.ID()}, created.Ancestors())
	})

	t.Run("subteam requires admin on parent", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		parent := newTestTeam("Engineering", nil)
		creator := &team.Principal{
			ID:          shared.NewID(),
			Memberships: []team.Membership{{TeamID: parent.ID(), Role: team.RoleEditor}},
		}

		fix.teams.On("GetByID", mock.Anything, parent.ID()).Return(parent, nil)

		parentID := parent.ID().String()
		_, err := fix.svc.CreateTeam(ctx, CreateTeamInput{Name: "Backend", ParentID: &parentID}, creator)
		assert.True(t, shared.IsForbidden(err))
		fix.teams.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("nil principal rejected", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		_, err := fix.svc.CreateTeam(ctx, CreateTeamInput{Name: "Platform"}, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidUser)
	})
}

func TestGetTeam(t *testing.T) {
	ctx := context.Background()

	t.Run("viewer can read", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		tm := newTestTeam("Platform", nil)
		actor := &team.Principal{
			ID:          shared.NewID(),
			Memberships: []team.Membership{{TeamID: tm.ID(), Role: team.RoleViewer}},
		}
		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)

		got, err := fix.svc.GetTeam(ctx, tm.ID().String(), actor)
		require.NoError(t, err)
		assert.Equal(t, tm.ID(), got.ID())
	})

	t.Run("non-member denied", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		tm := newTestTeam("Platform", nil)
		actor := &team.Principal{ID: shared.NewID()}
		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)

		_, err := fix.svc.GetTeam(ctx, tm.ID().String(), actor)
		assert.True(t, shared.IsForbidden(err))
	})

	t.Run("invalid id", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		_, err := fix.svc.GetTeam(ctx, "not-a-uuid", &team.Principal{ID: shared.NewID()})
		assert.True(t, shared.IsInvalidInput(err))
	})
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()

	t.Run("admin adds member", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		tm := newTestTeam("Platform", nil)
		actor := &team.Principal{
			ID:          shared.NewID(),
			Memberships: []team.Membership{{TeamID: tm.ID(), Role: team.RoleAdmin}},
		}
		target := newTestUser("new@example.com")

		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)
		fix.users.On("GetByID", mock.Anything, target.ID()).Return(target, nil)
		fix.users.On("SetMembershipRole", mock.Anything, target.ID(), tm.ID(), team.RoleMember).
			Return(true, nil)

		err := fix.svc.AddMember(ctx, AddMemberInput{
			TeamID: tm.ID().String(),
			UserID: target.ID().String(),
			Role:   "member",
		}, actor)
		require.NoError(t, err)
		fix.users.AssertExpectations(t)
	})

	t.Run("editor cannot add", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		tm := newTestTeam("Platform", nil)
		actor := &team.Principal{
			ID:          shared.NewID(),
			Memberships: []team.Membership{{TeamID: tm.ID(), Role: team.RoleEditor}},
		}
		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)

		err := fix.svc.AddMember(ctx, AddMemberInput{
			TeamID: tm.ID().String(),
			UserID: shared.NewID().String(),
			Role:   "member",
		}, actor)
		assert.True(t, shared.IsForbidden(err))
	})

	t.Run("existing membership rejected", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		tm := newTestTeam("Platform", nil)
		actor := &team.Principal{
			ID:          shared.NewID(),
			Memberships: []team.Membership{{TeamID: tm.ID(), Role: team.RoleAdmin}},
		}
		target := newTestUser("dev@example.com", team.Membership{TeamID: tm.ID(), Role: team.RoleViewer})

		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)
		fix.users.On("GetByID", mock.Anything, target.ID()).Return(target, nil)

		err := fix.svc.AddMember(ctx, AddMemberInput{
			TeamID: tm.ID().String(),
			UserID: target.ID().String(),
			Role:   "member",
		}, actor)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestUpdateMemberRole(t *testing.T) {
	ctx := context.Background()

	tm := newTestTeam("Platform", nil)
	admin := func() *team.Principal {
		return &team.Principal{
			ID:          shared.NewID(),
			Memberships: []team.Membership{{TeamID: tm.ID(), Role: team.RoleAdmin}},
		}
	}

	t.Run("demoting sole admin refused by guard", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		target := newTestUser("solo@example.com", team.Membership{TeamID: tm.ID(), Role: team.RoleAdmin})

		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)
		fix.users.On("GetByID", mock.Anything, target.ID()).Return(target, nil)
		fix.users.On("FindUsersByTeamRole", mock.Anything, tm.ID(), team.RoleAdmin).
			Return([]*user.User{target}, nil)

		err := fix.svc.UpdateMemberRole(ctx, UpdateMemberRoleInput{
			TeamID: tm.ID().String(),
			UserID: target.ID().String(),
			Role:   "member",
		}, admin())
		assert.True(t, shared.IsBadRequest(err))
		fix.users.AssertNotCalled(t, "SetMembershipRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("demotion proceeds when another admin remains", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		target := newTestUser("one@example.com", team.Membership{TeamID: tm.ID(), Role: team.RoleAdmin})
		other := newTestUser("two@example.com", team.Membership{TeamID: tm.ID(), Role: team.RoleAdmin})

		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)
		fix.users.On("GetByID", mock.Anything, target.ID()).Return(target, nil)
		fix.users.On("FindUsersByTeamRole", mock.Anything, tm.ID(), team.RoleAdmin).
			Return([]*user.User{target, other}, nil)
		fix.users.On("SetMembershipRole", mock.Anything, target.ID(), tm.ID(), team.RoleEditor).
			Return(true, nil)

		err := fix.svc.UpdateMemberRole(ctx, UpdateMemberRoleInput{
			TeamID: tm.ID().String(),
			UserID: target.ID().String(),
			Role:   "editor",
		}, admin())
		require.NoError(t, err)
	})

	t.Run("conditional write losing the race is surfaced", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		target := newTestUser("one@example.com", team.Membership{TeamID: tm.ID(), Role: team.RoleAdmin})
		other := newTestUser("two@example.com", team.Membership{TeamID: tm.ID(), Role: team.RoleAdmin})

		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)
		fix.users.On("GetByID", mock.Anything, target.ID()).Return(target, nil)
		fix.users.On("FindUsersByTeamRole", mock.Anything, tm.ID(), team.RoleAdmin).
			Return([]*user.User{target, other}, nil)
		// The other admin was demoted concurrently; the server-side check
		// refuses the write.
		fix.users.On("SetMembershipRole", mock.Anything, target.ID(), tm.ID(), team.RoleEditor).
			Return(false, nil)

		err := fix.svc.UpdateMemberRole(ctx, UpdateMemberRoleInput{
			TeamID: tm.ID().String(),
			UserID: target.ID().String(),
			Role:   "editor",
		}, admin())
		assert.True(t, shared.IsBadRequest(err))
	})

	t.Run("no existing membership", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		target := newTestUser("none@example.com")

		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)
		fix.users.On("GetByID", mock.Anything, target.ID()).Return(target, nil)

		err := fix.svc.UpdateMemberRole(ctx, UpdateMemberRoleInput{
			TeamID: tm.ID().String(),
			UserID: target.ID().String(),
			Role:   "member",
		}, admin())
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()
	tm := newTestTeam("Platform", nil)

	t.Run("member removes themselves", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		target := newTestUser("self@example.com", team.Membership{TeamID: tm.ID(), Role: team.RoleMember})
		actor := &team.Principal{
			ID:          target.ID(),
			Memberships: []team.Membership{{TeamID: tm.ID(), Role: team.RoleMember}},
		}

		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)
		fix.users.On("GetByID", mock.Anything, target.ID()).Return(target, nil)
		fix.users.On("RemoveMembership", mock.Anything, target.ID(), tm.ID()).Return(true, nil)

		err := fix.svc.RemoveMember(ctx, tm.ID().String(), target.ID().String(), actor)
		require.NoError(t, err)
	})

	t.Run("non-admin cannot remove others", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		actor := &team.Principal{
			ID:          shared.NewID(),
			Memberships: []team.Membership{{TeamID: tm.ID(), Role: team.RoleMember}},
		}
		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)

		err := fix.svc.RemoveMember(ctx, tm.ID().String(), shared.NewID().String(), actor)
		assert.True(t, shared.IsForbidden(err))
	})

	t.Run("removing sole admin refused", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		target := newTestUser("solo@example.com", team.Membership{TeamID: tm.ID(), Role: team.RoleAdmin})
		actor := &team.Principal{
			ID:          target.ID(),
			Memberships: []team.Membership{{TeamID: tm.ID(), Role: team.RoleAdmin}},
		}

		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)
		fix.users.On("GetByID", mock.Anything, target.ID()).Return(target, nil)
		fix.users.On("FindUsersByTeamRole", mock.Anything, tm.ID(), team.RoleAdmin).
			Return([]*user.User{target}, nil)

		err := fix.svc.RemoveMember(ctx, tm.ID().String(), target.ID().String(), actor)
		assert.True(t, shared.IsBadRequest(err))
		fix.users.AssertNotCalled(t, "RemoveMembership", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeleteTeam(t *testing.T) {
	ctx := context.Background()

	t.Run("refused while team owns resources", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, fixedResourceCounter{count: 3})
		tm := newTestTeam("Platform", nil)
		actor := &team.Principal{
			ID:          shared.NewID(),
			Memberships: []team.Membership{{TeamID: tm.ID(), Role: team.RoleAdmin}},
		}
		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)

		err := fix.svc.DeleteTeam(ctx, tm.ID().String(), actor)
		assert.True(t, shared.IsBadRequest(err))
		fix.teams.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("empty team deleted", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		tm := newTestTeam("Platform", nil)
		actor := &team.Principal{
			ID:          shared.NewID(),
			Memberships: []team.Membership{{TeamID: tm.ID(), Role: team.RoleAdmin}},
		}
		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)
		fix.teams.On("Delete", mock.Anything, tm.ID()).Return(nil)

		err := fix.svc.DeleteTeam(ctx, tm.ID().String(), actor)
		require.NoError(t, err)
	})
}

func TestSearchMembers(t *testing.T) {
	ctx := context.Background()

	t.Run("viewer searches explicit members", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		tm := newTestTeam("Platform", nil)
		actor := &team.Principal{
			ID:          shared.NewID(),
			Memberships: []team.Membership{{TeamID: tm.ID(), Role: team.RoleViewer}},
		}
		found := []*user.User{newTestUser("a@example.com"), newTestUser("b@example.com")}

		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)
		fix.users.On("SearchMembers", mock.Anything, mock.Anything, 50, 0).
			Return(found, 2, nil)

		out, err := fix.svc.SearchMembers(ctx, SearchMembersInput{TeamID: tm.ID().String()}, actor)
		require.NoError(t, err)
		assert.Len(t, out.Users, 2)
		assert.Equal(t, 2, out.TotalCount)
	})

	t.Run("requester cannot search", func(t *testing.T) {
		fix := newTeamServiceFixture(team.Settings{}, nil)
		tm := newTestTeam("Platform", nil)
		actor := &team.Principal{
			ID:          shared.NewID(),
			Memberships: []team.Membership{{TeamID: tm.ID(), Role: team.RoleRequester}},
		}
		fix.teams.On("GetByID", mock.Anything, tm.ID()).Return(tm, nil)

		_, err := fix.svc.SearchMembers(ctx, SearchMembersInput{TeamID: tm.ID().String()}, actor)
		assert.True(t, shared.IsForbidden(err))
	})
}

package app

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/domain/user"
)

// MockTeamRepository is a mock implementation of team.Repository.
type MockTeamRepository struct {
	mock.Mock
}

func (m *MockTeamRepository) Create(ctx context.Context, t *team.Team) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTeamRepository) GetByID(ctx context.Context, id shared.ID) (*team.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*team.Team), args.Error(1)
}

func (m *MockTeamRepository) Update(ctx context.Context, t *team.Team) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTeamRepository) Delete(ctx context.Context, id shared.ID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTeamRepository) List(ctx context.Context) ([]*team.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*team.Team), args.Error(1)
}

func (m *MockTeamRepository) DistinctTeamIDsMatching(ctx context.Context, f team.Filter) ([]shared.ID, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shared.ID), args.Error(1)
}

// MockUserRepository is a mock implementation of user.Repository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id shared.ID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id shared.ID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) ListIDs(ctx context.Context) ([]shared.ID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shared.ID), args.Error(1)
}

func (m *MockUserRepository) UpdateMemberships(ctx context.Context, userID shared.ID, memberships []team.Membership) error {
	args := m.Called(ctx, userID, memberships)
	return args.Error(0)
}

func (m *MockUserRepository) FindUsersByTeamRole(ctx context.Context, teamID shared.ID, role team.Role) ([]*user.User, error) {
	args := m.Called(ctx, teamID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}

func (m *MockUserRepository) SearchMembers(ctx context.Context, f team.Filter, limit, offset int) ([]*user.User, int, error) {
	args := m.Called(ctx, f, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*user.User), args.Int(1), args.Error(2)
}

func (m *MockUserRepository) RemoveMembership(ctx context.Context, userID, teamID shared.ID) (bool, error) {
	args := m.Called(ctx, userID, teamID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) SetMembershipRole(ctx context.Context, userID, teamID shared.ID, role team.Role) (bool, error) {
	args := m.Called(ctx, userID, teamID, role)
	return args.Bool(0), args.Error(1)
}

// fixedResourceCounter reports a fixed resource count for every team.
type fixedResourceCounter struct {
	count int
}

func (c fixedResourceCounter) CountResourcesOwnedByTeam(_ context.Context, _ shared.ID) (int, error) {
	return c.count, nil
}

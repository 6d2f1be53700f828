// Package app provides the application services that sit between the HTTP
// layer and the team/user domain. Services own orchestration only; role
// resolution and invariants live in pkg/domain/team.
package app

import (
	"context"

	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/domain/user"
)

// principalStoreAdapter adapts user.Repository to team.PrincipalStore.
type principalStoreAdapter struct {
	users user.Repository
}

// NewPrincipalStore exposes the user repository as the principal store the
// invariant guard reads from.
func NewPrincipalStore(users user.Repository) team.PrincipalStore {
	return &principalStoreAdapter{users: users}
}

// FindPrincipalsByTeamRole implements team.PrincipalStore.
func (a *principalStoreAdapter) FindPrincipalsByTeamRole(ctx context.Context, teamID shared.ID, role team.Role) ([]*team.Principal, error) {
	users, err := a.users.FindUsersByTeamRole(ctx, teamID, role)
	if err != nil {
		return nil, err
	}

	principals := make([]*team.Principal, 0, len(users))
	for _, u := range users {
		principals = append(principals, u.Principal())
	}
	return principals, nil
}

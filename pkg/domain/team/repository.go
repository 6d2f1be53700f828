package team

import (
	"context"

	"github.com/openctemio/teams/pkg/domain/shared"
)

// Repository defines the interface for team persistence.
type Repository interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id shared.ID) (*Team, error)
	Update(ctx context.Context, t *Team) error
	Delete(ctx context.Context, id shared.ID) error
	List(ctx context.Context) ([]*Team, error)

	// DistinctTeamIDsMatching returns the ids of all teams matching the
	// filter, deduplicated.
	DistinctTeamIDsMatching(ctx context.Context, f Filter) ([]shared.ID, error)
}

// IDStore is the storage surface TeamIDResolver needs. *Repository
// implementations satisfy it.
type IDStore interface {
	DistinctTeamIDsMatching(ctx context.Context, f Filter) ([]shared.ID, error)
}

// PrincipalStore is the storage surface the invariant guard needs.
type PrincipalStore interface {
	// FindPrincipalsByTeamRole returns the authorization projections of
	// all users holding the explicit role on the team.
	FindPrincipalsByTeamRole(ctx context.Context, teamID shared.ID, role Role) ([]*Principal, error)
}

// ResourceCounter reports how many resources a team still owns. The
// default implementation reports zero; downstream systems plug in their
// own counting.
type ResourceCounter interface {
	CountResourcesOwnedByTeam(ctx context.Context, teamID shared.ID) (int, error)
}

// NoResources is the default ResourceCounter: teams own nothing.
type NoResources struct{}

// CountResourcesOwnedByTeam always returns zero.
func (NoResources) CountResourcesOwnedByTeam(_ context.Context, _ shared.ID) (int, error) {
	return 0, nil
}

package user

import (
	"context"

	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
)

// Repository defines the interface for user persistence.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id shared.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id shared.ID) error
	ListIDs(ctx context.Context) ([]shared.ID, error)

	// UpdateMemberships atomically replaces a user's membership list.
	UpdateMemberships(ctx context.Context, userID shared.ID, memberships []team.Membership) error

	// FindUsersByTeamRole returns all users holding the explicit role on
	// the team, with their full membership lists loaded.
	FindUsersByTeamRole(ctx context.Context, teamID shared.ID, role team.Role) ([]*User, error)

	// SearchMembers returns users matching the filter, paginated, with
	// the total match count.
	SearchMembers(ctx context.Context, f team.Filter, limit, offset int) ([]*User, int, error)

	// RemoveMembership deletes a user's membership on a team. When the
	// membership is an admin row the delete only proceeds if another
	// explicit admin remains, evaluated server-side in a single
	// statement; removed reports whether a row was deleted.
	RemoveMembership(ctx context.Context, userID, teamID shared.ID) (removed bool, err error)

	// SetMembershipRole upserts a user's role on a team. Demoting an
	// admin only proceeds if another explicit admin remains, evaluated
	// server-side; updated reports whether a row changed.
	SetMembershipRole(ctx context.Context, userID, teamID shared.ID, role team.Role) (updated bool, err error)
}

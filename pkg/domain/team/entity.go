package team

import (
	"fmt"
	"time"

	"github.com/openctemio/teams/pkg/domain/shared"
)

// Team represents a team entity. Teams can nest under a parent team;
// the full parent chain is denormalized into ancestors at creation time.
type Team struct {
	id                    shared.ID
	name                  string
	parentID              *shared.ID
	ancestors             []shared.ID
	implicitMembers       bool
	requiresExternalRoles []string
	requiresExternalTeams []string
	createdAt             time.Time
	updatedAt             time.Time
}

// NewTeam creates a new Team entity. When parent is non-nil the new team's
// ancestors are the parent's ancestors followed by the parent itself
// (root-first order). The list is frozen at creation: reparenting an
// ancestor later does not rewrite it.
func NewTeam(name string, parent *Team) (*Team, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrInvalidInput)
	}

	now := time.Now().UTC()
	t := &Team{
		id:        shared.NewID(),
		name:      name,
		createdAt: now,
		updatedAt: now,
	}

	if parent != nil {
		pid := parent.ID()
		t.parentID = &pid
		t.ancestors = append(append([]shared.ID{}, parent.ancestors...), pid)
	}

	return t, nil
}

// Reconstitute recreates a Team from persistence.
func Reconstitute(
	id shared.ID,
	name string,
	parentID *shared.ID,
	ancestors []shared.ID,
	implicitMembers bool,
	requiresExternalRoles, requiresExternalTeams []string,
	createdAt, updatedAt time.Time,
) *Team {
	return &Team{
		id:                    id,
		name:                  name,
		parentID:              parentID,
		ancestors:             ancestors,
		implicitMembers:       implicitMembers,
		requiresExternalRoles: requiresExternalRoles,
		requiresExternalTeams: requiresExternalTeams,
		createdAt:             createdAt,
		updatedAt:             updatedAt,
	}
}

// ID returns the team ID.
func (t *Team) ID() shared.ID {
	return t.id
}

// Name returns the team name.
func (t *Team) Name() string {
	return t.name
}

// ParentID returns the parent team ID, or nil for a root team.
func (t *Team) ParentID() *shared.ID {
	return t.parentID
}

// Ancestors returns the ancestor chain, root-first.
func (t *Team) Ancestors() []shared.ID {
	return append([]shared.ID{}, t.ancestors...)
}

// HasImplicitMembers reports whether implicit-membership evaluation
// applies to this team.
func (t *Team) HasImplicitMembers() bool {
	return t.implicitMembers
}

// RequiresExternalRoles returns the external role identifiers a user must
// all hold to qualify implicitly.
func (t *Team) RequiresExternalRoles() []string {
	return append([]string{}, t.requiresExternalRoles...)
}

// RequiresExternalTeams returns the external group identifiers of which a
// user must match at least one to qualify implicitly.
func (t *Team) RequiresExternalTeams() []string {
	return append([]string{}, t.requiresExternalTeams...)
}

// CreatedAt returns the creation timestamp.
func (t *Team) CreatedAt() time.Time {
	return t.createdAt
}

// UpdatedAt returns the last update timestamp.
func (t *Team) UpdatedAt() time.Time {
	return t.updatedAt
}

// UpdateName updates the team name.
func (t *Team) UpdateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrInvalidInput)
	}
	t.name = name
	t.updatedAt = time.Now().UTC()
	return nil
}

// SetImplicitMembers toggles implicit-membership evaluation.
func (t *Team) SetImplicitMembers(enabled bool) {
	t.implicitMembers = enabled
	t.updatedAt = time.Now().UTC()
}

// SetRequiredExternalRoles replaces the required external roles.
func (t *Team) SetRequiredExternalRoles(roles []string) {
	t.requiresExternalRoles = append([]string{}, roles...)
	t.updatedAt = time.Now().UTC()
}

// SetRequiredExternalTeams replaces the required external groups.
func (t *Team) SetRequiredExternalTeams(groups []string) {
	t.requiresExternalTeams = append([]string{}, groups...)
	t.updatedAt = time.Now().UTC()
}

// IsAncestorOf reports whether this team appears in other's ancestor chain.
func (t *Team) IsAncestorOf(other *Team) bool {
	for _, a := range other.ancestors {
		if a.Equals(t.id) {
			return true
		}
	}
	return false
}

// Package user provides the user entity and its persistence contract.
package user

import (
	"fmt"
	"time"

	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
)

// User represents a user entity. Team memberships stored here are the
// explicit list plus the login-time rebuilt cache; implicit membership is
// never materialized outside a rebuild.
type User struct {
	id                shared.ID
	email             string
	name              string
	memberships       []team.Membership
	externalRoles     []string
	externalGroups    []string
	bypassAccessCheck bool
	lastLoginAt       *time.Time
	createdAt         time.Time
	updatedAt         time.Time
}

// New creates a new User entity.
func New(email, name string) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", shared.ErrInvalidInput)
	}

	now := time.Now().UTC()
	return &User{
		id:        shared.NewID(),
		email:     email,
		name:      name,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstitute recreates a User from persistence.
func Reconstitute(
	id shared.ID,
	email, name string,
	memberships []team.Membership,
	externalRoles, externalGroups []string,
	bypassAccessCheck bool,
	lastLoginAt *time.Time,
	createdAt, updatedAt time.Time,
) *User {
	return &User{
		id:                id,
		email:             email,
		name:              name,
		memberships:       memberships,
		externalRoles:     externalRoles,
		externalGroups:    externalGroups,
		bypassAccessCheck: bypassAccessCheck,
		lastLoginAt:       lastLoginAt,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// ID returns the user ID.
func (u *User) ID() shared.ID {
	return u.id
}

// Email returns the user email.
func (u *User) Email() string {
	return u.email
}

// Name returns the user display name.
func (u *User) Name() string {
	return u.name
}

// Memberships returns the user's team membership list.
func (u *User) Memberships() []team.Membership {
	return append([]team.Membership{}, u.memberships...)
}

// ExternalRoles returns the user's external (IdP-provided) role identifiers.
func (u *User) ExternalRoles() []string {
	return append([]string{}, u.externalRoles...)
}

// ExternalGroups returns the user's external group identifiers.
func (u *User) ExternalGroups() []string {
	return append([]string{}, u.externalGroups...)
}

// BypassAccessCheck reports whether implicit-team-matching predicates
// short-circuit to true for this user.
func (u *User) BypassAccessCheck() bool {
	return u.bypassAccessCheck
}

// LastLoginAt returns the last login timestamp, if any.
func (u *User) LastLoginAt() *time.Time {
	return u.lastLoginAt
}

// CreatedAt returns the creation timestamp.
func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

// UpdatedAt returns the last update timestamp.
func (u *User) UpdatedAt() time.Time {
	return u.updatedAt
}

// Principal returns the authorization projection of the user.
func (u *User) Principal() *team.Principal {
	return &team.Principal{
		ID:                u.id,
		Memberships:       append([]team.Membership{}, u.memberships...),
		ExternalRoles:     append([]string{}, u.externalRoles...),
		ExternalGroups:    append([]string{}, u.externalGroups...),
		BypassAccessCheck: u.bypassAccessCheck,
	}
}

// UpdateName updates the display name.
func (u *User) UpdateName(name string) {
	u.name = name
	u.updatedAt = time.Now().UTC()
}

// SetExternalAttributes replaces the IdP-provided roles and groups.
func (u *User) SetExternalAttributes(roles, groups []string) {
	u.externalRoles = append([]string{}, roles...)
	u.externalGroups = append([]string{}, groups...)
	u.updatedAt = time.Now().UTC()
}

// SetBypassAccessCheck toggles the implicit-matching bypass.
func (u *User) SetBypassAccessCheck(bypass bool) {
	u.bypassAccessCheck = bypass
	u.updatedAt = time.Now().UTC()
}

// SetMemberships replaces the membership list.
func (u *User) SetMemberships(memberships []team.Membership) {
	u.memberships = append([]team.Membership{}, memberships...)
	u.updatedAt = time.Now().UTC()
}

// RecordLogin stamps the last login time.
func (u *User) RecordLogin(at time.Time) {
	t := at.UTC()
	u.lastLoginAt = &t
	u.updatedAt = t
}

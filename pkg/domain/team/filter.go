package team

import (
	"github.com/openctemio/teams/pkg/domain/shared"
)

// Field names usable in storage filters. Repositories map these to their
// own column names; unknown fields are a compile error there, not here.
const (
	FieldID                    = "id"
	FieldAncestors             = "ancestors"
	FieldImplicitMembers       = "implicit_members"
	FieldRequiresExternalRoles = "requires_external_roles"
	FieldRequiresExternalTeams = "requires_external_teams"
	FieldExternalRoles         = "external_roles"
	FieldExternalGroups        = "external_groups"
	FieldBypassAccessCheck     = "bypass_access_check"
)

// Filter is an immutable boolean predicate over stored records. Builders
// return new values and never mutate their inputs, so a filter can be
// composed and reused across calls safely.
type Filter interface {
	isFilter()
}

// EqFilter matches records where a scalar field equals a value.
type EqFilter struct {
	Field string
	Value any
}

// InFilter matches records where a scalar field equals any of the values.
type InFilter struct {
	Field  string
	Values []any
}

// ContainsAllFilter matches records whose array field contains every one
// of the given values.
type ContainsAllFilter struct {
	Field  string
	Values []string
}

// OverlapsFilter matches records whose array field shares at least one
// element with the given values.
type OverlapsFilter struct {
	Field  string
	Values []string
}

// ContainedByFilter matches records whose array field is non-empty and
// fully contained in the given values. The non-empty requirement is part
// of the predicate: an empty stored requirement never matches vacuously.
type ContainedByFilter struct {
	Field  string
	Values []string
}

// AncestorOverlapsFilter matches teams whose ancestor chain intersects the
// given team ids.
type AncestorOverlapsFilter struct {
	TeamIDs []shared.ID
}

// MembershipMatchFilter matches users holding an explicit membership on a
// team, optionally constrained to a set of roles (empty = any role).
type MembershipMatchFilter struct {
	TeamID shared.ID
	Roles  []Role
}

// NotFilter negates a filter.
type NotFilter struct {
	Inner Filter
}

// AndFilter is the conjunction of its branches.
type AndFilter struct {
	Filters []Filter
}

// OrFilter is the disjunction of its branches.
type OrFilter struct {
	Filters []Filter
}

// NothingFilter is an impossible-to-satisfy predicate. It is used instead
// of an empty or omitted filter whenever a query must match zero records.
type NothingFilter struct{}

func (EqFilter) isFilter()              {}
func (InFilter) isFilter()              {}
func (ContainsAllFilter) isFilter()     {}
func (OverlapsFilter) isFilter()        {}
func (ContainedByFilter) isFilter()     {}
func (AncestorOverlapsFilter) isFilter() {}
func (MembershipMatchFilter) isFilter() {}
func (NotFilter) isFilter()             {}
func (AndFilter) isFilter()             {}
func (OrFilter) isFilter()              {}
func (NothingFilter) isFilter()         {}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return EqFilter{Field: field, Value: value}
}

// In builds a membership filter over scalar values. An empty value set
// matches nothing.
func In(field string, values ...any) Filter {
	if len(values) == 0 {
		return Nothing()
	}
	return InFilter{Field: field, Values: values}
}

// ContainsAll builds an array-containment filter. An empty value set
// matches nothing rather than everything.
func ContainsAll(field string, values []string) Filter {
	if len(values) == 0 {
		return Nothing()
	}
	return ContainsAllFilter{Field: field, Values: append([]string{}, values...)}
}

// Overlaps builds an array-intersection filter. An empty value set matches
// nothing.
func Overlaps(field string, values []string) Filter {
	if len(values) == 0 {
		return Nothing()
	}
	return OverlapsFilter{Field: field, Values: append([]string{}, values...)}
}

// ContainedBy builds a filter matching records whose non-empty array field
// is a subset of values. An empty value set matches nothing.
func ContainedBy(field string, values []string) Filter {
	if len(values) == 0 {
		return Nothing()
	}
	return ContainedByFilter{Field: field, Values: append([]string{}, values...)}
}

// AncestorsOverlap builds a filter matching teams whose ancestors
// intersect ids.
func AncestorsOverlap(ids []shared.ID) Filter {
	if len(ids) == 0 {
		return Nothing()
	}
	return AncestorOverlapsFilter{TeamIDs: append([]shared.ID{}, ids...)}
}

// HasMembership builds a filter matching users with an explicit membership
// on teamID, optionally constrained to roles.
func HasMembership(teamID shared.ID, roles ...Role) Filter {
	return MembershipMatchFilter{TeamID: teamID, Roles: append([]Role{}, roles...)}
}

// Not negates a filter.
func Not(f Filter) Filter {
	return NotFilter{Inner: f}
}

// And builds a conjunction. A single branch is returned unwrapped.
func And(filters ...Filter) Filter {
	switch len(filters) {
	case 0:
		return Nothing()
	case 1:
		return filters[0]
	}
	return AndFilter{Filters: append([]Filter{}, filters...)}
}

// Or builds a disjunction. An empty disjunction is Nothing, never a
// match-all, so a caller asking for an impossible combination gets zero
// results instead of every record.
func Or(filters ...Filter) Filter {
	switch len(filters) {
	case 0:
		return Nothing()
	case 1:
		return filters[0]
	}
	return OrFilter{Filters: append([]Filter{}, filters...)}
}

// Nothing returns the impossible predicate.
func Nothing() Filter {
	return NothingFilter{}
}

// IsNothing reports whether f can never match.
func IsNothing(f Filter) bool {
	_, ok := f.(NothingFilter)
	return ok
}

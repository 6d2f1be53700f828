package team

import (
	"fmt"

	"github.com/openctemio/teams/pkg/domain/shared"
)

// Gate turns role resolution into allow/deny decisions.
type Gate struct {
	resolver *Resolver
}

// NewGate creates a new Gate.
func NewGate(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// RequireRole succeeds when the principal's active role on the team meets
// or exceeds the required role, and fails with ErrForbidden otherwise.
func (g *Gate) RequireRole(p *Principal, t *Team, required Role) error {
	if p == nil {
		return fmt.Errorf("%w: principal is required", shared.ErrInvalidUser)
	}
	if active, ok := g.resolver.ActiveTeamRole(p, t); ok && active.MeetsOrExceeds(required) {
		return nil
	}
	return fmt.Errorf("%w: missing-roles", shared.ErrForbidden)
}

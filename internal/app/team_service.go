package app

import (
	"context"
	"fmt"

	"github.com/openctemio/teams/internal/infra/jobs"
	"github.com/openctemio/teams/internal/metrics"
	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/domain/user"
	"github.com/openctemio/teams/pkg/logger"
)

// TeamService handles team and membership business operations.
type TeamService struct {
	teams    team.Repository
	users    user.Repository
	resolver *team.Resolver
	gate     *team.Gate
	guard    *team.Guard
	idsCache *TeamIDsCacheService
	jobs     *jobs.Client
	logger   *logger.Logger
}

// TeamServiceOption is a functional option for TeamService.
type TeamServiceOption func(*TeamService)

// WithTeamIDsCache sets the team-id cache used for visibility filtering
// and invalidated on membership mutations.
func WithTeamIDsCache(cache *TeamIDsCacheService) TeamServiceOption {
	return func(s *TeamService) {
		s.idsCache = cache
	}
}

// WithJobClient sets the background job client for member notifications.
func WithJobClient(client *jobs.Client) TeamServiceOption {
	return func(s *TeamService) {
		s.jobs = client
	}
}

// NewTeamService creates a new TeamService.
func NewTeamService(
	teams team.Repository,
	users user.Repository,
	resolver *team.Resolver,
	guard *team.Guard,
	log *logger.Logger,
	opts ...TeamServiceOption,
) *TeamService {
	s := &TeamService{
		teams:    teams,
		users:    users,
		resolver: resolver,
		gate:     team.NewGate(resolver),
		guard:    guard,
		logger:   log.With("service", "team"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requireRole gates an operation on the actor's active role, recording the
// decision.
func (s *TeamService) requireRole(p *team.Principal, t *team.Team, required team.Role) error {
	err := s.gate.RequireRole(p, t, required)
	decision := "allowed"
	if err != nil {
		decision = "denied"
	}
	metrics.AccessDecisionsTotal.WithLabelValues(required.String(), decision).Inc()
	return err
}

// =============================================================================
// TEAM CRUD OPERATIONS
// =============================================================================

// CreateTeamInput represents the input for creating a team.
type CreateTeamInput struct {
	Name                  string   `json:"name" validate:"required,min=2,max=100"`
	ParentID              *string  `json:"parent_id,omitempty" validate:"omitempty,uuid"`
	ImplicitMembers       bool     `json:"implicit_members"`
	RequiredExternalRoles []string `json:"required_external_roles,omitempty"`
	RequiredExternalTeams []string `json:"required_external_teams,omitempty"`
}

// CreateTeam creates a new team and makes the creator its admin. Creating
// a subteam requires admin on the parent.
func (s *TeamService) CreateTeam(ctx context.Context, input CreateTeamInput, creator *team.Principal) (*team.Team, error) {
	if creator == nil {
		return nil, fmt.Errorf("%w: principal is required", shared.ErrInvalidUser)
	}

	var parent *team.Team
	if input.ParentID != nil {
		parentID, err := shared.IDFromString(*input.ParentID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid parent team id format", shared.ErrInvalidInput)
		}
		parent, err = s.teams.GetByID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if err := s.requireRole(creator, parent, team.RoleAdmin); err != nil {
			return nil, err
		}
	}

	t, err := team.NewTeam(input.Name, parent)
	if err != nil {
		return nil, err
	}

	t.SetImplicitMembers(input.ImplicitMembers)
	if len(input.RequiredExternalRoles) > 0 {
		t.SetRequiredExternalRoles(input.RequiredExternalRoles)
	}
	if len(input.RequiredExternalTeams) > 0 {
		t.SetRequiredExternalTeams(input.RequiredExternalTeams)
	}

	if err := s.teams.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	if _, err := s.users.SetMembershipRole(ctx, creator.ID, t.ID(), team.RoleAdmin); err != nil {
		// Roll back so a team never exists without an admin.
		_ = s.teams.Delete(ctx, t.ID())
		return nil, fmt.Errorf("failed to add creator as team admin: %w", err)
	}

	s.invalidateTeamIDs(ctx, creator.ID)

	s.logger.Info("team created", "team_id", t.ID().String(), "name", t.Name(), "creator", creator.ID.String())
	return t, nil
}

// GetTeam retrieves a team, requiring at least viewer access.
func (s *TeamService) GetTeam(ctx context.Context, teamID string, actor *team.Principal) (*team.Team, error) {
	t, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(actor, t, team.RoleViewer); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTeams lists the teams the principal can see: every team the
// principal reaches at member or above, plus teams holding any explicit
// role below member.
func (s *TeamService) ListTeams(ctx context.Context, actor *team.Principal) ([]*team.Team, error) {
	if actor == nil {
		return nil, fmt.Errorf("%w: principal is required", shared.ErrInvalidUser)
	}

	all, err := s.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	var reachable []shared.ID
	if s.idsCache != nil {
		reachable, err = s.idsCache.AccessibleTeamIDs(ctx, actor)
	} else {
		ids := team.NewTeamIDResolver(s.resolver, s.teams)
		reachable, err = ids.FilterTeamIDs(ctx, actor, nil)
	}
	if err != nil {
		return nil, err
	}

	visible := make(map[string]struct{}, len(reachable))
	for _, id := range reachable {
		visible[id.String()] = struct{}{}
	}
	for _, m := range actor.Memberships {
		if m.Role != team.RoleBlocked {
			visible[m.TeamID.String()] = struct{}{}
		}
	}

	out := make([]*team.Team, 0, len(all))
	for _, t := range all {
		if _, ok := visible[t.ID().String()]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// UpdateTeamInput represents the input for updating a team.
type UpdateTeamInput struct {
	Name                  *string   `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	ImplicitMembers       *bool     `json:"implicit_members,omitempty"`
	RequiredExternalRoles *[]string `json:"required_external_roles,omitempty"`
	RequiredExternalTeams *[]string `json:"required_external_teams,omitempty"`
}

// UpdateTeam updates a team. Requires admin on the team. The ancestor
// chain is never rewritten here.
func (s *TeamService) UpdateTeam(ctx context.Context, teamID string, input UpdateTeamInput, actor *team.Principal) (*team.Team, error) {
	t, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(actor, t, team.RoleAdmin); err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := t.UpdateName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.ImplicitMembers != nil {
		t.SetImplicitMembers(*input.ImplicitMembers)
	}
	if input.RequiredExternalRoles != nil {
		t.SetRequiredExternalRoles(*input.RequiredExternalRoles)
	}
	if input.RequiredExternalTeams != nil {
		t.SetRequiredExternalTeams(*input.RequiredExternalTeams)
	}

	if err := s.teams.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}

	s.logger.Info("team updated", "team_id", teamID)
	return t, nil
}

// DeleteTeam deletes a team. Requires admin on the team, and the team must
// own no resources.
func (s *TeamService) DeleteTeam(ctx context.Context, teamID string, actor *team.Principal) error {
	t, err := s.getTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if err := s.requireRole(actor, t, team.RoleAdmin); err != nil {
		return err
	}
	if err := s.guard.VerifyNoResourcesInTeam(ctx, t); err != nil {
		return err
	}

	if err := s.teams.Delete(ctx, t.ID()); err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}

	s.invalidateTeamIDs(ctx, actor.ID)

	s.logger.Info("team deleted", "team_id", teamID, "name", t.Name())
	return nil
}

// =============================================================================
// MEMBER OPERATIONS
// =============================================================================

// AddMemberInput represents the input for adding a member to a team.
type AddMemberInput struct {
	TeamID string `json:"-"`
	UserID string `json:"user_id" validate:"required,uuid"`
	Role   string `json:"role" validate:"required,team_role"`
}

// AddMember grants a user an explicit role on a team. Requires admin on
// the team. Adding over an existing membership is an update and goes
// through UpdateMemberRole's demotion guard instead.
func (s *TeamService) AddMember(ctx context.Context, input AddMemberInput, actor *team.Principal) error {
	t, err := s.getTeam(ctx, input.TeamID)
	if err != nil {
		return err
	}
	if err := s.requireRole(actor, t, team.RoleAdmin); err != nil {
		metrics.MemberOperationsTotal.WithLabelValues("add", "rejected").Inc()
		return err
	}

	role, ok := team.ParseRole(input.Role)
	if !ok {
		return fmt.Errorf("%w: invalid role %q", shared.ErrInvalidInput, input.Role)
	}

	target, err := s.getUser(ctx, input.UserID)
	if err != nil {
		return err
	}

	if _, ok := target.Principal().ExplicitRole(t.ID()); ok {
		return fmt.Errorf("%w: user already has a role on this team", shared.ErrAlreadyExists)
	}

	if _, err := s.users.SetMembershipRole(ctx, target.ID(), t.ID(), role); err != nil {
		metrics.MemberOperationsTotal.WithLabelValues("add", "error").Inc()
		return fmt.Errorf("failed to add member: %w", err)
	}
	metrics.MemberOperationsTotal.WithLabelValues("add", "ok").Inc()

	s.invalidateTeamIDs(ctx, target.ID())
	s.logger.Info("member added", "team_id", input.TeamID, "user_id", input.UserID, "role", role.String())

	s.enqueue(ctx, func(c *jobs.Client) error {
		return c.EnqueueMemberAdded(ctx, jobs.MemberAddedPayload{
			UserID:    target.ID().String(),
			UserEmail: target.Email(),
			UserName:  target.Name(),
			TeamID:    t.ID().String(),
			TeamName:  t.Name(),
			Role:      role.String(),
			AddedBy:   actor.ID.String(),
		})
	})

	return nil
}

// UpdateMemberRoleInput represents the input for changing a member's role.
type UpdateMemberRoleInput struct {
	TeamID string `json:"-"`
	UserID string `json:"-"`
	Role   string `json:"role" validate:"required,team_role"`
}

// UpdateMemberRole changes a member's explicit role. Requires admin on the
// team. Demoting the last active admin is refused; the final write
// re-evaluates the admin count server-side so concurrent demotions cannot
// race past the check.
func (s *TeamService) UpdateMemberRole(ctx context.Context, input UpdateMemberRoleInput, actor *team.Principal) error {
	t, err := s.getTeam(ctx, input.TeamID)
	if err != nil {
		return err
	}
	if err := s.requireRole(actor, t, team.RoleAdmin); err != nil {
		metrics.MemberOperationsTotal.WithLabelValues("update_role", "rejected").Inc()
		return err
	}

	role, ok := team.ParseRole(input.Role)
	if !ok {
		return fmt.Errorf("%w: invalid role %q", shared.ErrInvalidInput, input.Role)
	}

	target, err := s.getUser(ctx, input.UserID)
	if err != nil {
		return err
	}

	oldRole, hadRole := target.Principal().ExplicitRole(t.ID())
	if !hadRole {
		return fmt.Errorf("%w: user has no role on this team", shared.ErrNotFound)
	}
	if oldRole == role {
		return nil
	}

	if oldRole == team.RoleAdmin && role != team.RoleAdmin {
		if err := s.guard.VerifyNotLastAdmin(ctx, target.Principal(), t); err != nil {
			metrics.MemberOperationsTotal.WithLabelValues("update_role", "rejected").Inc()
			metrics.LastAdminRejections.Inc()
			return err
		}
	}

	updated, err := s.users.SetMembershipRole(ctx, target.ID(), t.ID(), role)
	if err != nil {
		metrics.MemberOperationsTotal.WithLabelValues("update_role", "error").Inc()
		return fmt.Errorf("failed to update member role: %w", err)
	}
	if !updated {
		// The conditional write found no other admin left.
		metrics.MemberOperationsTotal.WithLabelValues("update_role", "rejected").Inc()
		metrics.LastAdminRejections.Inc()
		return fmt.Errorf("%w: team must have at least one admin", shared.ErrBadRequest)
	}
	metrics.MemberOperationsTotal.WithLabelValues("update_role", "ok").Inc()

	s.invalidateTeamIDs(ctx, target.ID())
	s.logger.Info("member role updated",
		"team_id", input.TeamID,
		"user_id", input.UserID,
		"old_role", oldRole.String(),
		"new_role", role.String(),
	)

	s.enqueue(ctx, func(c *jobs.Client) error {
		return c.EnqueueRoleChanged(ctx, jobs.RoleChangedPayload{
			UserID:    target.ID().String(),
			UserEmail: target.Email(),
			UserName:  target.Name(),
			TeamID:    t.ID().String(),
			TeamName:  t.Name(),
			OldRole:   oldRole.String(),
			NewRole:   role.String(),
			ChangedBy: actor.ID.String(),
		})
	})

	return nil
}

// RemoveMember removes a user's explicit membership. Admins can remove
// anyone; any member can remove themselves. Removing the last active admin
// is refused.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID string, actor *team.Principal) error {
	t, err := s.getTeam(ctx, teamID)
	if err != nil {
		return err
	}

	selfRemoval := actor != nil && actor.ID.String() == userID
	if !selfRemoval {
		if err := s.requireRole(actor, t, team.RoleAdmin); err != nil {
			metrics.MemberOperationsTotal.WithLabelValues("remove", "rejected").Inc()
			return err
		}
	}

	target, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	oldRole, hadRole := target.Principal().ExplicitRole(t.ID())
	if !hadRole {
		return fmt.Errorf("%w: user has no role on this team", shared.ErrNotFound)
	}

	if oldRole == team.RoleAdmin {
		if err := s.guard.VerifyNotLastAdmin(ctx, target.Principal(), t); err != nil {
			metrics.MemberOperationsTotal.WithLabelValues("remove", "rejected").Inc()
			metrics.LastAdminRejections.Inc()
			return err
		}
	}

	removed, err := s.users.RemoveMembership(ctx, target.ID(), t.ID())
	if err != nil {
		metrics.MemberOperationsTotal.WithLabelValues("remove", "error").Inc()
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if !removed {
		metrics.MemberOperationsTotal.WithLabelValues("remove", "rejected").Inc()
		metrics.LastAdminRejections.Inc()
		return fmt.Errorf("%w: team must have at least one admin", shared.ErrBadRequest)
	}
	metrics.MemberOperationsTotal.WithLabelValues("remove", "ok").Inc()

	s.invalidateTeamIDs(ctx, target.ID())
	s.logger.Info("member removed", "team_id", teamID, "user_id", userID, "old_role", oldRole.String())

	s.enqueue(ctx, func(c *jobs.Client) error {
		removedBy := userID
		if !selfRemoval {
			removedBy = actor.ID.String()
		}
		return c.EnqueueMemberRemoved(ctx, jobs.MemberRemovedPayload{
			UserID:    target.ID().String(),
			UserEmail: target.Email(),
			UserName:  target.Name(),
			TeamID:    t.ID().String(),
			TeamName:  t.Name(),
			RemovedBy: removedBy,
		})
	})

	return nil
}

// =============================================================================
// MEMBER SEARCH
// =============================================================================

// SearchMembersInput represents the input for searching team members.
type SearchMembersInput struct {
	TeamID string   `json:"-"`
	Types  []string `json:"types,omitempty" validate:"dive,member_type"`
	Roles  []string `json:"roles,omitempty" validate:"dive,team_role"`
	Limit  int      `json:"limit" validate:"min=0,max=200"`
	Offset int      `json:"offset" validate:"min=0"`
}

// SearchMembersOutput represents the output of a member search.
type SearchMembersOutput struct {
	Users      []*user.User
	TotalCount int
}

// SearchMembers finds the team's members by membership type and role.
// Requires viewer access. Unknown type or role names are skipped rather
// than rejected; a criteria combination no user can satisfy returns an
// empty page.
func (s *TeamService) SearchMembers(ctx context.Context, input SearchMembersInput, actor *team.Principal) (*SearchMembersOutput, error) {
	t, err := s.getTeam(ctx, input.TeamID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(actor, t, team.RoleViewer); err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}

	f := s.resolver.MemberFilter(t, team.ParseMemberTypes(input.Types), team.ParseRoles(input.Roles))

	users, total, err := s.users.SearchMembers(ctx, f, limit, input.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search members: %w", err)
	}

	return &SearchMembersOutput{Users: users, TotalCount: total}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *TeamService) getTeam(ctx context.Context, teamID string) (*team.Team, error) {
	id, err := shared.IDFromString(teamID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid team id format", shared.ErrInvalidInput)
	}
	return s.teams.GetByID(ctx, id)
}

func (s *TeamService) getUser(ctx context.Context, userID string) (*user.User, error) {
	id, err := shared.IDFromString(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id format", shared.ErrInvalidInput)
	}
	return s.users.GetByID(ctx, id)
}

func (s *TeamService) invalidateTeamIDs(ctx context.Context, userID shared.ID) {
	if s.idsCache != nil {
		s.idsCache.Invalidate(ctx, userID)
	}
}

func (s *TeamService) enqueue(_ context.Context, fn func(*jobs.Client) error) {
	if s.jobs == nil {
		return
	}
	if err := fn(s.jobs); err != nil {
		s.logger.Error("failed to enqueue notification", "error", err)
	}
}

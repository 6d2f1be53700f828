package app

import (
	"context"
	"fmt"
	"time"

	"github.com/openctemio/teams/internal/metrics"
	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/domain/user"
	"github.com/openctemio/teams/pkg/jwt"
	"github.com/openctemio/teams/pkg/logger"
)

// UserService handles user lifecycle operations, most importantly the
// login path that refreshes external attributes and rebuilds the cached
// membership list.
type UserService struct {
	users     user.Repository
	rebuilder *team.Rebuilder
	roleMap   ExternalRoleMapProvider
	idsCache  *TeamIDsCacheService
	logger    *logger.Logger
}

// UserServiceOption is a functional option for UserService.
type UserServiceOption func(*UserService)

// WithUserTeamIDsCache sets the team-id cache invalidated after rebuilds.
func WithUserTeamIDsCache(cache *TeamIDsCacheService) UserServiceOption {
	return func(s *UserService) {
		s.idsCache = cache
	}
}

// NewUserService creates a new UserService.
func NewUserService(
	users user.Repository,
	rebuilder *team.Rebuilder,
	roleMap ExternalRoleMapProvider,
	log *logger.Logger,
	opts ...UserServiceOption,
) *UserService {
	if roleMap == nil {
		roleMap = PassthroughRoleMap{}
	}
	s := &UserService{
		users:     users,
		rebuilder: rebuilder,
		roleMap:   roleMap,
		logger:    log.With("service", "user"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleLogin upserts the user from verified token claims, refreshes the
// external attributes through the role map, rebuilds the cached membership
// list, and stamps the login time. Implicit and nested grants only change
// here, never mid-session.
func (s *UserService) HandleLogin(ctx context.Context, claims *jwt.Claims) (*user.User, error) {
	if claims == nil || claims.Email == "" {
		return nil, fmt.Errorf("%w: token claims missing email", shared.ErrInvalidUser)
	}

	u, err := s.users.GetByEmail(ctx, claims.Email)
	created := false
	switch {
	case err == nil:
	case shared.IsNotFound(err):
		u, err = user.New(claims.Email, claims.Name)
		if err != nil {
			return nil, err
		}
		created = true
	default:
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if claims.Name != "" && claims.Name != u.Name() {
		u.UpdateName(claims.Name)
	}
	u.SetExternalAttributes(
		s.roleMap.MapRoles(claims.ExternalRoles),
		s.roleMap.MapGroups(claims.ExternalGroups),
	)
	u.SetBypassAccessCheck(claims.BypassAccessCheck)
	u.RecordLogin(time.Now())

	if created {
		if err := s.users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.logger.Info("user created on first login", "user_id", u.ID().String())
	} else if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := s.rebuildMemberships(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("login handled", "user_id", u.ID().String())
	return u, nil
}

// RebuildUserMemberships rebuilds one user's cached membership list. It
// implements jobs.MembershipRebuilder for the background worker.
func (s *UserService) RebuildUserMemberships(ctx context.Context, userID string) error {
	id, err := shared.IDFromString(userID)
	if err != nil {
		return fmt.Errorf("%w: invalid user id format", shared.ErrInvalidInput)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return s.rebuildMemberships(ctx, u)
}

// RebuildAllMemberships rebuilds every user's cached membership list and
// returns how many users were processed. Used by the admin CLI after
// settings or team-requirement changes.
func (s *UserService) RebuildAllMemberships(ctx context.Context) (int, error) {
	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	processed := 0
	for _, id := range ids {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			s.logger.Error("skipping user during bulk rebuild", "user_id", id.String(), "error", err)
			continue
		}
		if err := s.rebuildMemberships(ctx, u); err != nil {
			s.logger.Error("rebuild failed during bulk rebuild", "user_id", id.String(), "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

// GetUser retrieves a user by id.
func (s *UserService) GetUser(ctx context.Context, userID string) (*user.User, error) {
	id, err := shared.IDFromString(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id format", shared.ErrInvalidInput)
	}
	return s.users.GetByID(ctx, id)
}

// rebuildMemberships recomputes the admin/editor/member tiers and persists
// the result. Explicit rows below member (viewer, requester, blocked) are
// preserved verbatim: the rebuild collapses grants, it never revokes an
// explicit low role or an explicit block.
func (s *UserService) rebuildMemberships(ctx context.Context, u *user.User) error {
	start := time.Now()

	rebuilt, changed, err := s.rebuilder.RebuildMemberships(ctx, u.Principal())
	if err != nil {
		metrics.MembershipRebuildsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to rebuild memberships: %w", err)
	}
	if !changed {
		metrics.MembershipRebuildsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	// An explicit low role or block outranks anything the rebuild derived
	// for the same team; a team id must appear at most once.
	preserved := make([]team.Membership, 0)
	preservedIDs := make(map[string]struct{})
	for _, m := range u.Memberships() {
		switch m.Role {
		case team.RoleViewer, team.RoleRequester, team.RoleBlocked:
			preserved = append(preserved, m)
			preservedIDs[m.TeamID.String()] = struct{}{}
		}
	}
	merged := make([]team.Membership, 0, len(rebuilt)+len(preserved))
	for _, m := range rebuilt {
		if _, ok := preservedIDs[m.TeamID.String()]; !ok {
			merged = append(merged, m)
		}
	}
	rebuilt = append(merged, preserved...)

	if err := s.users.UpdateMemberships(ctx, u.ID(), rebuilt); err != nil {
		metrics.MembershipRebuildsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to persist memberships: %w", err)
	}
	u.SetMemberships(rebuilt)

	if s.idsCache != nil {
		s.idsCache.Invalidate(ctx, u.ID())
	}

	metrics.MembershipRebuildsTotal.WithLabelValues("rebuilt").Inc()
	metrics.MembershipRebuildDuration.Observe(time.Since(start).Seconds())
	metrics.MembershipsRebuilt.Observe(float64(len(rebuilt)))

	s.logger.Info("memberships rebuilt",
		"user_id", u.ID().String(),
		"memberships", len(rebuilt),
	)
	return nil
}

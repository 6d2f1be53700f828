package app

import (
	"context"
	"time"

	"github.com/openctemio/teams/internal/infra/redis"
	"github.com/openctemio/teams/internal/metrics"
	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/logger"
)

// TeamIDsCacheService caches each principal's accessible team-id set
// (member and above). Implicit and nested resolution hit storage, so the
// set is worth caching between logins; any membership mutation must
// invalidate the affected user's entry.
type TeamIDsCacheService struct {
	ids    *team.TeamIDResolver
	cache  *redis.Cache[[]string]
	logger *logger.Logger
}

// NewTeamIDsCacheService creates a new TeamIDsCacheService. A nil cache
// disables caching; every call resolves from storage.
func NewTeamIDsCacheService(ids *team.TeamIDResolver, cache *redis.Cache[[]string], log *logger.Logger) *TeamIDsCacheService {
	return &TeamIDsCacheService{
		ids:    ids,
		cache:  cache,
		logger: log.With("service", "team_ids_cache"),
	}
}

// AccessibleTeamIDs returns the principal's member/editor/admin team ids,
// from cache when possible.
func (s *TeamIDsCacheService) AccessibleTeamIDs(ctx context.Context, p *team.Principal) ([]shared.ID, error) {
	start := time.Now()
	defer func() {
		metrics.TeamIDResolutionDuration.Observe(time.Since(start).Seconds())
	}()

	if s.cache == nil {
		return s.ids.FilterTeamIDs(ctx, p, nil)
	}

	cached, err := s.cache.GetOrSet(ctx, p.ID.String(), func(ctx context.Context) (*[]string, error) {
		ids, err := s.ids.FilterTeamIDs(ctx, p, nil)
		if err != nil {
			return nil, err
		}
		strs := make([]string, len(ids))
		for i, id := range ids {
			strs[i] = id.String()
		}
		return &strs, nil
	})
	if err != nil {
		// Cache failures degrade to a direct resolve rather than a 500.
		s.logger.Warn("team-id cache unavailable, resolving directly", "error", err)
		return s.ids.FilterTeamIDs(ctx, p, nil)
	}

	ids := make([]shared.ID, 0, len(*cached))
	for _, str := range *cached {
		id, err := shared.IDFromString(str)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FilterTeamIDs restricts candidates to the principal's accessible set,
// preserving candidate order.
func (s *TeamIDsCacheService) FilterTeamIDs(ctx context.Context, p *team.Principal, candidates []shared.ID) ([]shared.ID, error) {
	reachable, err := s.AccessibleTeamIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return reachable, nil
	}

	member := make(map[string]struct{}, len(reachable))
	for _, id := range reachable {
		member[id.String()] = struct{}{}
	}

	out := make([]shared.ID, 0, len(candidates))
	for _, id := range candidates {
		if _, ok := member[id.String()]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Invalidate drops the cached set for one user.
func (s *TeamIDsCacheService) Invalidate(ctx context.Context, userID shared.ID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID.String()); err != nil {
		s.logger.Warn("failed to invalidate team-id cache", "user_id", userID.String(), "error", err)
	}
}

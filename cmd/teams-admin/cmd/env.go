package cmd

import (
	"fmt"

	"github.com/openctemio/teams/internal/app"
	"github.com/openctemio/teams/internal/config"
	"github.com/openctemio/teams/internal/infra/postgres"
	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/logger"
)

// env bundles everything a storage-facing command needs.
type env struct {
	teams   *postgres.TeamRepository
	users   *postgres.UserRepository
	userSvc *app.UserService
}

// openEnv loads configuration and connects to the database. The caller
// must invoke close when done.
func openEnv() (*env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewNop()
	if flagVerbose {
		log = logger.NewDevelopment()
	}

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closeFn := func() { _ = db.Close() }

	strategy, ok := team.ParseStrategy(cfg.Teams.ImplicitStrategy)
	if !ok {
		closeFn()
		return nil, nil, shared.Invalid("unknown implicit strategy %q", cfg.Teams.ImplicitStrategy)
	}
	settings := team.Settings{
		NestedTeams:      cfg.Teams.NestedTeams,
		ImplicitStrategy: strategy,
	}

	teamRepo := postgres.NewTeamRepository(db)
	userRepo := postgres.NewUserRepository(db)

	resolver := team.NewResolver(settings)
	rebuilder := team.NewRebuilder(resolver, team.NewTeamIDResolver(resolver, teamRepo))

	roleMap, err := app.NewExternalRoleMapProvider(
		cfg.Teams.ExternalRoleProvider, cfg.Teams.ExternalRoleMapFile)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	return &env{
		teams:   teamRepo,
		users:   userRepo,
		userSvc: app.NewUserService(userRepo, rebuilder, roleMap, log),
	}, closeFn, nil
}

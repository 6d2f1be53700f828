package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openctemio/teams/internal/app"
	"github.com/openctemio/teams/internal/config"
	"github.com/openctemio/teams/internal/infra/http"
	"github.com/openctemio/teams/internal/infra/http/handler"
	"github.com/openctemio/teams/internal/infra/http/middleware"
	"github.com/openctemio/teams/internal/infra/jobs"
	"github.com/openctemio/teams/internal/infra/postgres"
	"github.com/openctemio/teams/internal/infra/redis"
	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/email"
	"github.com/openctemio/teams/pkg/jwt"
	"github.com/openctemio/teams/pkg/logger"
	"github.com/openctemio/teams/pkg/validator"
)

const version = "1.0.0"

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	// ==========================================================================
	// Configuration & Logger
	// ==========================================================================
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	// ==========================================================================
	// Infrastructure
	// ==========================================================================
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	redisClient, err := redis.New(&cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer closeWithLog(redisClient, "redis", log)
	log.Info("redis connected")

	// ==========================================================================
	// Domain
	// ==========================================================================
	settings, err := teamSettings(cfg)
	if err != nil {
		log.Error("invalid team settings", "error", err)
		return 1
	}

	teamRepo := postgres.NewTeamRepository(db)
	userRepo := postgres.NewUserRepository(db)

	resolver := team.NewResolver(settings)
	ids := team.NewTeamIDResolver(resolver, teamRepo)
	rebuilder := team.NewRebuilder(resolver, ids)
	guard := team.NewGuard(resolver, app.NewPrincipalStore(userRepo), team.NoResources{})

	// ==========================================================================
	// Caches
	// ==========================================================================
	idsCache := app.NewTeamIDsCacheService(
		ids,
		redis.MustNewCache[[]string](redisClient, "teamids", cfg.Teams.TeamIDsCacheTTL),
		log,
	)

	// ==========================================================================
	// Job Queue
	// ==========================================================================
	jobClient, err := jobs.NewClient(jobs.ClientConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		log.Error("failed to initialize job client", "error", err)
		return 1
	}
	defer closeWithLog(jobClient, "job client", log)

	// ==========================================================================
	// Services
	// ==========================================================================
	roleMap, err := app.NewExternalRoleMapProvider(
		cfg.Teams.ExternalRoleProvider, cfg.Teams.ExternalRoleMapFile)
	if err != nil {
		log.Error("failed to load external role map", "error", err)
		return 1
	}

	teamService := app.NewTeamService(teamRepo, userRepo, resolver, guard, log,
		app.WithTeamIDsCache(idsCache),
		app.WithJobClient(jobClient),
	)
	userService := app.NewUserService(userRepo, rebuilder, roleMap, log,
		app.WithUserTeamIDsCache(idsCache),
	)

	// ==========================================================================
	// Workers
	// ==========================================================================
	notifier := app.NewNotificationService(
		emailSender(cfg), cfg.App.Name, cfg.SMTP.BaseURL, log)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   cfg.Worker.Concurrency,
		Queues:        cfg.Worker.Queues,
	}, log,
		jobs.WithNotifier(notifier),
		jobs.WithMembershipRebuilder(userService),
	)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		return 1
	}

	if err := worker.Start(); err != nil {
		log.Error("failed to start worker", "error", err)
		return 1
	}
	log.Info("background worker started")

	// ==========================================================================
	// HTTP Server
	// ==========================================================================
	tokens := jwt.NewGenerator(jwt.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		TokenTTL: cfg.Auth.TokenTTL,
	})
	authenticator := middleware.NewAuthenticator(tokens, userService, log)

	var limiter *redis.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter, err = redis.NewRateLimiter(redisClient, "http",
			rateLimitPerMinute(cfg), time.Minute, log)
		if err != nil {
			log.Error("failed to initialize rate limiter", "error", err)
			return 1
		}
	}

	v := validator.New()
	server := http.NewServer(cfg, log, authenticator, limiter, http.Handlers{
		Team: handler.NewTeamHandler(teamService, v, log),
		Auth: handler.NewAuthHandler(tokens, userService, log),
		Health: handler.NewHealthHandler(version,
			handler.WithDatabase(handler.PingerFunc(db.HealthCheck)),
			handler.WithRedis(handler.PingerFunc(redisClient.Ping)),
		),
	})

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("application started", "http_addr", cfg.Server.Addr())

	// ==========================================================================
	// Graceful Shutdown
	// ==========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	worker.Stop()
	log.Info("background worker stopped")

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

// =============================================================================
// Helper Functions
// =============================================================================

func initLogger(cfg *config.Config) *logger.Logger {
	var log *logger.Logger
	if cfg.IsProduction() {
		log = logger.NewProduction()
	} else {
		log = logger.NewDevelopment()
	}
	log.SetDefault()
	return log
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}

func teamSettings(cfg *config.Config) (team.Settings, error) {
	strategy, ok := team.ParseStrategy(cfg.Teams.ImplicitStrategy)
	if !ok {
		return team.Settings{}, shared.Invalid("unknown implicit strategy %q", cfg.Teams.ImplicitStrategy)
	}
	return team.Settings{
		NestedTeams:      cfg.Teams.NestedTeams,
		ImplicitStrategy: strategy,
	}, nil
}

func emailSender(cfg *config.Config) email.Sender {
	if !cfg.SMTP.IsConfigured() {
		return email.NewNoOpSender()
	}
	return email.NewSMTPSender(email.Config{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		User:       cfg.SMTP.User,
		Password:   cfg.SMTP.Password,
		From:       cfg.SMTP.From,
		FromName:   cfg.SMTP.FromName,
		TLS:        cfg.SMTP.TLS,
		SkipVerify: cfg.SMTP.SkipVerify,
		Timeout:    cfg.SMTP.Timeout,
	})
}

// rateLimitPerMinute converts the configured per-second rate into the
// limiter's per-minute window budget.
func rateLimitPerMinute(cfg *config.Config) int {
	limit := int(cfg.RateLimit.RequestsPerSec * 60)
	if limit < cfg.RateLimit.Burst {
		limit = cfg.RateLimit.Burst
	}
	if limit <= 0 {
		limit = 600
	}
	return limit
}

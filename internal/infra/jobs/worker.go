package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/openctemio/teams/pkg/logger"
)

// WorkerConfig holds the configuration for the job worker.
type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
	Queues        map[string]int
}

// WorkerOption is a functional option for configuring the Worker.
type WorkerOption func(*Worker)

// Worker processes background jobs.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	logger    *logger.Logger
	notifier  Notifier
	rebuilder MembershipRebuilder
}

// WithNotifier adds a notification sender to the worker.
func WithNotifier(n Notifier) WorkerOption {
	return func(w *Worker) {
		w.notifier = n
	}
}

// WithMembershipRebuilder adds a membership rebuilder to the worker.
func WithMembershipRebuilder(r MembershipRebuilder) WorkerOption {
	return func(w *Worker) {
		w.rebuilder = r
	}
}

// NewWorker creates a new background job worker.
func NewWorker(cfg WorkerConfig, log *logger.Logger, opts ...WorkerOption) (*Worker, error) {
	queues := cfg.Queues
	if len(queues) == 0 {
		queues = map[string]int{"critical": 6, "default": 3, "low": 1}
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      queues,
		},
	)

	w := &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		logger: log,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.notifier != nil {
		NewNotificationTaskHandler(w.notifier, log).RegisterHandlers(w.mux)
		log.Info("notification task handlers registered")
	}

	if w.rebuilder != nil {
		NewRebuildTaskHandler(w.rebuilder, log).RegisterHandlers(w.mux)
		log.Info("membership rebuild handler registered")
	}

	return w, nil
}

// Start starts the worker.
func (w *Worker) Start() error {
	w.logger.Info("starting job worker")
	return w.server.Start(w.mux)
}

// Stop stops the worker gracefully.
func (w *Worker) Stop() {
	w.logger.Info("stopping job worker")
	w.server.Shutdown()
}

// Run runs the worker until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Start(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
		return nil
	}
}

package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/openctemio/teams/pkg/logger"
)

// Client manages enqueueing background jobs using Asynq.
type Client struct {
	client *asynq.Client
	logger *logger.Logger
}

// ClientConfig contains configuration for the job client.
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewClient creates a new job client for enqueueing tasks.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	client := asynq.NewClient(redisOpt)

	return &Client{
		client: client,
		logger: log.With("component", "job_client"),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueMemberAdded enqueues a member added notification job.
func (c *Client) EnqueueMemberAdded(ctx context.Context, payload MemberAddedPayload) error {
	task, err := NewMemberAddedTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue member added notification",
			"email", payload.UserEmail,
			"team", payload.TeamName,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("member added notification queued",
		"task_id", info.ID,
		"email", payload.UserEmail,
		"team", payload.TeamName,
		"queue", info.Queue,
	)
	return nil
}

// EnqueueRoleChanged enqueues a role changed notification job.
func (c *Client) EnqueueRoleChanged(ctx context.Context, payload RoleChangedPayload) error {
	task, err := NewRoleChangedTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue role changed notification",
			"email", payload.UserEmail,
			"team", payload.TeamName,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("role changed notification queued",
		"task_id", info.ID,
		"email", payload.UserEmail,
		"team", payload.TeamName,
		"queue", info.Queue,
	)
	return nil
}

// EnqueueMemberRemoved enqueues a member removed notification job.
func (c *Client) EnqueueMemberRemoved(ctx context.Context, payload MemberRemovedPayload) error {
	task, err := NewMemberRemovedTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue member removed notification",
			"email", payload.UserEmail,
			"team", payload.TeamName,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("member removed notification queued",
		"task_id", info.ID,
		"email", payload.UserEmail,
		"team", payload.TeamName,
		"queue", info.Queue,
	)
	return nil
}

// EnqueueMembershipRebuild enqueues a membership cache rebuild for one user.
func (c *Client) EnqueueMembershipRebuild(ctx context.Context, payload MembershipRebuildPayload) error {
	task, err := NewMembershipRebuildTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue membership rebuild",
			"user_id", payload.UserID,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("membership rebuild queued",
		"task_id", info.ID,
		"user_id", payload.UserID,
		"reason", payload.Reason,
		"queue", info.Queue,
	)
	return nil
}

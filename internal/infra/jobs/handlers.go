package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/openctemio/teams/pkg/logger"
)

// Notifier sends member lifecycle notifications.
type Notifier interface {
	NotifyMemberAdded(ctx context.Context, payload MemberAddedPayload) error
	NotifyRoleChanged(ctx context.Context, payload RoleChangedPayload) error
	NotifyMemberRemoved(ctx context.Context, payload MemberRemovedPayload) error
}

// MembershipRebuilder rebuilds one user's membership cache.
type MembershipRebuilder interface {
	RebuildUserMemberships(ctx context.Context, userID string) error
}

// NotificationTaskHandler processes member notification tasks.
type NotificationTaskHandler struct {
	notifier Notifier
	logger   *logger.Logger
}

// NewNotificationTaskHandler creates a new notification task handler.
func NewNotificationTaskHandler(notifier Notifier, log *logger.Logger) *NotificationTaskHandler {
	return &NotificationTaskHandler{
		notifier: notifier,
		logger:   log.With("handler", "notification_tasks"),
	}
}

// RegisterHandlers registers the notification handlers on the mux.
func (h *NotificationTaskHandler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeNotifyMemberAdded, h.HandleMemberAdded)
	mux.HandleFunc(TypeNotifyRoleChanged, h.HandleRoleChanged)
	mux.HandleFunc(TypeNotifyMemberRemoved, h.HandleMemberRemoved)
}

// HandleMemberAdded processes member added notification tasks.
func (h *NotificationTaskHandler) HandleMemberAdded(ctx context.Context, t *asynq.Task) error {
	var payload MemberAddedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("processing member added notification",
		"email", payload.UserEmail,
		"team", payload.TeamName,
		"role", payload.Role,
	)

	if err := h.notifier.NotifyMemberAdded(ctx, payload); err != nil {
		h.logger.Error("failed to send member added notification",
			"email", payload.UserEmail,
			"error", err,
		)
		return err
	}

	return nil
}

// HandleRoleChanged processes role changed notification tasks.
func (h *NotificationTaskHandler) HandleRoleChanged(ctx context.Context, t *asynq.Task) error {
	var payload RoleChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("processing role changed notification",
		"email", payload.UserEmail,
		"team", payload.TeamName,
		"old_role", payload.OldRole,
		"new_role", payload.NewRole,
	)

	if err := h.notifier.NotifyRoleChanged(ctx, payload); err != nil {
		h.logger.Error("failed to send role changed notification",
			"email", payload.UserEmail,
			"error", err,
		)
		return err
	}

	return nil
}

// HandleMemberRemoved processes member removed notification tasks.
func (h *NotificationTaskHandler) HandleMemberRemoved(ctx context.Context, t *asynq.Task) error {
	var payload MemberRemovedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("processing member removed notification",
		"email", payload.UserEmail,
		"team", payload.TeamName,
	)

	if err := h.notifier.NotifyMemberRemoved(ctx, payload); err != nil {
		h.logger.Error("failed to send member removed notification",
			"email", payload.UserEmail,
			"error", err,
		)
		return err
	}

	return nil
}

// RebuildTaskHandler processes membership rebuild tasks.
type RebuildTaskHandler struct {
	rebuilder MembershipRebuilder
	logger    *logger.Logger
}

// NewRebuildTaskHandler creates a new rebuild task handler.
func NewRebuildTaskHandler(rebuilder MembershipRebuilder, log *logger.Logger) *RebuildTaskHandler {
	return &RebuildTaskHandler{
		rebuilder: rebuilder,
		logger:    log.With("handler", "rebuild_tasks"),
	}
}

// RegisterHandlers registers the rebuild handler on the mux.
func (h *RebuildTaskHandler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeMembershipRebuild, h.HandleMembershipRebuild)
}

// HandleMembershipRebuild processes membership rebuild tasks.
func (h *RebuildTaskHandler) HandleMembershipRebuild(ctx context.Context, t *asynq.Task) error {
	var payload MembershipRebuildPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("processing membership rebuild",
		"user_id", payload.UserID,
		"reason", payload.Reason,
	)

	if err := h.rebuilder.RebuildUserMemberships(ctx, payload.UserID); err != nil {
		h.logger.Error("failed to rebuild memberships",
			"user_id", payload.UserID,
			"error", err,
		)
		return err
	}

	return nil
}

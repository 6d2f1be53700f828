// Package jobs provides background job definitions and handlers using Asynq.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types.
const (
	TypeNotifyMemberAdded   = "notify:member_added"
	TypeNotifyRoleChanged   = "notify:role_changed"
	TypeNotifyMemberRemoved = "notify:member_removed"
	TypeMembershipRebuild   = "memberships:rebuild"
)

// MemberAddedPayload contains data for the member added notification.
type MemberAddedPayload struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
	TeamID    string `json:"team_id"`
	TeamName  string `json:"team_name"`
	Role      string `json:"role"`
	AddedBy   string `json:"added_by"`
}

// RoleChangedPayload contains data for the role changed notification.
type RoleChangedPayload struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
	TeamID    string `json:"team_id"`
	TeamName  string `json:"team_name"`
	OldRole   string `json:"old_role"`
	NewRole   string `json:"new_role"`
	ChangedBy string `json:"changed_by"`
}

// MemberRemovedPayload contains data for the member removed notification.
type MemberRemovedPayload struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
	TeamID    string `json:"team_id"`
	TeamName  string `json:"team_name"`
	RemovedBy string `json:"removed_by"`
}

// MembershipRebuildPayload identifies the user whose membership cache
// should be rebuilt.
type MembershipRebuildPayload struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// NewMemberAddedTask creates a member added notification task.
func NewMemberAddedTask(payload MemberAddedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal member added payload: %w", err)
	}
	return asynq.NewTask(
		TypeNotifyMemberAdded,
		data,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Queue("default"),
	), nil
}

// NewRoleChangedTask creates a role changed notification task.
func NewRoleChangedTask(payload RoleChangedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal role changed payload: %w", err)
	}
	return asynq.NewTask(
		TypeNotifyRoleChanged,
		data,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Queue("default"),
	), nil
}

// NewMemberRemovedTask creates a member removed notification task.
func NewMemberRemovedTask(payload MemberRemovedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal member removed payload: %w", err)
	}
	return asynq.NewTask(
		TypeNotifyMemberRemoved,
		data,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Queue("default"),
	), nil
}

// NewMembershipRebuildTask creates a membership rebuild task. Rebuilds are
// idempotent, so a generous retry policy is safe.
func NewMembershipRebuildTask(payload MembershipRebuildPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal membership rebuild payload: %w", err)
	}
	return asynq.NewTask(
		TypeMembershipRebuild,
		data,
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
		asynq.Queue("low"),
	), nil
}

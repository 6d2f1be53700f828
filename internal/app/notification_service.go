package app

import (
	"context"
	"fmt"

	"github.com/openctemio/teams/internal/infra/jobs"
	"github.com/openctemio/teams/pkg/email"
	"github.com/openctemio/teams/pkg/logger"
)

// NotificationService sends member lifecycle emails. It implements
// jobs.Notifier so the asynq worker can drive it.
type NotificationService struct {
	sender  email.Sender
	engine  *email.TemplateEngine
	appName string
	baseURL string
	logger  *logger.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(sender email.Sender, appName, baseURL string, log *logger.Logger) *NotificationService {
	return &NotificationService{
		sender:  sender,
		engine:  email.NewTemplateEngine(),
		appName: appName,
		baseURL: baseURL,
		logger:  log.With("service", "notification"),
	}
}

// NotifyMemberAdded sends the member added email.
func (s *NotificationService) NotifyMemberAdded(ctx context.Context, payload jobs.MemberAddedPayload) error {
	if !s.sender.IsConfigured() {
		s.logger.Debug("email sender not configured, skipping member added notification")
		return nil
	}

	data := email.MemberAddedData{
		UserName: payload.UserName,
		TeamName: payload.TeamName,
		Role:     payload.Role,
		TeamURL:  s.teamURL(payload.TeamID),
		AddedBy:  payload.AddedBy,
		AppName:  s.appName,
	}

	return s.send(ctx, payload.UserEmail, email.TemplateMemberAdded, data)
}

// NotifyRoleChanged sends the role changed email.
func (s *NotificationService) NotifyRoleChanged(ctx context.Context, payload jobs.RoleChangedPayload) error {
	if !s.sender.IsConfigured() {
		s.logger.Debug("email sender not configured, skipping role changed notification")
		return nil
	}

	data := email.RoleChangedData{
		UserName:  payload.UserName,
		TeamName:  payload.TeamName,
		OldRole:   payload.OldRole,
		NewRole:   payload.NewRole,
		TeamURL:   s.teamURL(payload.TeamID),
		ChangedBy: payload.ChangedBy,
		AppName:   s.appName,
	}

	return s.send(ctx, payload.UserEmail, email.TemplateRoleChanged, data)
}

// NotifyMemberRemoved sends the member removed email.
func (s *NotificationService) NotifyMemberRemoved(ctx context.Context, payload jobs.MemberRemovedPayload) error {
	if !s.sender.IsConfigured() {
		s.logger.Debug("email sender not configured, skipping member removed notification")
		return nil
	}

	data := email.MemberRemovedData{
		UserName:  payload.UserName,
		TeamName:  payload.TeamName,
		RemovedBy: payload.RemovedBy,
		AppName:   s.appName,
	}

	return s.send(ctx, payload.UserEmail, email.TemplateMemberRemoved, data)
}

func (s *NotificationService) send(ctx context.Context, to string, tmpl email.Template, data any) error {
	if err := s.sender.SendTemplate(ctx, to, tmpl, data); err != nil {
		return fmt.Errorf("failed to send %s email: %w", tmpl, err)
	}
	s.logger.Info("notification sent", "template", string(tmpl))
	return nil
}

func (s *NotificationService) teamURL(teamID string) string {
	if s.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/teams/%s", s.baseURL, teamID)
}

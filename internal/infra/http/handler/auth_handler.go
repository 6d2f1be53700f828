package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/openctemio/teams/internal/app"
	"github.com/openctemio/teams/internal/infra/http/middleware"
	"github.com/openctemio/teams/pkg/apierror"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/domain/user"
	"github.com/openctemio/teams/pkg/jwt"
	"github.com/openctemio/teams/pkg/logger"
)

// AuthHandler handles login and the current-user endpoint.
type AuthHandler struct {
	tokens *jwt.Generator
	users  *app.UserService
	logger *logger.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(tokens *jwt.Generator, users *app.UserService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		tokens: tokens,
		users:  users,
		logger: log.With("handler", "auth"),
	}
}

// UserResponse is the wire representation of a user.
type UserResponse struct {
	ID             string               `json:"id"`
	Email          string               `json:"email"`
	Name           string               `json:"name,omitempty"`
	Memberships    []MembershipResponse `json:"memberships"`
	ExternalRoles  []string             `json:"external_roles,omitempty"`
	ExternalGroups []string             `json:"external_groups,omitempty"`
	LastLoginAt    *time.Time           `json:"last_login_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// MembershipResponse is one stored team membership.
type MembershipResponse struct {
	TeamID string `json:"team_id"`
	Role   string `json:"role"`
}

func toUserResponse(u *user.User) UserResponse {
	memberships := make([]MembershipResponse, 0, len(u.Memberships()))
	for _, m := range u.Memberships() {
		memberships = append(memberships, MembershipResponse{
			TeamID: m.TeamID.String(),
			Role:   m.Role.String(),
		})
	}
	return UserResponse{
		ID:             u.ID().String(),
		Email:          u.Email(),
		Name:           u.Name(),
		Memberships:    memberships,
		ExternalRoles:  u.ExternalRoles(),
		ExternalGroups: u.ExternalGroups(),
		LastLoginAt:    u.LastLoginAt(),
		CreatedAt:      u.CreatedAt(),
	}
}

// LoginResponse carries the session token issued at login.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

// Login handles POST /api/v1/auth/login. The caller presents an identity
// token in the Authorization header; the handler upserts the user from
// its claims, rebuilds the cached membership list and issues a session
// token whose subject is the internal user id. Implicit and nested
// grants materialize here and nowhere else.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		apierror.Unauthorized("missing identity token").WriteJSONWithRequestID(w, requestID)
		return
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		apierror.Unauthorized("invalid identity token").WriteJSONWithRequestID(w, requestID)
		return
	}

	u, err := h.users.HandleLogin(r.Context(), claims)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sessionToken, expiresAt, err := h.tokens.GenerateToken(
		u.ID().String(), u.Email(), u.Name(), u.ExternalRoles(), u.ExternalGroups())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: sessionToken,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        toUserResponse(u),
	})
}

// Me handles GET /api/v1/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if u := middleware.GetUser(r.Context()); u != nil {
		writeJSON(w, http.StatusOK, toUserResponse(u))
		return
	}

	// Service tokens authenticate a principal with no stored user.
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		apierror.Unauthorized("authentication required").
			WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
		return
	}
	writeJSON(w, http.StatusOK, servicePrincipalResponse(p))
}

func servicePrincipalResponse(p *team.Principal) map[string]any {
	return map[string]any{
		"id":                  p.ID.String(),
		"bypass_access_check": p.BypassAccessCheck,
	}
}

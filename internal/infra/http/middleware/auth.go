package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openctemio/teams/internal/metrics"
	"github.com/openctemio/teams/pkg/apierror"
	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/domain/user"
	"github.com/openctemio/teams/pkg/jwt"
	"github.com/openctemio/teams/pkg/logger"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	userKey      contextKey = "current_user"
)

// GetPrincipal extracts the authenticated principal from context. It is
// nil when the request did not pass through the auth middleware.
func GetPrincipal(ctx context.Context) *team.Principal {
	if p, ok := ctx.Value(principalKey).(*team.Principal); ok {
		return p
	}
	return nil
}

// GetUser extracts the authenticated user from context. Service tokens
// authenticate a principal without a stored user, so this can be nil
// even on authenticated requests.
func GetUser(ctx context.Context) *user.User {
	if u, ok := ctx.Value(userKey).(*user.User); ok {
		return u
	}
	return nil
}

// UserLoader loads a user by id for request authentication.
type UserLoader interface {
	GetUser(ctx context.Context, userID string) (*user.User, error)
}

// Authenticator validates bearer tokens and resolves them to principals.
type Authenticator struct {
	tokens *jwt.Generator
	users  UserLoader
	logger *logger.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *jwt.Generator, users UserLoader, log *logger.Logger) *Authenticator {
	return &Authenticator{
		tokens: tokens,
		users:  users,
		logger: log.With("component", "auth"),
	}
}

// Middleware authenticates the request. It validates the bearer token,
// loads the user's stored membership state and puts the resulting
// principal into the request context. Service tokens carry
// bypass_access_check and resolve to a synthetic principal without a
// user lookup.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, apiErr := a.authenticate(r)
			if apiErr != nil {
				apiErr.WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}

			ctx := r.Context()

			if claims.BypassAccessCheck {
				id, err := shared.IDFromString(claims.UserID)
				if err != nil {
					metrics.AuthFailuresTotal.WithLabelValues("invalid").Inc()
					apierror.Unauthorized("invalid token subject").
						WriteJSONWithRequestID(w, GetRequestID(ctx))
					return
				}
				ctx = withPrincipal(ctx, &team.Principal{
					ID:                id,
					BypassAccessCheck: true,
				}, nil)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			u, err := a.users.GetUser(ctx, claims.UserID)
			if err != nil {
				metrics.AuthFailuresTotal.WithLabelValues("unknown_user").Inc()
				a.logger.WithContext(ctx).Warn("token subject not found",
					"user_id", claims.UserID, "error", err)
				apierror.Unauthorized("unknown token subject").
					WriteJSONWithRequestID(w, GetRequestID(ctx))
				return
			}

			ctx = withPrincipal(ctx, u.Principal(), u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *Authenticator) authenticate(r *http.Request) (*jwt.Claims, *apierror.Error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		metrics.AuthFailuresTotal.WithLabelValues("missing").Inc()
		return nil, apierror.Unauthorized("missing authorization header")
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		metrics.AuthFailuresTotal.WithLabelValues("invalid").Inc()
		return nil, apierror.Unauthorized("invalid authorization header")
	}

	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			metrics.AuthFailuresTotal.WithLabelValues("expired").Inc()
			return nil, apierror.Unauthorized("token expired")
		}
		metrics.AuthFailuresTotal.WithLabelValues("invalid").Inc()
		return nil, apierror.Unauthorized("invalid token")
	}

	return claims, nil
}

func withPrincipal(ctx context.Context, p *team.Principal, u *user.User) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	if u != nil {
		ctx = context.WithValue(ctx, userKey, u)
	}
	ctx = context.WithValue(ctx, logger.ContextKeyUserID, p.ID.String())
	return ctx
}

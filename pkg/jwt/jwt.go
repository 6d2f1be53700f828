// Package jwt provides JWT token generation and validation utilities.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
	// ErrEmptyUserID is returned when user_id is empty.
	ErrEmptyUserID = errors.New("user_id cannot be empty")
)

// Claims represents the JWT claims structure. Besides the user's identity
// it carries the external roles and groups asserted by the identity
// provider, which drive implicit team membership.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`

	// External identity attributes from the upstream provider.
	ExternalRoles  []string `json:"roles,omitempty"`
	ExternalGroups []string `json:"groups,omitempty"`

	// BypassAccessCheck marks service principals exempt from team access
	// checks. Blocked memberships still apply.
	BypassAccessCheck bool `json:"bypass_access_check,omitempty"`

	jwt.RegisteredClaims
}

// HasExternalRole checks if the claims include a specific external role.
func (c *Claims) HasExternalRole(role string) bool {
	for _, r := range c.ExternalRoles {
		if r == role {
			return true
		}
	}
	return false
}

// HasExternalGroup checks if the claims include a specific external group.
func (c *Claims) HasExternalGroup(group string) bool {
	for _, g := range c.ExternalGroups {
		if g == group {
			return true
		}
	}
	return false
}

// Config holds configuration for token generation.
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// Generator handles JWT token generation and validation.
type Generator struct {
	config Config
}

// NewGenerator creates a new token generator.
func NewGenerator(config Config) *Generator {
	return &Generator{config: config}
}

// GenerateToken creates a signed token for the given identity.
func (g *Generator) GenerateToken(userID, email, name string, externalRoles, externalGroups []string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrEmptyUserID
	}

	now := time.Now()
	expiresAt := now.Add(g.config.TokenTTL)

	claims := Claims{
		UserID:         userID,
		Email:          email,
		Name:           name,
		ExternalRoles:  externalRoles,
		ExternalGroups: externalGroups,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(g.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return signedToken, expiresAt, nil
}

// GenerateServiceToken creates a signed token for a service principal. The
// bypass flag is baked into the token rather than looked up per request.
func (g *Generator) GenerateServiceToken(userID, name string, ttl time.Duration) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrEmptyUserID
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID:            userID,
		Name:              name,
		BypassAccessCheck: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(g.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return signedToken, expiresAt, nil
}

// ValidateToken validates the token and returns the claims.
func (g *Generator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(g.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

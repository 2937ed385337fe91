// Package auth resolves the current user identity from bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

// Claims carried by marketplace access tokens
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Identity maps the claims onto a marketplace identity; email wins over subject.
func (c *Claims) Identity() domain.Identity {
	id := strings.TrimSpace(c.Email)
	if id == "" {
		id = strings.TrimSpace(c.Subject)
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = id
	}
	return domain.Identity{ID: id, DisplayName: name}
}

// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens
var ErrInvalidToken = errors.New("invalid token")

// TokenValidator validates HS256 signed tokens
type TokenValidator struct {
	secret []byte
	issuer string
}

// NewTokenValidator creates a validator. An empty issuer accepts any issuer.
func NewTokenValidator(secret, issuer string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret), issuer: issuer}
}

// Validate parses token and returns its claims
func (v *TokenValidator) Validate(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Identity().ID == "" {
		return nil, fmt.Errorf("%w: token carries no email or subject", ErrInvalidToken)
	}
	return claims, nil
}

// ValidateHeader validates an "Authorization: Bearer <token>" header value
func (v *TokenValidator) ValidateHeader(header string) (*Claims, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: expected bearer authorization", ErrInvalidToken)
	}
	return v.Validate(strings.TrimSpace(token))
}

type contextKey struct{}

// WithIdentity stores identity in ctx
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// FromContext returns the identity stored by WithIdentity
func FromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(domain.Identity)
	return id, ok && id.ID != ""
}

// ContextProvider reads the identity placed in the request context by the HTTP middleware
type ContextProvider struct{}

// NewContextProvider returns the request-scoped identity provider
func NewContextProvider() ContextProvider {
	return ContextProvider{}
}

// CurrentUserIdentity implements domain.IdentityProvider
func (ContextProvider) CurrentUserIdentity(ctx context.Context) (domain.Identity, bool) {
	return FromContext(ctx)
}

// StaticProvider always reports the same identity
type StaticProvider struct {
	Identity domain.Identity
}

// CurrentUserIdentity implements domain.IdentityProvider
func (p StaticProvider) CurrentUserIdentity(context.Context) (domain.Identity, bool) {
	return p.Identity, p.Identity.ID != ""
}

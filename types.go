package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// LoggerProvider hands out named loggers so each component can log under
// its own scope without every constructor taking a logger argument.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// ResolveLogger applies the precedence rules for component loggers: an
// explicit logger wins, then a provider-scoped logger, then the default.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if logger != nil {
		return provider, logger
	}
	if provider != nil {
		return provider, provider.GetLogger(name)
	}
	return provider, defLogger{}
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetAudience() []string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetData() map[string]any
}

// AuthResult is the token envelope returned by the login, register, and
// refresh flows.
type AuthResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Username     string `json:"username"`
	Email        string `json:"email"`
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	Register(ctx context.Context, msg RegisterUserMessage) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	SessionFromToken(token string) (Session, error)
	IdentityFromSession(ctx context.Context, session Session) (Identity, error)
}

// TokenService issues and validates the paired access/refresh tokens.
// The boolean operations never error: classification and validation of
// attacker-supplied input fold every failure into a negative answer so the
// request gate stays branch-free.
type TokenService interface {
	IssueAccessToken(identity Identity) (string, error)
	IssueRefreshToken(identity Identity) (string, error)
	ExtractUsername(tokenString string) (string, error)
	ExtractExpiration(tokenString string) (time.Time, error)
	IsRefreshToken(tokenString string) bool
	ValidateFor(tokenString string, identity Identity) bool
	Validate(tokenString string) (AuthClaims, error)
	SignClaims(claims *JWTClaims) (string, error)
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	// GetAccessTokenTTL returns the access token lifetime in milliseconds.
	GetAccessTokenTTL() int
	// GetRefreshTokenTTL returns the refresh token lifetime in milliseconds.
	GetRefreshTokenTTL() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Middleware is the surface HTTP integrations need from the auth layer.
type Middleware interface {
	TokenAuthMiddleware(errorHandler ...router.ErrorHandler) router.MiddlewareFunc
	RequireAuthenticated(responder ...router.ErrorHandler) router.MiddlewareFunc
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

package auth

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-token-auth/middleware/jwtware"
)

// RouteAuthenticator wires token handling into HTTP routes. It exposes two
// middlewares with distinct jobs:
//   - TokenAuthMiddleware resolves the bearer token into claims and attaches
//     them to the request context. It never rejects a request: anonymous and
//     bad-token requests continue without claims.
//   - RequireAuthenticated rejects requests whose context carries no claims,
//     writing a structured 401 body.
type RouteAuthenticator struct {
	auth      Authenticator
	cfg       Config
	validator TokenValidator
	Logger    Logger
	// Unauthorized writes the rejection response for RequireAuthenticated.
	Unauthorized func(c router.Context, err error) error
}

type tokenServiceProvider interface {
	TokenService() TokenService
}

// NewHTTPAuthenticator creates a RouteAuthenticator backed by the given
// authenticator and config. The token validator is borrowed from the
// authenticator when it exposes one, otherwise built from the config.
func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	if provider, ok := auther.(tokenServiceProvider); ok {
		a.validator = provider.TokenService()
	} else {
		a.validator = NewTokenServiceFromConfig(cfg, a.Logger)
	}

	a.Unauthorized = a.defaultUnauthorizedResponder

	return a, nil
}

// WithLogger sets the logger and returns the authenticator for chaining.
func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// TokenAuthMiddleware returns the claims-populating gate. An optional error
// handler overrides the default anonymous pass-through, e.g. to hard-fail
// token errors on an API group.
func (a *RouteAuthenticator) TokenAuthMiddleware(errorHandler ...router.ErrorHandler) router.MiddlewareFunc {
	cfg := jwtware.Config{
		TokenValidator: accessTokenValidator{validator: a.validator},
		SigningKey: jwtware.SigningKey{
			Key:    []byte(a.cfg.GetSigningKey()),
			JWTAlg: a.cfg.GetSigningMethod(),
		},
		AuthScheme:      a.cfg.GetAuthScheme(),
		ContextKey:      a.cfg.GetContextKey(),
		TokenLookup:     a.cfg.GetTokenLookup(),
		ContextEnricher: ContextEnricherAdapter,
	}

	if len(errorHandler) > 0 && errorHandler[0] != nil {
		cfg.ErrorHandler = errorHandler[0]
	}

	return jwtware.New(cfg)
}

// RequireAuthenticated returns a middleware that rejects requests without
// validated claims in the request context. Run it after TokenAuthMiddleware.
func (a *RouteAuthenticator) RequireAuthenticated(errorHandler ...router.ErrorHandler) router.MiddlewareFunc {
	onError := a.Unauthorized
	if len(errorHandler) > 0 && errorHandler[0] != nil {
		onError = errorHandler[0]
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if _, ok := GetRouterClaims(ctx, a.cfg.GetContextKey()); !ok {
				return onError(ctx, errors.New("authentication required", errors.CategoryAuth).
					WithTextCode(TextCodeSessionNotFound).
					WithCode(errors.CodeUnauthorized))
			}
			return ctx.Next()
		}
	}
}

// MakeRouteAuthErrorHandler builds a gate error handler that rejects requests
// carrying a bad token instead of continuing anonymously. With optional set,
// token errors are logged and the request proceeds without claims.
func (a *RouteAuthenticator) MakeRouteAuthErrorHandler(optional bool) router.ErrorHandler {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.Unauthorized(ctx, richErr)
	}
}

// GetRouterSession resolves the request claims into a Session.
func (a *RouteAuthenticator) GetRouterSession(ctx router.Context) (Session, error) {
	claims, ok := GetRouterClaims(ctx, a.cfg.GetContextKey())
	if !ok {
		return nil, ErrUnableToFindSession
	}
	return sessionFromAuthClaims(claims)
}

// ErrorResponse is the JSON body written for rejected requests. Rejections
// for authentication failures deliberately carry no detail about the cause.
type ErrorResponse struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NewErrorResponse builds the standard error body for the given status.
func NewErrorResponse(status int, message string) ErrorResponse {
	return ErrorResponse{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (a *RouteAuthenticator) defaultUnauthorizedResponder(ctx router.Context, err error) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		a.Logger.Info(
			"rejecting unauthenticated request",
			"text_code", richErr.TextCode,
			"path", ctx.OriginalURL(),
		)
	}

	body := NewErrorResponse(http.StatusUnauthorized, "Authentication required to access this resource")
	return ctx.JSON(http.StatusUnauthorized, body)
}

// accessTokenValidator adapts the auth TokenValidator to the jwtware mirror
// and refuses refresh tokens presented on resource routes.
type accessTokenValidator struct {
	validator TokenValidator
}

func (v accessTokenValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	if v.validator == nil {
		return nil, ErrUnableToDecodeSession
	}

	claims, err := v.validator.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenUse() == TokenUseRefresh {
		return nil, errors.New("refresh token not accepted for resource access", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	return claims, nil
}

var _ Middleware = (*RouteAuthenticator)(nil)

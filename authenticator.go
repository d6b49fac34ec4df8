package auth

import (
	"context"
	"reflect"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenTypeBearer is the token_type reported in every AuthResult.
const TokenTypeBearer = "Bearer"

// Auther orchestrates the login, register, and refresh flows over an
// IdentityProvider and a TokenService.
type Auther struct {
	provider        IdentityProvider
	registrar       AccountRegistrerer
	signingKey      []byte
	accessTTL       time.Duration
	refreshTTL      time.Duration
	issuer          string
	audience        []string
	logger          Logger
	tokenService    TokenService
	tokenValidator  TokenValidator
	activitySink    ActivitySink
	claimsDecorator ClaimsDecorator
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	accessTTL := time.Duration(opts.GetAccessTokenTTL()) * time.Millisecond
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	refreshTTL := time.Duration(opts.GetRefreshTokenTTL()) * time.Millisecond
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		accessTTL,
		refreshTTL,
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:        provider,
		signingKey:      []byte(opts.GetSigningKey()),
		accessTTL:       accessTTL,
		refreshTTL:      refreshTTL,
		audience:        opts.GetAudience(),
		issuer:          opts.GetIssuer(),
		logger:          defLogger{},
		tokenService:    tokenService,
		activitySink:    noopActivitySink{},
		claimsDecorator: noopClaimsDecorator{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	// Update the TokenService logger as well
	s.tokenService = NewTokenService(
		s.signingKey,
		s.accessTTL,
		s.refreshTTL,
		s.issuer,
		s.audience,
		logger,
	)
	return s
}

// WithRegistrar wires the account registrar used by the Register flow.
func (s *Auther) WithRegistrar(registrar AccountRegistrerer) *Auther {
	s.registrar = registrar
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClaimsDecorator configures a ClaimsDecorator for enriching JWTs.
func (s *Auther) WithClaimsDecorator(decorator ClaimsDecorator) *Auther {
	s.claimsDecorator = normalizeClaimsDecorator(decorator)
	return s
}

// WithTokenValidator sets a custom token validator for externally issued tokens.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and issues an access/refresh token pair.
// Every credential failure surfaces as the same invalid-credentials error,
// including the fail-closed case where the provider returns no identity and
// no error.
func (s *Auther) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	identity, err := s.provider.VerifyIdentity(ctx, username, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": username,
			"error":      err.Error(),
		})
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": username,
			"error":      ErrMismatchedHashAndPassword.Message,
		})
		return nil, ErrMismatchedHashAndPassword
	}

	if err := s.ensureIdentityActive(identity); err != nil {
		s.logger.Warn("Login blocked for inactive identity", "identifier", username)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": username,
			"error":      err.Error(),
		})
		return nil, ErrMismatchedHashAndPassword
	}

	result, err := s.issueTokenPair(ctx, identity)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": username,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": username,
	})

	return result, nil
}

// Register creates a new user and issues the same token envelope as Login.
// Duplicate usernames and emails are rejected before anything is written.
func (s *Auther) Register(ctx context.Context, msg RegisterUserMessage) (*AuthResult, error) {
	if s.registrar == nil {
		return nil, goerrors.New("authenticator has no registrar configured", goerrors.CategoryInternal)
	}

	user, err := s.registrar.RegisterUser(ctx, msg)
	if err != nil {
		s.logger.Error("Register user error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventRegisterFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"username": msg.Username,
			"email":    msg.Email,
			"error":    err.Error(),
		})
		return nil, err
	}

	identity := NewIdentityFromUser(user)

	result, err := s.issueTokenPair(ctx, identity)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventRegisterFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"username": msg.Username,
			"error":    err.Error(),
		})
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventUserRegistered, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"username": identity.Username(),
	})

	return result, nil
}

// Refresh validates a refresh token and mints a new access token. The
// inbound refresh token is echoed back unchanged: there is no rotation and
// no server-side invalidation.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if !s.tokenService.IsRefreshToken(refreshToken) {
		s.emitAuthEvent(ctx, ActivityEventRefreshFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"error": ErrNotRefreshToken.Message,
		})
		return nil, ErrNotRefreshToken
	}

	username, err := s.tokenService.ExtractUsername(refreshToken)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventRefreshFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"error": err.Error(),
		})
		return nil, ErrRefreshTokenInvalid
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, username)
	if err != nil {
		s.logger.Warn("Refresh could not resolve subject", "subject", username, "error", err)
		s.emitAuthEvent(ctx, ActivityEventRefreshFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"subject": username,
			"error":   err.Error(),
		})
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, ErrRefreshTokenInvalid
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		return nil, ErrIdentityNotFound
	}

	if !s.tokenService.ValidateFor(refreshToken, identity) {
		s.emitAuthEvent(ctx, ActivityEventRefreshFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"subject": username,
			"error":   ErrRefreshTokenInvalid.Message,
		})
		return nil, ErrRefreshTokenInvalid
	}

	accessToken, err := s.issueToken(ctx, identity, TokenUseAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefreshed, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"subject": username,
	})

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		Username:     identity.Username(),
		Email:        identity.Email(),
	}, nil
}

// SessionFromToken validates a raw token and returns its session view.
func (s Auther) SessionFromToken(raw string) (Session, error) {
	validator := s.tokenValidator
	if validator == nil {
		validator = s.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, session.GetUserID())
	if err != nil {
		s.logger.Error("IdentityFromSession find identity by identifier", "error", err)
		return nil, err
	}

	return identity, nil
}

func (s *Auther) issueTokenPair(ctx context.Context, identity Identity) (*AuthResult, error) {
	accessToken, err := s.issueToken(ctx, identity, TokenUseAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.issueToken(ctx, identity, TokenUseRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		Username:     identity.Username(),
		Email:        identity.Email(),
	}, nil
}

// issueToken builds, decorates, and signs claims for the given token use.
func (s *Auther) issueToken(ctx context.Context, identity Identity, use string, ttl time.Duration) (string, error) {
	claims := s.newJWTClaims(identity, use, ttl)
	snapshot := captureImmutableClaims(claims)

	decorator := normalizeClaimsDecorator(s.claimsDecorator)
	if err := decorator.Decorate(ctx, identity, claims); err != nil {
		s.logger.Error("claims decorator failed", "error", err)
		return "", err
	}

	if err := snapshot.validate(claims); err != nil {
		s.logger.Error("claims decorator mutated immutable claims", "error", err)
		return "", err
	}

	return s.tokenService.SignClaims(claims)
}

func (s *Auther) newJWTClaims(identity Identity, use string, ttl time.Duration) *JWTClaims {
	now := time.Now()

	var aud jwt.ClaimStrings
	if len(s.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(s.audience))
		copy(aud, s.audience)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.Username(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:      identity.ID(),
		Use:      use,
		UserRole: identity.Role(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}

type activeAwareIdentity interface {
	Active() bool
}

func (s *Auther) ensureIdentityActive(identity Identity) error {
	aa, ok := identity.(activeAwareIdentity)
	if !ok {
		return nil
	}

	if !aa.Active() {
		return ErrUserNotActive
	}

	return nil
}

var _ Authenticator = (*Auther)(nil)

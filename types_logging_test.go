package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }

type loggerProviderSpy struct {
	logger Logger
	names  []string
}

func (p *loggerProviderSpy) GetLogger(name string) Logger {
	p.names = append(p.names, name)
	return p.logger
}

type loggingConfigStub struct{}

func (loggingConfigStub) GetSigningKey() string     { return "test-signing-key" }
func (loggingConfigStub) GetSigningMethod() string  { return "HS256" }
func (loggingConfigStub) GetContextKey() string     { return "user" }
func (loggingConfigStub) GetAccessTokenTTL() int    { return 300000 }
func (loggingConfigStub) GetRefreshTokenTTL() int   { return 86400000 }
func (loggingConfigStub) GetTokenLookup() string    { return "header:Authorization" }
func (loggingConfigStub) GetAuthScheme() string     { return "Bearer" }
func (loggingConfigStub) GetIssuer() string         { return "issuer" }
func (loggingConfigStub) GetAudience() []string     { return []string{"aud"} }

type failingIdentityProvider struct {
	verifyErr error
	findErr   error
}

func (p failingIdentityProvider) VerifyIdentity(context.Context, string, string) (Identity, error) {
	return nil, p.verifyErr
}

func (p failingIdentityProvider) FindIdentityByIdentifier(context.Context, string) (Identity, error) {
	return nil, p.findErr
}

type sessionStub struct {
	userID string
}

func (s sessionStub) GetUserID() string               { return s.userID }
func (s sessionStub) GetUserUUID() (uuid.UUID, error) { return uuid.Nil, nil }
func (s sessionStub) GetAudience() []string           { return nil }
func (s sessionStub) GetIssuer() string               { return "" }
func (s sessionStub) GetIssuedAt() *time.Time         { return nil }
func (s sessionStub) GetData() map[string]any         { return nil }

func TestResolveLogger(t *testing.T) {
	explicit := &captureLogger{}
	scoped := &captureLogger{}
	provider := &loggerProviderSpy{logger: scoped}

	t.Run("explicit logger wins", func(t *testing.T) {
		resolvedProvider, resolvedLogger := ResolveLogger("auth.test", provider, explicit)
		require.Same(t, provider, resolvedProvider)
		require.Same(t, explicit, resolvedLogger)
	})

	t.Run("provider scoped logger when no explicit logger", func(t *testing.T) {
		_, resolvedLogger := ResolveLogger("auth.test", provider, nil)
		require.Same(t, scoped, resolvedLogger)
		require.Contains(t, provider.names, "auth.test")
	})

	t.Run("default logger when nothing configured", func(t *testing.T) {
		_, resolvedLogger := ResolveLogger("auth.test", nil, nil)
		require.NotNil(t, resolvedLogger)
		require.IsType(t, defLogger{}, resolvedLogger)
	})
}

func TestDefaultLoggerIsSafe(t *testing.T) {
	logger := defLogger{}

	logger.Debug("debug %s", "value")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error with trailing newline\n")
}

func TestUserProviderWithLoggerProviderResolvesScopedLogger(t *testing.T) {
	resolved := &captureLogger{}
	provider := &loggerProviderSpy{logger: resolved}

	userProvider := NewUserProvider(nil).
		WithLoggerProvider(provider)

	require.Same(t, resolved, userProvider.logger)
	require.Contains(t, provider.names, "auth.user_provider")
}

func TestUserProviderLoggerProviderKeepsExplicitLogger(t *testing.T) {
	explicit := &captureLogger{}
	scoped := &captureLogger{}
	provider := &loggerProviderSpy{logger: scoped}

	userProvider := NewUserProvider(nil).
		WithLogger(explicit).
		WithLoggerProvider(provider)

	require.Same(t, explicit, userProvider.logger)
}

func TestUserProviderWithLoggerOverridesProvider(t *testing.T) {
	scoped := &captureLogger{}
	explicit := &captureLogger{}
	provider := &loggerProviderSpy{logger: scoped}

	userProvider := NewUserProvider(nil).
		WithLoggerProvider(provider).
		WithLogger(explicit)

	require.Same(t, explicit, userProvider.logger)
}

func TestAutherLoginLogsStructuredError(t *testing.T) {
	expectedErr := errors.New("store unavailable")
	logger := &captureLogger{}

	auther := NewAuthenticator(failingIdentityProvider{verifyErr: expectedErr}, loggingConfigStub{}).
		WithLogger(logger)

	_, err := auther.Login(context.Background(), "test_user", "password")
	require.ErrorIs(t, err, expectedErr)

	require.Len(t, logger.calls, 1)
	require.Equal(t, "error", logger.calls[0].level)
	require.Equal(t, "Login verify identity error", logger.calls[0].message)
	require.Equal(t, []any{"error", expectedErr}, logger.calls[0].args)
}

func TestAutherIdentityFromSessionLogsStructuredError(t *testing.T) {
	expectedErr := errors.New("identity lookup failed")
	logger := &captureLogger{}

	auther := NewAuthenticator(failingIdentityProvider{findErr: expectedErr}, loggingConfigStub{}).
		WithLogger(logger)

	_, err := auther.IdentityFromSession(context.Background(), sessionStub{userID: "user-1"})
	require.ErrorIs(t, err, expectedErr)

	require.Len(t, logger.calls, 1)
	require.Equal(t, "error", logger.calls[0].level)
	require.Equal(t, "IdentityFromSession find identity by identifier", logger.calls[0].message)
	require.Equal(t, []any{"error", expectedErr}, logger.calls[0].args)
}

func TestAutherActivitySinkFailureLogsWarning(t *testing.T) {
	expectedErr := errors.New("sink unavailable")
	logger := &captureLogger{}

	auther := NewAuthenticator(failingIdentityProvider{}, loggingConfigStub{}).
		WithLogger(logger).
		WithActivitySink(ActivitySinkFunc(func(context.Context, ActivityEvent) error {
			return expectedErr
		}))

	auther.emitAuthEvent(context.Background(), ActivityEventLoginSuccess, ActorRef{Type: "user"}, "user-1", nil)

	require.Len(t, logger.calls, 1)
	require.Equal(t, "warn", logger.calls[0].level)
}

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Default token lifetimes. Access tokens are short-lived by design since a
// refresh token can always mint a new one.
const (
	DefaultAccessTokenTTL  = 5 * time.Minute
	DefaultRefreshTokenTTL = 24 * time.Hour
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance. Non-positive TTLs
// fall back to the package defaults.
func NewTokenService(signingKey []byte, accessTTL, refreshTTL time.Duration, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}

	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	return &TokenServiceImpl{
		signingKey: signingKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     issuer,
		audience:   audience,
		logger:     logger,
	}
}

// NewTokenServiceFromConfig builds a TokenService from a Config, converting
// the millisecond TTLs the configuration surface uses.
func NewTokenServiceFromConfig(cfg Config, logger Logger) *TokenServiceImpl {
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		time.Duration(cfg.GetAccessTokenTTL())*time.Millisecond,
		time.Duration(cfg.GetRefreshTokenTTL())*time.Millisecond,
		cfg.GetIssuer(),
		cfg.GetAudience(),
		logger,
	)
}

// AccessTokenTTL exposes the configured access token lifetime so callers
// can report expires_in without re-reading configuration.
func (ts *TokenServiceImpl) AccessTokenTTL() time.Duration {
	return ts.accessTTL
}

// IssueAccessToken mints a short-lived token with the access use claim
func (ts *TokenServiceImpl) IssueAccessToken(identity Identity) (string, error) {
	return ts.issue(identity, TokenUseAccess, ts.accessTTL)
}

// IssueRefreshToken mints a long-lived token with the refresh use claim
func (ts *TokenServiceImpl) IssueRefreshToken(identity Identity) (string, error) {
	return ts.issue(identity, TokenUseRefresh, ts.refreshTTL)
}

func (ts *TokenServiceImpl) issue(identity Identity, use string, ttl time.Duration) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryBadInput)
	}

	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.Username(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:      identity.ID(),
		Use:      use,
		UserRole: identity.Role(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// ExtractUsername returns the subject without checking expiry. The
// signature is still verified so callers can look up the user before the
// full validation pass.
func (ts *TokenServiceImpl) ExtractUsername(tokenString string) (string, error) {
	claims, err := ts.decodeLenient(tokenString)
	if err != nil {
		return "", err
	}

	return claims.RegisteredClaims.Subject, nil
}

// ExtractExpiration returns the expiry timestamp without checking it
func (ts *TokenServiceImpl) ExtractExpiration(tokenString string) (time.Time, error) {
	claims, err := ts.decodeLenient(tokenString)
	if err != nil {
		return time.Time{}, err
	}

	return claims.Expires(), nil
}

// IsRefreshToken reports whether the token carries the refresh use claim.
// Classification failure is never an error: malformed, tampered, or
// unverifiable tokens simply are not refresh tokens.
func (ts *TokenServiceImpl) IsRefreshToken(tokenString string) bool {
	claims, err := ts.decodeLenient(tokenString)
	if err != nil {
		return false
	}

	return claims.TokenUse() == TokenUseRefresh
}

// ValidateFor reports whether the token is fully valid for the given
// identity: verified signature, not expired, and subject match. Every
// failure folds into false.
func (ts *TokenServiceImpl) ValidateFor(tokenString string, identity Identity) bool {
	if identity == nil {
		return false
	}

	claims, err := ts.Validate(tokenString)
	if err != nil {
		return false
	}

	return claims.Subject() == identity.Username()
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, ts.keyFunc, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrUnableToDecodeSession
}

// decodeLenient verifies the signature but skips claims validation so
// expired tokens can still be classified and inspected.
func (ts *TokenServiceImpl) decodeLenient(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, ts.keyFunc, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, ErrUnableToMapClaims
	}

	return claims, nil
}

func (ts *TokenServiceImpl) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return ts.signingKey, nil
}

func (ts *TokenServiceImpl) tokenDefaults() tokenDefaults {
	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	return tokenDefaults{
		issuer:   ts.issuer,
		audience: aud,
		ttl:      ts.accessTTL,
	}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}

var _ TokenService = (*TokenServiceImpl)(nil)

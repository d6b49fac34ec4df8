package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes give API clients a stable, machine-readable discriminator that
// survives message rewording.
const (
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodeTooManyAttempts     = "TOO_MANY_ATTEMPTS"
	TextCodeSessionNotFound     = "SESSION_NOT_FOUND"
	TextCodeSessionDecodeError  = "SESSION_DECODE_ERROR"
	TextCodeClaimsMappingError  = "CLAIMS_MAPPING_ERROR"
	TextCodeDataParseError      = "DATA_PARSE_ERROR"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeDuplicateUsername   = "DUPLICATE_USERNAME"
	TextCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	TextCodeNotRefreshToken     = "NOT_A_REFRESH_TOKEN"
	TextCodeRefreshTokenInvalid = "REFRESH_TOKEN_INVALID"
	TextCodeUserNotActive       = "USER_NOT_ACTIVE"
	TextCodeSignupDisabled      = "SIGNUP_DISABLED"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound)

// ErrMismatchedHashAndPassword covers every credential failure: unknown
// username, wrong password, and inactive account all look the same to the
// caller so usernames cannot be enumerated.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts signals the account is cooling down after
// repeated failed logins.
var ErrTooManyLoginAttempts = errors.New("too many login attempts, try again later", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrUserNotActive is returned when a known identity is not allowed to
// authenticate. Login folds this into ErrMismatchedHashAndPassword.
var ErrUserNotActive = errors.New("user account is not active", errors.CategoryAuth).
	WithTextCode(TextCodeUserNotActive).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToFindSession is the error when our request has no token
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from the request
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionDecodeError).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithTextCode(TextCodeClaimsMappingError)

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data", errors.CategoryBadInput).
	WithTextCode(TextCodeDataParseError)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrTokenExpired keeps the legacy "token is expired" text so string-based
// checks in older integrations keep working.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers tokens that fail to parse or verify
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateUsername rejects registration for a taken username
var ErrDuplicateUsername = errors.New("username is already taken", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateUsername)

// ErrDuplicateEmail rejects registration for a taken email
var ErrDuplicateEmail = errors.New("email is already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail)

// ErrNotRefreshToken is returned when the refresh flow receives a token
// whose use claim is not "refresh".
var ErrNotRefreshToken = errors.New("token is not a refresh token", errors.CategoryBadInput).
	WithTextCode(TextCodeNotRefreshToken)

// ErrRefreshTokenInvalid covers refresh tokens that fail full validation:
// bad signature, expired, or subject mismatch.
var ErrRefreshTokenInvalid = errors.New("refresh token is expired or invalid", errors.CategoryAuth).
	WithTextCode(TextCodeRefreshTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrSignupDisabled is returned when the signup feature gate is off
var ErrSignupDisabled = errors.New("user signup is disabled", errors.CategoryAuthz).
	WithTextCode(TextCodeSignupDisabled).
	WithCode(errors.CodeForbidden)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsInvalidCredentialsError reports whether err is the enumeration-safe
// credentials failure.
func IsInvalidCredentialsError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.TextCode == TextCodeInvalidCreds
}

package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// ClaimsDecorator can mutate allowed JWT claim extensions before a token is signed.
// Implementations may only touch extension fields (e.g. Resources, Metadata) and
// must leave registered/identity claims untouched so core auth semantics stay stable.
type ClaimsDecorator interface {
	Decorate(ctx context.Context, identity Identity, claims *JWTClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(ctx context.Context, identity Identity, claims *JWTClaims) error

// Decorate satisfies the ClaimsDecorator interface.
func (f ClaimsDecoratorFunc) Decorate(ctx context.Context, identity Identity, claims *JWTClaims) error {
	if f == nil {
		return nil
	}
	return f(ctx, identity, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(context.Context, Identity, *JWTClaims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}

// immutableClaimsSnapshot records the protected claims before decoration so
// a misbehaving decorator cannot alter token semantics.
type immutableClaimsSnapshot struct {
	issuer    string
	subject   string
	tokenID   string
	use       string
	uid       string
	audience  jwt.ClaimStrings
	issuedAt  *jwt.NumericDate
	expiresAt *jwt.NumericDate
}

func captureImmutableClaims(claims *JWTClaims) immutableClaimsSnapshot {
	aud := make(jwt.ClaimStrings, len(claims.RegisteredClaims.Audience))
	copy(aud, claims.RegisteredClaims.Audience)

	return immutableClaimsSnapshot{
		issuer:    claims.RegisteredClaims.Issuer,
		subject:   claims.RegisteredClaims.Subject,
		tokenID:   claims.RegisteredClaims.ID,
		use:       claims.Use,
		uid:       claims.UID,
		audience:  aud,
		issuedAt:  claims.RegisteredClaims.IssuedAt,
		expiresAt: claims.RegisteredClaims.ExpiresAt,
	}
}

func (s immutableClaimsSnapshot) validate(claims *JWTClaims) error {
	mutated := s.issuer != claims.RegisteredClaims.Issuer ||
		s.subject != claims.RegisteredClaims.Subject ||
		s.tokenID != claims.RegisteredClaims.ID ||
		s.use != claims.Use ||
		s.uid != claims.UID ||
		s.issuedAt != claims.RegisteredClaims.IssuedAt ||
		s.expiresAt != claims.RegisteredClaims.ExpiresAt ||
		len(s.audience) != len(claims.RegisteredClaims.Audience)

	if !mutated {
		for i, aud := range s.audience {
			if claims.RegisteredClaims.Audience[i] != aud {
				mutated = true
				break
			}
		}
	}

	if mutated {
		return errors.New("claims decorator mutated protected claims", errors.CategoryInternal)
	}

	return nil
}

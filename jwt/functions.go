package jwt

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims carried by a curatorgate session token.
type Claims struct {
	gojwt.RegisteredClaims
}

// Create signs claims with the server session secret.
func Create(claims Claims, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("session secret is empty")
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Validate checks signature, expiry and audience. audience may be empty to
// skip the audience check.
func Validate(token, secret, audience string, now time.Time) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is empty")
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithTimeFunc(func() time.Time { return now }),
		gojwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, gojwt.WithAudience(audience))
	}

	var claims Claims
	parsed, err := gojwt.ParseWithClaims(token, &claims, func(t *gojwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &claims, nil
}

// NewClaims builds session claims for subject valid for ttl from now.
func NewClaims(subject, audience string, now time.Time, ttl time.Duration) Claims {
	return Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			Audience:  gojwt.ClaimStrings{audience},
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the session token payload
type Claims struct {
	UserType string `json:"user_type"`
	Phone    string `json:"phone"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HMAC-signed session tokens
type TokenIssuer struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// NewTokenIssuer creates an issuer for one of HS256, HS384 or HS512
func NewTokenIssuer(secret, algorithm string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}

	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm: %q", algorithm)
	}

	return &TokenIssuer{
		secret: []byte(secret),
		method: method,
		now:    time.Now,
	}, nil
}

// Issue signs claims with an expiry of now+ttl. IssuedAt and ID are
// filled in when empty.
func (i *TokenIssuer) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := i.now()
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(i.method, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry. Any failure yields (nil, false).
func (i *TokenIssuer) Verify(tokenString string) (claims *Claims, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			claims, ok = nil, false
		}
	}()

	if tokenString == "" {
		return nil, false
	}

	parsed := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed,
		func(t *jwt.Token) (interface{}, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, false
	}
	if parsed.Subject == "" {
		return nil, false
	}

	return parsed, true
}

package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Decode failure kinds. Callers branch on these with errors.Is.
var (
	// ErrTokenInvalid covers malformed tokens and signature failures.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired means the signature checked out but exp is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrMalformedClaims means the payload decoded but the role claim is
	// absent or outside the enumerated set.
	ErrMalformedClaims = errors.New("malformed claims")
)

// Codec decodes and verifies access tokens against the shared secret
type Codec struct {
	secret []byte
}

// NewCodec creates a new token codec
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Decode parses and verifies a token, returning its claims.
// Expiry is checked even when the signature is valid. Decode does not
// judge the role claim; authorization is the guard's job.
func (cd *Codec) Decode(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return cd.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrTokenInvalid)
	}

	return claims, nil
}

// Role verifies a token and extracts its validated role claim
func (cd *Codec) Role(tokenString string) (Role, error) {
	claims, err := cd.Decode(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Role == "" {
		return "", fmt.Errorf("%w: role claim missing", ErrMalformedClaims)
	}
	return claims.ParsedRole()
}

// Issue signs a token with the given identity and TTL. The server never
// mints production credentials (the platform API does); this backs local
// development and tests.
func (cd *Codec) Issue(userID, email string, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cd.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

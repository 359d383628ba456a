package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the authorization role carried in the access token.
type Role string

// Enumerated roles. Anything else is a malformed claims set.
const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
)

// ParseRole validates a raw role claim value
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleDoctor, RolePatient:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrMalformedClaims, s)
}

// Claims represents the access token payload issued by the platform API.
// Wire shape: {id, email, role, iat, exp}.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ParsedRole returns the validated role from the claims
func (c *Claims) ParsedRole() (Role, error) {
	return ParseRole(c.Role)
}

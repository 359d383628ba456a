// Package session resolves the current user for UI consumption. Resolution
// always goes through the verified decode path; an unverified client-side
// decode is only ever a display hint and never made authoritative here.
package session

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medisync/caregate/internal/cookies"
	"github.com/medisync/caregate/internal/token"
	apperrors "github.com/medisync/caregate/pkg/errors"
	"github.com/medisync/caregate/pkg/response"
)

// User is the session identity handed to the UI
type User struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Role  token.Role `json:"role"`
}

// StatusFunc resolves the current user from a request, or nil when
// unauthenticated. Injectable so handlers can be tested without cookies
// or a codec.
type StatusFunc func(c *gin.Context) (*User, error)

// Manager answers "who is logged in" for the UI layer
type Manager struct {
	status StatusFunc
}

// NewManager creates a session manager backed by the verified decode of the
// access cookie
func NewManager(codec *token.Codec, store *cookies.Store) *Manager {
	return &Manager{status: func(c *gin.Context) (*User, error) {
		access, ok := store.Access(c)
		if !ok {
			return nil, nil
		}

		claims, err := codec.Decode(access)
		if err != nil {
			// An unusable token reads as logged-out, not as an error page
			return nil, nil
		}

		role, err := claims.ParsedRole()
		if err != nil {
			return nil, err
		}

		return &User{
			ID:    claims.UserID,
			Email: claims.Email,
			Role:  role,
		}, nil
	}}
}

// NewManagerWithStatus creates a manager with a custom status function
func NewManagerWithStatus(status StatusFunc) *Manager {
	return &Manager{status: status}
}

// Current resolves the authenticated user, nil when logged out
func (m *Manager) Current(c *gin.Context) (*User, error) {
	return m.status(c)
}

// Me returns the authenticated user's identity
// GET /auth/me
func (m *Manager) Me(c *gin.Context) {
	user, err := m.Current(c)
	if err != nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"data":    gin.H{"user": nil},
			"error": gin.H{
				"code":    apperrors.ErrCodeUnauthorized,
				"message": "Not authenticated",
			},
		})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

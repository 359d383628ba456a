// Package cookies reads and writes the platform's credential cookies.
package cookies

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Credential cookie names shared with the platform API
const (
	AccessTokenCookie  = "accessTokenHealthCare"
	RefreshTokenCookie = "refreshTokenHealthCare"
)

// Fallback lifetimes when the upstream Set-Cookie omits Max-Age
const (
	DefaultAccessMaxAge  = 3600    // 1 hour
	DefaultRefreshMaxAge = 7776000 // 90 days
)

// Credential is a cookie-borne token value with its storage attributes
type Credential struct {
	Value    string
	MaxAge   int
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// Store writes credential cookies with the gateway's configured attributes
type Store struct {
	secure   bool
	sameSite http.SameSite
	domain   string
}

// NewStore creates a cookie store
func NewStore(secure bool, sameSite http.SameSite, domain string) *Store {
	return &Store{secure: secure, sameSite: sameSite, domain: domain}
}

// Access returns the access token cookie value, if present
func (s *Store) Access(c *gin.Context) (string, bool) {
	return s.get(c, AccessTokenCookie)
}

// Refresh returns the refresh token cookie value, if present
func (s *Store) Refresh(c *gin.Context) (string, bool) {
	return s.get(c, RefreshTokenCookie)
}

func (s *Store) get(c *gin.Context, name string) (string, bool) {
	v, err := c.Cookie(name)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

// SetAccess installs the access credential cookie
func (s *Store) SetAccess(c *gin.Context, cred Credential) {
	if cred.MaxAge <= 0 {
		cred.MaxAge = DefaultAccessMaxAge
	}
	s.set(c, AccessTokenCookie, cred)
}

// SetRefresh installs the refresh credential cookie
func (s *Store) SetRefresh(c *gin.Context, cred Credential) {
	if cred.MaxAge <= 0 {
		cred.MaxAge = DefaultRefreshMaxAge
	}
	s.set(c, RefreshTokenCookie, cred)
}

func (s *Store) set(c *gin.Context, name string, cred Credential) {
	path := cred.Path
	if path == "" {
		path = "/"
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    cred.Value,
		MaxAge:   cred.MaxAge,
		Path:     path,
		Domain:   s.domain,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: s.sameSite,
	})
}

// ClearAccess deletes the access cookie. Idempotent if already absent.
func (s *Store) ClearAccess(c *gin.Context) {
	s.clear(c, AccessTokenCookie)
}

// ClearRefresh deletes the refresh cookie. Idempotent if already absent.
func (s *Store) ClearRefresh(c *gin.Context) {
	s.clear(c, RefreshTokenCookie)
}

// ClearAll deletes both credential cookies. Two independent deletes, each
// idempotent; there is no both-or-neither guarantee.
func (s *Store) ClearAll(c *gin.Context) {
	s.ClearAccess(c)
	s.ClearRefresh(c)
}

func (s *Store) clear(c *gin.Context, name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Domain:   s.domain,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: s.sameSite,
	})
}

// Package guard enforces session authentication and role-based route
// authorization on incoming page requests.
package guard

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medisync/caregate/internal/cookies"
	"github.com/medisync/caregate/internal/middleware"
	"github.com/medisync/caregate/internal/routes"
	"github.com/medisync/caregate/internal/token"
)

// ClaimsKey is the gin context key carrying verified claims downstream
const ClaimsKey = "claims"

// Guard decides, per request, between allowing it, redirecting to login,
// and redirecting to the unauthorized page. Stateless across requests; the
// route table is read-only after construction.
type Guard struct {
	codec     *token.Codec
	table     *routes.Table
	store     *cookies.Store
	refresher *Refresher
	logger    *zap.Logger
}

// New creates an access guard
func New(codec *token.Codec, table *routes.Table, store *cookies.Store, refresher *Refresher, logger *zap.Logger) *Guard {
	return &Guard{
		codec:     codec,
		table:     table,
		store:     store,
		refresher: refresher,
		logger:    logger,
	}
}

// Middleware evaluates the request against the route table.
//
// Decision order: unauthenticated requests pass on public auth routes and
// unguarded paths but bounce to login (with a redirect-back parameter) on
// protected ones. A present access token is decoded; on failure the refresh
// token, if any, is exchanged for a new access credential and the request
// proceeds without re-running role authorization in the same pass. Resolved
// claims on an auth route bounce home; on a protected route the role's
// prefix list decides between pass and the unauthorized page.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		access, hasAccess := g.store.Access(c)
		refresh, hasRefresh := g.store.Refresh(c)

		if !hasAccess && !hasRefresh {
			if g.table.IsProtected(path) {
				g.redirectToLogin(c, path)
				return
			}
			// Public auth routes and anything outside the guarded set
			middleware.RecordGuardDecision("allow_anonymous")
			c.Next()
			return
		}

		var claims *token.Claims
		if hasAccess {
			decoded, err := g.codec.Decode(access)
			if err == nil {
				claims = decoded
			} else {
				g.logger.Debug("access token rejected",
					zap.String("path", path),
					zap.Error(err),
				)
			}
		}

		// No usable access credential; try the refresh exchange. Success
		// lets the current request through without re-checking role
		// authorization in this pass — the next request re-evaluates with
		// the fresh token.
		if claims == nil && hasRefresh {
			cred, err := g.refresher.Refresh(c.Request.Context(), refresh)
			if err != nil {
				g.logger.Info("refresh exchange failed, forcing logout",
					zap.String("path", path),
					zap.Error(err),
				)
				middleware.RecordTokenRefresh("failure")
				g.forceLogout(c, path)
				return
			}

			g.store.SetAccess(c, *cred)
			if decoded, err := g.codec.Decode(cred.Value); err == nil {
				c.Set(ClaimsKey, decoded)
			}
			middleware.RecordTokenRefresh("success")
			middleware.RecordGuardDecision("allow_refreshed")
			c.Next()
			return
		}

		if claims == nil {
			// Access token unusable and no refresh token to fall back on
			if g.table.IsAuthRoute(path) {
				middleware.RecordGuardDecision("allow_anonymous")
				c.Next()
				return
			}
			if g.table.IsProtected(path) {
				g.forceLogout(c, path)
				return
			}
			middleware.RecordGuardDecision("allow_anonymous")
			c.Next()
			return
		}

		// Already authenticated users have no business on login/register
		if g.table.IsAuthRoute(path) {
			middleware.RecordGuardDecision("redirect_home")
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}

		if g.table.IsProtected(path) {
			role, err := claims.ParsedRole()
			if err != nil || !g.table.IsAllowed(role, path) {
				g.logger.Info("route not allowed for role",
					zap.String("path", path),
					zap.String("role", claims.Role),
				)
				middleware.RecordGuardDecision("redirect_unauthorized")
				c.Redirect(http.StatusFound, "/unauthorized")
				c.Abort()
				return
			}
		}

		c.Set(ClaimsKey, claims)
		middleware.RecordGuardDecision("allow")
		c.Next()
	}
}

// redirectToLogin bounces an unauthenticated request to the login page,
// preserving the original path for post-login routing
func (g *Guard) redirectToLogin(c *gin.Context, path string) {
	middleware.RecordGuardDecision("redirect_login")
	c.Redirect(http.StatusFound, fmt.Sprintf("/login?redirect=%s", path))
	c.Abort()
}

// forceLogout clears both credential cookies and bounces to login
func (g *Guard) forceLogout(c *gin.Context, path string) {
	g.store.ClearAll(c)
	g.redirectToLogin(c, path)
}

package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medisync/caregate/internal/backend"
	"github.com/medisync/caregate/internal/cookies"
	"github.com/medisync/caregate/internal/middleware"
	"github.com/medisync/caregate/internal/token"
	apperrors "github.com/medisync/caregate/pkg/errors"
	"github.com/medisync/caregate/pkg/response"
)

// Handler handles authentication HTTP requests
type Handler struct {
	service *Service
	store   *cookies.Store
	codec   *token.Codec
	revoked *token.RevocationList
	logger  *zap.Logger
}

// NewHandler creates a new authentication handler. revoked may be nil.
func NewHandler(service *Service, store *cookies.Store, codec *token.Codec, revoked *token.RevocationList, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		store:   store,
		codec:   codec,
		revoked: revoked,
		logger:  logger,
	}
}

// Login handles email/password login
// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	start := time.Now()

	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, "request body must be valid JSON")
		return
	}

	result, err := h.service.Login(c.Request.Context(), input, c.ClientIP())
	if err != nil {
		h.loginFailure(c, err)
		return
	}

	h.store.SetAccess(c, result.Pair.Access)
	h.store.SetRefresh(c, result.Pair.Refresh)

	middleware.RecordLoginAttempt("success", time.Since(start))
	response.Success(c, http.StatusOK, gin.H{
		"message":    "Login successful!",
		"redirectTo": result.RedirectTo,
		"user": gin.H{
			"id":    result.Claims.UserID,
			"email": result.Claims.Email,
			"role":  result.Claims.Role,
		},
	})
}

// Register handles patient registration followed by login
// POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, "request body must be valid JSON")
		return
	}

	result, err := h.service.Register(c.Request.Context(), input, c.ClientIP())
	if err != nil {
		var verrs *ValidationErrors
		if errors.As(err, &verrs) {
			response.FieldErrors(c, toFieldErrors(verrs))
			return
		}
		if errors.Is(err, ErrSessionAfterRegister) {
			// Account exists; a plain login retry establishes the session
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error": gin.H{
					"code":    apperrors.ErrCodeInternalError,
					"message": "Account created, but sign-in failed. Please log in.",
				},
			})
			return
		}
		h.logger.Warn("registration failed", zap.Error(err))
		response.Error(c, err)
		return
	}

	h.store.SetAccess(c, result.Pair.Access)
	h.store.SetRefresh(c, result.Pair.Refresh)

	response.Success(c, http.StatusCreated, gin.H{
		"message":    "Registration successful!",
		"redirectTo": result.RedirectTo,
		"user": gin.H{
			"id":    result.Claims.UserID,
			"email": result.Claims.Email,
			"role":  result.Claims.Role,
		},
	})
}

// Logout clears both credential cookies, revokes the refresh token and
// redirects to the login page. Always succeeds from the caller's view.
// POST /auth/logout
func (h *Handler) Logout(c *gin.Context) {
	email := ""
	if access, ok := h.store.Access(c); ok {
		if claims, err := h.codec.Decode(access); err == nil {
			email = claims.Email
		}
	}

	if refresh, ok := h.store.Refresh(c); ok && h.revoked != nil {
		if err := h.revoked.Revoke(c.Request.Context(), refresh, cookies.DefaultRefreshMaxAge*time.Second); err != nil {
			h.logger.Warn("failed to revoke refresh token", zap.Error(err))
		}
	}

	h.service.Logout(c.Request.Context(), email, c.ClientIP())
	h.store.ClearAll(c)
	c.Redirect(http.StatusFound, "/login?loggedOut=true")
}

// Health returns health status
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (h *Handler) loginFailure(c *gin.Context, err error) {
	var verrs *ValidationErrors
	if errors.As(err, &verrs) {
		response.FieldErrors(c, toFieldErrors(verrs))
		return
	}

	if errors.Is(err, backend.ErrMissingCredentials) {
		// Backend contract violation, logged server-side, generic to the user
		h.logger.Error("backend login response missing credentials")
		middleware.RecordLoginAttempt("error", 0)
		response.Error(c, apperrors.ErrMissingCredentials)
		return
	}

	var rejected *backend.LoginRejectedError
	if errors.As(err, &rejected) {
		middleware.RecordLoginAttempt("failure", 0)
	} else {
		middleware.RecordLoginAttempt("blocked", 0)
	}

	// Wrong password, unknown account and lockouts all collapse to 401
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    apperrors.ErrCodeInvalidCredentials,
			"message": "Invalid email or password",
		},
	})
}

func toFieldErrors(verrs *ValidationErrors) []response.FieldError {
	out := make([]response.FieldError, len(verrs.Errors))
	for i, ve := range verrs.Errors {
		out[i] = response.FieldError{Field: ve.Field, Message: ve.Message}
	}
	return out
}

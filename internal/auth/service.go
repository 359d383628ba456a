package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medisync/caregate/internal/backend"
	"github.com/medisync/caregate/internal/middleware"
	"github.com/medisync/caregate/internal/routes"
	"github.com/medisync/caregate/internal/token"
)

// ErrSessionAfterRegister means the account was created but the follow-up
// login failed. There is no compensating rollback; the account exists and a
// plain login retry establishes the session.
var ErrSessionAfterRegister = errors.New("account created but session could not be established")

// Exchanger is the slice of the platform API the auth flows need
type Exchanger interface {
	Login(ctx context.Context, email, password string) (*backend.CredentialPair, error)
	CreatePatient(ctx context.Context, input backend.CreatePatientInput) error
}

// RateLimiter interface for login attempt limiting
type RateLimiter interface {
	CheckLoginAttempt(ctx context.Context, email, ipAddress string) (allowed bool, remaining int, lockoutRemaining time.Duration, err error)
	RecordFailedAttempt(ctx context.Context, email, ipAddress string) error
	RecordSuccessfulAttempt(ctx context.Context, email, ipAddress string) error
}

// EventRecorder persists auth events for the audit trail
type EventRecorder interface {
	Record(ctx context.Context, kind, email, ipAddress string, success bool)
}

// LoginInput is a login submission. Redirect is the optional post-login
// destination hint carried through the login page's query string.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Redirect string `json:"redirect,omitempty"`
}

// RegisterInput is a patient registration submission
type RegisterInput struct {
	Name            string `json:"name"`
	Address         string `json:"address,omitempty"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginResult carries the credentials to install and the destination the
// client should navigate to. Navigation is return-value driven; the login
// flow never issues a server-side redirect itself.
type LoginResult struct {
	Pair       *backend.CredentialPair
	Claims     *token.Claims
	RedirectTo string
}

// Service implements the login, registration and logout flows
type Service struct {
	api     Exchanger
	codec   *token.Codec
	table   *routes.Table
	limiter RateLimiter
	events  EventRecorder
	logger  *zap.Logger
}

// NewService creates an auth service. limiter and events may be nil.
func NewService(api Exchanger, codec *token.Codec, table *routes.Table, limiter RateLimiter, events EventRecorder, logger *zap.Logger) *Service {
	return &Service{
		api:     api,
		codec:   codec,
		table:   table,
		limiter: limiter,
		events:  events,
		logger:  logger,
	}
}

// Login validates the submission, exchanges credentials with the platform
// API and resolves the post-login destination. Validation failures return
// *ValidationErrors before any network call is made.
func (s *Service) Login(ctx context.Context, input LoginInput, ipAddress string) (*LoginResult, error) {
	if err := ValidateLogin(&input); err != nil {
		return nil, err
	}

	email := SanitizeEmail(input.Email)

	if s.limiter != nil {
		allowed, _, lockoutRemaining, err := s.limiter.CheckLoginAttempt(ctx, email, ipAddress)
		if err != nil {
			// A broken limiter must not lock everyone out
			s.logger.Warn("rate limiter check failed", zap.Error(err))
		} else if !allowed {
			middleware.RecordRateLimitHit()
			return nil, fmt.Errorf("too many failed attempts, locked out for %v", lockoutRemaining.Round(time.Second))
		}
	}

	pair, err := s.api.Login(ctx, email, input.Password)
	if err != nil {
		s.recordEvent(ctx, "login", email, ipAddress, false)
		if s.limiter != nil {
			if lerr := s.limiter.RecordFailedAttempt(ctx, email, ipAddress); lerr != nil {
				s.logger.Warn("failed to record login attempt", zap.Error(lerr))
			}
		}
		return nil, err
	}

	// Authorization decisions only ever come from the verified decode path
	claims, err := s.codec.Decode(pair.Access.Value)
	if err != nil {
		s.logger.Error("backend issued an undecodable access token", zap.Error(err))
		return nil, backend.ErrMissingCredentials
	}

	role, err := claims.ParsedRole()
	if err != nil {
		s.logger.Error("backend issued claims with an unknown role",
			zap.String("role", claims.Role),
		)
		return nil, backend.ErrMissingCredentials
	}

	s.recordEvent(ctx, "login", email, ipAddress, true)
	if s.limiter != nil {
		if lerr := s.limiter.RecordSuccessfulAttempt(ctx, email, ipAddress); lerr != nil {
			s.logger.Warn("failed to clear login attempts", zap.Error(lerr))
		}
	}

	return &LoginResult{
		Pair:       pair,
		Claims:     claims,
		RedirectTo: s.table.ResolveRedirect(role, input.Redirect),
	}, nil
}

// Register creates a patient account and immediately logs it in with the
// same credentials. Two physical calls, one logical operation; if login
// fails after creation succeeds the account stands and the caller gets
// ErrSessionAfterRegister.
func (s *Service) Register(ctx context.Context, input RegisterInput, ipAddress string) (*LoginResult, error) {
	if err := ValidateRegistration(&input); err != nil {
		return nil, err
	}

	email := SanitizeEmail(input.Email)

	err := s.api.CreatePatient(ctx, backend.CreatePatientInput{
		Password: input.Password,
		Patient: backend.Patient{
			Name:    input.Name,
			Address: input.Address,
			Email:   email,
		},
	})
	if err != nil {
		s.recordEvent(ctx, "register", email, ipAddress, false)
		return nil, err
	}
	s.recordEvent(ctx, "register", email, ipAddress, true)

	result, err := s.Login(ctx, LoginInput{Email: email, Password: input.Password}, ipAddress)
	if err != nil {
		s.logger.Error("login failed after successful registration",
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrSessionAfterRegister, err)
	}

	return result, nil
}

// Logout records the event. Cookie clearing happens at the handler; logout
// always succeeds from the caller's perspective.
func (s *Service) Logout(ctx context.Context, email, ipAddress string) {
	s.recordEvent(ctx, "logout", email, ipAddress, true)
}

func (s *Service) recordEvent(ctx context.Context, kind, email, ipAddress string, success bool) {
	if s.events != nil {
		s.events.Record(ctx, kind, email, ipAddress, success)
	}
}

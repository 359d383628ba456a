// Package backend is the HTTP client for the platform REST API, the sole
// authority for credentials. Tokens travel on Set-Cookie headers, not in
// response bodies.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/medisync/caregate/internal/cookies"
)

// Client failure kinds
var (
	// ErrMissingCredentials means the API answered 2xx but the expected
	// Set-Cookie credentials were absent — a contract violation.
	ErrMissingCredentials = errors.New("credentials missing from backend response")
)

// RefreshRejectedError is a non-2xx answer to a refresh exchange
type RefreshRejectedError struct {
	Status int
}

func (e *RefreshRejectedError) Error() string {
	return fmt.Sprintf("refresh rejected with status %d", e.Status)
}

// LoginRejectedError is a non-2xx answer to a login exchange
type LoginRejectedError struct {
	Status  int
	Message string
}

func (e *LoginRejectedError) Error() string {
	return fmt.Sprintf("login rejected with status %d: %s", e.Status, e.Message)
}

// CredentialPair is the access and refresh credentials from a login exchange
type CredentialPair struct {
	Access  cookies.Credential
	Refresh cookies.Credential
}

// CreatePatientInput is the payload for patient account creation
type CreatePatientInput struct {
	Password string  `json:"password"`
	Patient  Patient `json:"patient"`
}

// Patient is the profile section of a patient creation request
type Patient struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email"`
}

// Client talks to the platform API
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a backend API client. baseURL includes the /api/v1 prefix.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Login exchanges email/password for a credential pair.
// Both tokens must arrive via Set-Cookie or the exchange fails with
// ErrMissingCredentials.
func (c *Client) Login(ctx context.Context, email, password string) (*CredentialPair, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoginRejectedError{Status: resp.StatusCode, Message: apiMessage(resp.Body)}
	}

	var pair CredentialPair
	var haveAccess, haveRefresh bool
	for _, ck := range resp.Cookies() {
		switch ck.Name {
		case cookies.AccessTokenCookie:
			pair.Access = fromCookie(ck, cookies.DefaultAccessMaxAge)
			haveAccess = true
		case cookies.RefreshTokenCookie:
			pair.Refresh = fromCookie(ck, cookies.DefaultRefreshMaxAge)
			haveRefresh = true
		}
	}
	if !haveAccess || !haveRefresh {
		return nil, ErrMissingCredentials
	}

	return &pair, nil
}

// RefreshAccessToken exchanges a refresh token for a new access credential.
// Idempotent under retry: a still-valid refresh token yields a fresh access
// credential each call without invalidating the prior one.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*cookies.Credential, error) {
	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh-token", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RefreshRejectedError{Status: resp.StatusCode}
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == cookies.AccessTokenCookie {
			cred := fromCookie(ck, cookies.DefaultAccessMaxAge)
			return &cred, nil
		}
	}

	return nil, ErrMissingCredentials
}

// CreatePatient registers a new patient account. The API expects a multipart
// form whose "data" field is the JSON payload.
func (c *Client) CreatePatient(ctx context.Context, input CreatePatientInput) error {
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to encode patient data: %w", err)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("data", string(data)); err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/user/create-patient", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("create-patient request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("create-patient rejected with status %d: %s", resp.StatusCode, apiMessage(resp.Body))
	}

	return nil
}

func fromCookie(ck *http.Cookie, fallbackMaxAge int) cookies.Credential {
	maxAge := ck.MaxAge
	if maxAge <= 0 {
		maxAge = fallbackMaxAge
	}
	return cookies.Credential{
		Value:    ck.Value,
		MaxAge:   maxAge,
		Path:     ck.Path,
		Secure:   ck.Secure,
		HTTPOnly: ck.HttpOnly,
		SameSite: ck.SameSite,
	}
}

// apiMessage pulls the human-readable message out of an API error body
func apiMessage(r io.Reader) string {
	var payload struct {
		Message string `json:"message"`
	}
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

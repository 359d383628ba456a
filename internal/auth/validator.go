package auth

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Email validation regex (RFC 5322 simplified)
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// Password requirements shared by login and registration
	minPasswordLength = 6
	maxPasswordLength = 100
)

// ValidationError represents a validation error on a single field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates per-field failures. Validation runs before
// any network call; a non-empty result short-circuits the flow.
type ValidationErrors struct {
	Errors []ValidationError
}

func (e *ValidationErrors) Error() string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

// ValidateLogin validates a login request
func ValidateLogin(input *LoginInput) error {
	errs := validateCredentials(input.Email, input.Password)
	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

// ValidateRegistration validates a patient registration request
func ValidateRegistration(input *RegisterInput) error {
	errs := make([]ValidationError, 0)

	if strings.TrimSpace(input.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "Name is required",
		})
	}

	errs = append(errs, validateCredentials(input.Email, input.Password)...)

	// Cross-field invariant, reported against confirmPassword
	if input.ConfirmPassword != input.Password {
		errs = append(errs, ValidationError{
			Field:   "confirmPassword",
			Message: "Passwords do not match",
		})
	}

	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

func validateCredentials(email, password string) []ValidationError {
	errs := make([]ValidationError, 0)

	if email == "" {
		errs = append(errs, ValidationError{
			Field:   "email",
			Message: "Email is required",
		})
	} else if !IsValidEmail(email) {
		errs = append(errs, ValidationError{
			Field:   "email",
			Message: "Email format is invalid",
		})
	}

	if password == "" {
		errs = append(errs, ValidationError{
			Field:   "password",
			Message: "Password is required",
		})
	} else if len(password) < minPasswordLength {
		errs = append(errs, ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters", minPasswordLength),
		})
	} else if len(password) > maxPasswordLength {
		errs = append(errs, ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at most %d characters", maxPasswordLength),
		})
	}

	return errs
}

// IsValidEmail checks if an email address is valid
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// SanitizeEmail normalizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-minimum-32-chars"

func TestCodec_DecodeRoundTrip(t *testing.T) {
	codec := NewCodec(testSecret)

	signed, err := codec.Issue("user-1", "patient@example.com", RolePatient, time.Hour)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	claims, err := codec.Decode(signed)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-1")
	}
	if claims.Email != "patient@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "patient@example.com")
	}
	if claims.Role != string(RolePatient) {
		t.Errorf("Role = %q, want %q", claims.Role, RolePatient)
	}
	if claims.IssuedAt == nil || claims.IssuedAt.IsZero() {
		t.Error("IssuedAt is missing")
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.IsZero() {
		t.Error("ExpiresAt is missing")
	}
}

func TestCodec_DecodeWrongSecret(t *testing.T) {
	signed, err := NewCodec(testSecret).Issue("user-1", "a@b.com", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	_, err = NewCodec("another-secret-key-with-32-chars").Decode(signed)
	if err == nil {
		t.Fatal("Decode() should fail for a token signed with the wrong secret")
	}
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Decode() error = %v, want ErrTokenInvalid", err)
	}
}

func TestCodec_DecodeExpired(t *testing.T) {
	codec := NewCodec(testSecret)

	// Valid signature, exp in the past
	signed, err := codec.Issue("user-1", "a@b.com", RoleDoctor, -time.Minute)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	_, err = codec.Decode(signed)
	if err == nil {
		t.Fatal("Decode() should fail for an expired token")
	}
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Decode() error = %v, want ErrTokenExpired", err)
	}
	if errors.Is(err, ErrTokenInvalid) {
		t.Error("expired tokens must not read as ErrTokenInvalid")
	}
}

func TestCodec_DecodeGarbage(t *testing.T) {
	codec := NewCodec(testSecret)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"invalid format", "not.a.jwt"},
		{"random string", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			if err == nil {
				t.Fatal("Decode() should fail")
			}
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("Decode() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestCodec_Role(t *testing.T) {
	codec := NewCodec(testSecret)

	signed, err := codec.Issue("user-1", "a@b.com", RolePatient, time.Hour)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	role, err := codec.Role(signed)
	if err != nil {
		t.Fatalf("Role() failed: %v", err)
	}
	if role != RolePatient {
		t.Errorf("Role() = %q, want %q", role, RolePatient)
	}
}

func TestCodec_RoleMalformed(t *testing.T) {
	codec := NewCodec(testSecret)

	tests := []struct {
		name string
		role string
	}{
		{"unknown role", "SUPERUSER"},
		{"lowercase role", "patient"},
		{"empty role", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Sign directly so Issue's typed Role can't get in the way
			now := time.Now()
			claims := Claims{
				UserID: "user-1",
				Email:  "a@b.com",
				Role:   tt.role,
				RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
					IssuedAt:  jwt.NewNumericDate(now),
				},
			}
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
			if err != nil {
				t.Fatalf("failed to sign test token: %v", err)
			}

			_, err = codec.Role(signed)
			if err == nil {
				t.Fatal("Role() should fail")
			}
			if !errors.Is(err, ErrMalformedClaims) {
				t.Errorf("Role() error = %v, want ErrMalformedClaims", err)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"ADMIN", "DOCTOR", "PATIENT"} {
		if _, err := ParseRole(valid); err != nil {
			t.Errorf("ParseRole(%q) failed: %v", valid, err)
		}
	}

	if _, err := ParseRole("NURSE"); !errors.Is(err, ErrMalformedClaims) {
		t.Errorf("ParseRole(NURSE) error = %v, want ErrMalformedClaims", err)
	}
}

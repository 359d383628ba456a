// Package routes holds the role to path-prefix authorization table.
// Both the access guard and the login flow resolve paths through the same
// Table value; keeping a single copy is what prevents the redirect loop
// where login sends a user to a path the guard then rejects.
package routes

import (
	"fmt"
	"strings"

	"github.com/medisync/caregate/internal/token"
)

// Table maps each role to the path prefixes it may access, alongside the
// public auth pages. Read-only after construction.
type Table struct {
	byRole     map[token.Role][]string
	authRoutes []string
}

// New builds a table, rejecting roles with no allowed prefix
func New(byRole map[token.Role][]string, authRoutes []string) (*Table, error) {
	for role, prefixes := range byRole {
		if len(prefixes) == 0 {
			return nil, fmt.Errorf("role %s has no allowed path prefix", role)
		}
		for _, p := range prefixes {
			if !strings.HasPrefix(p, "/") {
				return nil, fmt.Errorf("role %s: prefix %q must start with /", role, p)
			}
		}
	}
	return &Table{byRole: byRole, authRoutes: authRoutes}, nil
}

// Default returns the platform's route table
func Default() *Table {
	t, err := New(
		map[token.Role][]string{
			token.RoleAdmin:   {"/dashboard/admin"},
			token.RoleDoctor:  {"/dashboard/doctor"},
			token.RolePatient: {"/dashboard/patient"},
		},
		[]string{"/login", "/register", "/forgot-password"},
	)
	if err != nil {
		panic(err) // static table, cannot fail
	}
	return t
}

// IsAuthRoute reports whether path is one of the public auth pages
// (login/register/forgot-password)
func (t *Table) IsAuthRoute(path string) bool {
	for _, r := range t.authRoutes {
		if path == r {
			return true
		}
	}
	return false
}

// IsProtected reports whether path falls inside any role's guarded prefix
func (t *Table) IsProtected(path string) bool {
	for _, prefixes := range t.byRole {
		for _, p := range prefixes {
			if strings.HasPrefix(path, p) {
				return true
			}
		}
	}
	return false
}

// IsAllowed reports whether the role may access path.
// Unmapped roles are never granted access beyond public routes.
func (t *Table) IsAllowed(role token.Role, path string) bool {
	for _, p := range t.byRole[role] {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// DefaultDashboard returns the role's landing path after login
func (t *Table) DefaultDashboard(role token.Role) string {
	prefixes := t.byRole[role]
	if len(prefixes) == 0 {
		return "/"
	}
	return prefixes[0]
}

// ResolveRedirect picks the post-login destination: the hint when it is a
// path the role may access, the role's dashboard otherwise.
func (t *Table) ResolveRedirect(role token.Role, hint string) string {
	if hint != "" && t.IsAllowed(role, hint) {
		return hint
	}
	return t.DefaultDashboard(role)
}

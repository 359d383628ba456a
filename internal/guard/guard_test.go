package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medisync/caregate/internal/cookies"
	"github.com/medisync/caregate/internal/routes"
	"github.com/medisync/caregate/internal/token"
)

const testSecret = "test-secret-key-minimum-32-chars"

// fakeUpstream stubs the refresh exchange
type fakeUpstream struct {
	cred  *cookies.Credential
	err   error
	calls int
}

func (f *fakeUpstream) RefreshAccessToken(ctx context.Context, refreshToken string) (*cookies.Credential, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.cred, nil
}

func newTestRouter(upstream *fakeUpstream) *gin.Engine {
	gin.SetMode(gin.TestMode)

	codec := token.NewCodec(testSecret)
	table := routes.Default()
	store := cookies.NewStore(false, http.SameSiteLaxMode, "")
	g := New(codec, table, store, NewRefresher(upstream, nil), zap.NewNop())

	router := gin.New()
	router.NoRoute(g.Middleware(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func issue(t *testing.T, role token.Role, ttl time.Duration) string {
	t.Helper()
	signed, err := token.NewCodec(testSecret).Issue("user-1", "u@example.com", role, ttl)
	if err != nil {
		t.Fatalf("failed to issue test token: %v", err)
	}
	return signed
}

func get(router *gin.Engine, path string, reqCookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range reqCookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGuard_AnonymousOnAuthRoute(t *testing.T) {
	router := newTestRouter(&fakeUpstream{})

	for _, path := range []string{"/login", "/register", "/forgot-password"} {
		w := get(router, path)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
}

func TestGuard_AnonymousOnProtectedRoute(t *testing.T) {
	router := newTestRouter(&fakeUpstream{})

	w := get(router, "/dashboard/patient")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?redirect=/dashboard/patient" {
		t.Errorf("Location = %q, want %q", loc, "/login?redirect=/dashboard/patient")
	}
}

func TestGuard_AnonymousOutsideGuardedSet(t *testing.T) {
	router := newTestRouter(&fakeUpstream{})

	// Default-open for routes outside the matched set
	w := get(router, "/about")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestGuard_RoleAllowed(t *testing.T) {
	router := newTestRouter(&fakeUpstream{})
	access := issue(t, token.RolePatient, time.Hour)

	w := get(router, "/dashboard/patient/appointments",
		&http.Cookie{Name: cookies.AccessTokenCookie, Value: access})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestGuard_RoleForbidden(t *testing.T) {
	router := newTestRouter(&fakeUpstream{})
	access := issue(t, token.RolePatient, time.Hour)

	w := get(router, "/dashboard/admin",
		&http.Cookie{Name: cookies.AccessTokenCookie, Value: access})
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/unauthorized" {
		t.Errorf("Location = %q, want /unauthorized", loc)
	}
}

func TestGuard_AuthenticatedOnAuthRoute(t *testing.T) {
	router := newTestRouter(&fakeUpstream{})
	access := issue(t, token.RoleDoctor, time.Hour)

	w := get(router, "/login",
		&http.Cookie{Name: cookies.AccessTokenCookie, Value: access})
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

func TestGuard_ExpiredAccessRefreshSucceeds(t *testing.T) {
	newAccess := issue(t, token.RolePatient, time.Hour)
	upstream := &fakeUpstream{cred: &cookies.Credential{Value: newAccess, MaxAge: 3600}}
	router := newTestRouter(upstream)

	expired := issue(t, token.RolePatient, -time.Minute)
	w := get(router, "/dashboard/patient",
		&http.Cookie{Name: cookies.AccessTokenCookie, Value: expired},
		&http.Cookie{Name: cookies.RefreshTokenCookie, Value: "refresh-token-value"})

	// Original request proceeds, not redirected to login
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if upstream.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", upstream.calls)
	}

	found := false
	for _, sc := range w.Header().Values("Set-Cookie") {
		if strings.HasPrefix(sc, cookies.AccessTokenCookie+"="+newAccess) {
			found = true
		}
	}
	if !found {
		t.Error("new access credential was not installed")
	}
}

func TestGuard_RefreshFailureForcesLogout(t *testing.T) {
	upstream := &fakeUpstream{err: errors.New("rejected")}
	router := newTestRouter(upstream)

	w := get(router, "/dashboard/doctor",
		&http.Cookie{Name: cookies.RefreshTokenCookie, Value: "stale-refresh"})

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?redirect=/dashboard/doctor" {
		t.Errorf("Location = %q, want login redirect", loc)
	}

	// Both credential cookies must be cleared
	cleared := map[string]bool{}
	for _, sc := range w.Header().Values("Set-Cookie") {
		for _, name := range []string{cookies.AccessTokenCookie, cookies.RefreshTokenCookie} {
			if strings.HasPrefix(sc, name+"=") && strings.Contains(sc, "Max-Age=0") {
				cleared[name] = true
			}
		}
	}
	if !cleared[cookies.AccessTokenCookie] || !cleared[cookies.RefreshTokenCookie] {
		t.Errorf("cookies cleared = %v, want both", cleared)
	}
}

func TestGuard_InvalidAccessNoRefresh(t *testing.T) {
	router := newTestRouter(&fakeUpstream{})

	w := get(router, "/dashboard/patient",
		&http.Cookie{Name: cookies.AccessTokenCookie, Value: "garbage"})

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?redirect=/dashboard/patient" {
		t.Errorf("Location = %q, want login redirect", loc)
	}
}

package cookies

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestStore_ReadCookies(t *testing.T) {
	store := NewStore(true, http.SameSiteNoneMode, "")
	c, _ := newTestContext()
	c.Request.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "access-value"})

	if v, ok := store.Access(c); !ok || v != "access-value" {
		t.Errorf("Access() = %q, %v", v, ok)
	}
	if _, ok := store.Refresh(c); ok {
		t.Error("Refresh() should report absent cookie")
	}
}

func TestStore_SetAccessAttributes(t *testing.T) {
	store := NewStore(true, http.SameSiteNoneMode, "")
	c, w := newTestContext()

	store.SetAccess(c, Credential{Value: "access-value", MaxAge: 1800})

	sc := w.Header().Get("Set-Cookie")
	for _, want := range []string{
		AccessTokenCookie + "=access-value",
		"Max-Age=1800",
		"Path=/",
		"HttpOnly",
		"Secure",
		"SameSite=None",
	} {
		if !strings.Contains(sc, want) {
			t.Errorf("Set-Cookie %q missing %q", sc, want)
		}
	}
}

func TestStore_SetFallbackMaxAge(t *testing.T) {
	store := NewStore(false, http.SameSiteLaxMode, "")

	c, w := newTestContext()
	store.SetAccess(c, Credential{Value: "v"})
	if sc := w.Header().Get("Set-Cookie"); !strings.Contains(sc, "Max-Age=3600") {
		t.Errorf("access fallback Max-Age missing: %q", sc)
	}

	c, w = newTestContext()
	store.SetRefresh(c, Credential{Value: "v"})
	if sc := w.Header().Get("Set-Cookie"); !strings.Contains(sc, "Max-Age=7776000") {
		t.Errorf("refresh fallback Max-Age missing: %q", sc)
	}
}

func TestStore_ClearAll(t *testing.T) {
	store := NewStore(true, http.SameSiteNoneMode, "")
	c, w := newTestContext()

	// Clearing with no cookies present still emits both deletes
	store.ClearAll(c)

	got := w.Header().Values("Set-Cookie")
	if len(got) != 2 {
		t.Fatalf("Set-Cookie count = %d, want 2", len(got))
	}
	for _, sc := range got {
		if !strings.Contains(sc, "Max-Age=0") {
			t.Errorf("delete cookie %q missing Max-Age=0", sc)
		}
	}
}

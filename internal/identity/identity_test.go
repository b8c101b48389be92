package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, req *http.Request) (string, *http.Cookie) {
	t.Helper()

	var seen string
	h := Middleware(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == AnonCookieName {
			return seen, c
		}
	}
	t.Fatal("Expected identity cookie")
	return "", nil
}

func TestMiddlewareIssuesID(t *testing.T) {
	t.Parallel()

	id, cookie := serve(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if !isValidAnonID(id) {
		t.Fatalf("Invalid generated id %q", id)
	}
	if cookie.Value != id || !cookie.HttpOnly {
		t.Errorf("Unexpected cookie %+v", cookie)
	}
}

func TestMiddlewareKeepsValidCookie(t *testing.T) {
	t.Parallel()

	const existing = "anon_0123456789abcdef0123456789abcdef"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: existing})

	id, cookie := serve(t, req)
	if id != existing || cookie.Value != existing {
		t.Errorf("Expected %s to be kept, got %s", existing, id)
	}
}

func TestMiddlewareReplacesForgedCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "admin"})

	id, _ := serve(t, req)
	if id == "admin" || !isValidAnonID(id) {
		t.Errorf("Expected a fresh id, got %q", id)
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	if got := DisplayName("anon_0123456789abcdef0123456789abcdef"); got != "learner-89abcdef" {
		t.Errorf("Unexpected display name %q", got)
	}
	if got := DisplayName("x"); got != "learner" {
		t.Errorf("Unexpected display name %q", got)
	}
}

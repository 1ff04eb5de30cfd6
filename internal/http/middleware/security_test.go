package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func serveSecured(t *testing.T, opt SecurityOptions, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	r := newEngine()
	r.Use(RequestID(), SecurityHeaders(opt))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	w := serveSecured(t, SecurityOptions{EnablePolicy: true}, nil)

	for h, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := w.Header().Get(h); got != want {
			t.Errorf("%s = %q, want %q", h, got, want)
		}
	}
	if w.Header().Get("Permissions-Policy") == "" {
		t.Errorf("Permissions-Policy missing with EnablePolicy")
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Request-ID") {
		t.Errorf("Expose-Headers = %q, want X-Request-ID", got)
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: 0}

	w := serveSecured(t, opt, nil)
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Errorf("HSTS set on plain HTTP request")
	}

	w = serveSecured(t, opt, func(r *http.Request) {
		r.Header.Set("X-Forwarded-Proto", "https")
	})
	hsts := w.Header().Get("Strict-Transport-Security")
	if !strings.Contains(hsts, "max-age=15552000") {
		t.Errorf("HSTS = %q, want 180-day default max-age", hsts)
	}
}

func TestSecurityHeaders_NoStore(t *testing.T) {
	w := serveSecured(t, SecurityOptions{NoStore: true}, nil)
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

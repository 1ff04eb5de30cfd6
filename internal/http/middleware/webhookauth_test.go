package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestWebhookAuth(t *testing.T) {
	r := newEngine()
	r.Use(WebhookAuth("topsecret"))
	r.POST("/webhook", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Missing header.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: status = %d, want 401", w.Code)
	}

	// Wrong secret.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set(HeaderWebhookSecret, "guess")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: status = %d, want 401", w.Code)
	}

	// Correct secret.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set(HeaderWebhookSecret, "topsecret")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("correct secret: status = %d, want 200", w.Code)
	}
}

func TestWebhookAuth_EmptySecretDisablesCheck(t *testing.T) {
	r := newEngine()
	r.Use(WebhookAuth(""))
	r.POST("/webhook", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with empty secret", w.Code)
	}
}

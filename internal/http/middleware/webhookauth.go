// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file authenticates Telegram webhook deliveries. When a webhook is
// registered with a secret token, Telegram echoes it back on every delivery
// in the X-Telegram-Bot-Api-Secret-Token header; anything without a matching
// header is not Telegram and must be rejected before the update body is even
// decoded.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderWebhookSecret is the header Telegram attaches to webhook deliveries
// when the webhook was registered with a secret_token.
const HeaderWebhookSecret = "X-Telegram-Bot-Api-Secret-Token"

// WebhookAuth returns a Gin middleware that rejects requests whose
// X-Telegram-Bot-Api-Secret-Token header does not match secret. The
// comparison is constant-time. An empty secret disables the check, which is
// only acceptable behind a trusted proxy that does its own filtering.
//
// Rejected requests get a 401 with the standard error envelope:
//
//	HTTP/1.1 401 Unauthorized
//	{
//	  "request_id": "<uuid>",
//	  "code":       "unauthorized",
//	  "message":    "invalid webhook secret"
//	}
func WebhookAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderWebhookSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "invalid webhook secret",
			})
			return
		}
		c.Next()
	}
}

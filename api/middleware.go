package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	AccountHeader = "X-Account-ID"
	SecretHeader  = "X-Webhook-Secret"

	accountKey = "account_id"
)

// RequireAccount reads the account id set by the authenticating proxy in front
// of the service.
func RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(AccountHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing account", Code: "unauthorized"})
			return
		}
		c.Set(accountKey, id)
		c.Next()
	}
}

func accountID(c *gin.Context) string {
	return c.GetString(accountKey)
}

// RequireSecret guards machine-to-machine routes with a shared secret. An empty
// secret rejects every request.
func RequireSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(SecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid secret", Code: "unauthorized"})
			return
		}
		c.Next()
	}
}

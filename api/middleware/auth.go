package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tenderscope/auth"
	"github.com/use-agent/tenderscope/models"
)

// Context keys set by Auth.
const (
	UsernameKey = "username"
	IdentityKey = "identity"
)

// Auth returns bearer authentication middleware.
//
// Supports two header styles:
//
//	Authorization: Bearer <access token or API key>
//	X-API-Key: <key>
//
// Access tokens come from POST /login. Static API keys let machine clients
// (the MCP server, cron jobs) skip the login step.
func Auth(issuer *auth.Issuer, apiKeys []string) gin.HandlerFunc {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(c *gin.Context) {
		cred := extractCredential(c)
		if cred == "" {
			abortUnauthorized(c, "missing credentials: provide Authorization: Bearer <token> or X-API-Key header")
			return
		}

		if validKey(keys, cred) {
			c.Set(IdentityKey, "key:"+cred)
			c.Next()
			return
		}

		username, err := issuer.Parse(cred)
		if err != nil {
			abortUnauthorized(c, "could not validate credentials")
			return
		}
		c.Set(UsernameKey, username)
		c.Set(IdentityKey, "user:"+username)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewErrorResponse(models.ErrCodeUnauthorized, msg))
}

func validKey(keys [][]byte, cred string) bool {
	for _, k := range keys {
		if subtle.ConstantTimeCompare(k, []byte(cred)) == 1 {
			return true
		}
	}
	return false
}

// extractCredential tries X-API-Key first, then Authorization: Bearer.
func extractCredential(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if h := c.GetHeader("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenParser resolves a bearer token to the account id it was issued for
type TokenParser interface {
	Parse(tokenStr string) (string, error)
}

// NewJWTMiddleware authenticates the request and stores the account id as
// userID. Expiry is enforced by the token itself, the account is not looked
// up here.
func NewJWTMiddleware(p TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":   false,
				"message":   "No authorization token provided",
				"requestID": requestID,
			})
			return
		}

		userID, err := p.Parse(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":   false,
				"message":   "Authorization token invalid",
				"requestID": requestID,
			})

			zap.L().Debug("Rejected authorization token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

// bearerToken reads the Authorization header and falls back to the
// auth_token cookie
func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}

	cookie, err := c.Cookie("auth_token")
	if err != nil {
		return ""
	}

	return cookie
}

package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// sessionCookie is the cookie the identity provider sets in the browser.
const sessionCookie = "__session"

// RequireSession returns gin middleware that validates the request's
// session token and stores the claims in the request context. Requests
// without a valid session are rejected with 401.
func RequireSession(validator TokenValidator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c.Request)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authentication required",
			})
			return
		}

		claims, err := validator.ValidateToken(tokenString)
		if err != nil {
			logger.WithError(err).Warn("Rejected session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authentication required",
			})
			return
		}

		ctx := c.Request.Context()
		c.Request = c.Request.WithContext(withClaims(ctx, claims))
		c.Next()
	}
}

// extractToken reads the session token from the Authorization header or the
// provider's session cookie.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimPrefix(header, "Bearer ")
		}
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

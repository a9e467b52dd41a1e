package middleware

import (
	"net/http"
	"strings"

	"recruitment-backend/internal/delivery/http/response"
	"recruitment-backend/internal/domain"
	"recruitment-backend/pkg/auth"
	"recruitment-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// AuthCookieName is the HttpOnly cookie carrying the session token.
const AuthCookieName = "auth"

// Authenticate resolves the caller from the Bearer header or the auth cookie
// and loads the person fresh, so deleted accounts and role changes apply
// immediately.
func Authenticate(tokens *auth.TokenIssuer, authUC domain.AuthUsecase, secLog *security.SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		// 1. Header first
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			tokenString = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		// 2. Then cookie
		if tokenString == "" {
			if cookie, err := c.Cookie(AuthCookieName); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			response.Error(c, http.StatusUnauthorized, "Not authenticated", nil)
			c.Abort()
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			secLog.Log(c.Request.Context(), security.SecurityEvent{
				Event:     security.EventUnauthorizedAccess,
				IP:        c.ClientIP(),
				UserAgent: c.GetHeader("User-Agent"),
				RequestID: c.GetString(RequestIDKey),
				Details:   map[string]interface{}{"reason": "invalid_token"},
			})
			response.Error(c, http.StatusUnauthorized, "Invalid or expired session", nil)
			c.Abort()
			return
		}

		person, err := authUC.GetCurrentUser(c.Request.Context(), claims.PersonID)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "User not found", nil)
			c.Abort()
			return
		}

		c.Set(string(domain.KeyPersonID), person.ID)
		c.Set(string(domain.KeyUsername), person.Username)
		c.Set(string(domain.KeyRole), person.Role)

		c.Next()
	}
}

// RequireRoles rejects authenticated callers whose role is not listed.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := CurrentRole(c)
		if ok {
			for _, r := range roles {
				if r == role {
					c.Next()
					return
				}
			}
		}
		response.Error(c, http.StatusForbidden, "Insufficient permissions", nil)
		c.Abort()
	}
}

// CurrentPersonID returns the authenticated person's id.
func CurrentPersonID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(string(domain.KeyPersonID))
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// CurrentRole returns the authenticated person's role.
func CurrentRole(c *gin.Context) (domain.Role, bool) {
	v, ok := c.Get(string(domain.KeyRole))
	if !ok {
		return 0, false
	}
	role, ok := v.(domain.Role)
	return role, ok
}

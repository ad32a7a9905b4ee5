// Package middleware holds the gin middleware for the HTTP boundary: JWT
// identity extraction and per-IP rate limiting. Per §1 Non-goals, the CORE
// treats caller identity as pre-validated — this package only carries the
// teacher's JWT middleware shape so a real identity provider has somewhere
// to plug in; it never issues or manages accounts.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey constants for gin.Context values set by JWTMiddleware.
const CtxUserID = "userID"

// JWTMiddleware validates the Bearer token in the Authorization header
// against secret and stores the caller's userID (parsed from the "sub"
// claim) in the gin context. It does not issue tokens or manage sessions —
// that is an external identity provider's responsibility.
func JWTMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "missing bearer token",
				"code":    "ERR_UNAUTHORIZED",
			})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid or expired token",
				"code":    "ERR_TOKEN_INVALID",
			})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid token claims",
				"code":    "ERR_TOKEN_INVALID",
			})
			return
		}
		sub, _ := claims.GetSubject()
		userID, err := uuid.Parse(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid token subject",
				"code":    "ERR_TOKEN_INVALID",
			})
			return
		}

		c.Set(CtxUserID, userID)
		c.Next()
	}
}

// GetUserID retrieves the authenticated user's UUID from the gin context.
// Returns uuid.Nil if JWTMiddleware was not applied or the value is missing.
func GetUserID(c *gin.Context) uuid.UUID {
	v, exists := c.Get(CtxUserID)
	if !exists {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}

package middleware

import (
	"net/http"
	"strings"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/service"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWT
const (
	CtxWallet = "wallet"
	CtxRole   = "role"
)

// JWT requires a valid Bearer session token and stores its wallet and role
// on the gin context.
func JWT(tokens *service.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token", "code": "unauthorized"})
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
			return
		}

		c.Set(CtxWallet, claims.Wallet)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin must run after JWT
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(CtxRole)
		if r, ok := role.(domain.Role); !ok || r != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only", "code": "forbidden"})
			return
		}
		c.Next()
	}
}

// Wallet returns the authenticated wallet, or "" outside JWT routes
func Wallet(c *gin.Context) string {
	return c.GetString(CtxWallet)
}

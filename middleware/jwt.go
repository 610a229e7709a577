package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"splitpay-backend/auth"
	"splitpay-backend/models"
)

// Context keys set by JWTAuthMiddleware.
const (
	WalletKey      = "walletAddress"
	DisplayNameKey = "displayName"
	UserIDKey      = "userID"
)

// JWTAuthMiddleware validates the bearer credential and stores the caller's
// wallet identity in the request context.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.ParseJWT(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(WalletKey, models.NormalizeAddress(claims.WalletAddress))
		c.Set(DisplayNameKey, claims.DisplayName)
		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// CallerWallet returns the authenticated wallet address from the context.
func CallerWallet(c *gin.Context) string {
	return c.GetString(WalletKey)
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	utils "promptmaker-backend/shared/utils/auth"
)

// AuthMiddleware extracts user information from JWT token and sets it in context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ExtractTokenFromHeader(c.Request)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required. Expected Bearer {token}"})
			return
		}

		claims, err := utils.ValidateJWT(tokenString)
		if err != nil || claims.TokenType != utils.AccessToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
			return
		}

		c.Set("userID", userID)
		c.Set("userEmail", claims.Email)

		c.Next()
	}
}

// OptionalAuthMiddleware sets the user like AuthMiddleware when a valid access
// token is present and lets anonymous requests through otherwise
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := ExtractTokenFromHeader(c.Request); tokenString != "" {
			claims, err := utils.ValidateJWT(tokenString)
			if err == nil && claims.TokenType == utils.AccessToken {
				if userID, err := uuid.Parse(claims.UserID); err == nil {
					c.Set("userID", userID)
					c.Set("userEmail", claims.Email)
				}
			}
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user's ID set by AuthMiddleware
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// ExtractTokenFromHeader extracts the token from the Authorization header
func ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return ""
	}

	return tokenParts[1]
}

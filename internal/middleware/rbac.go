package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
	appErrors "github.com/abhiyeduru/mentlearn-api/pkg/errors"
	"github.com/abhiyeduru/mentlearn-api/pkg/response"
)

// RequireRoles only lets callers holding one of roles through.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff admits back-office roles.
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(models.StaffRoles...)
}

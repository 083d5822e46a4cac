package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-records-api/internal/models"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
	"github.com/noah-isme/brgy-records-api/pkg/response"
)

// RequireRoles rejects callers whose role is not listed. Services repeat the
// check, so this only saves a round trip for obviously forbidden requests.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// Role groups used by the router.
var (
	AdminRoles  = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}
	WriterRoles = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleStaff}
)

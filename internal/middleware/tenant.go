package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hcm-campaign-api/internal/models"
	appErrors "github.com/noah-isme/hcm-campaign-api/pkg/errors"
	"github.com/noah-isme/hcm-campaign-api/pkg/response"
)

// ContextTenantKey is the gin context key storing the caller's tenant id.
const ContextTenantKey = "currentTenant"

// Tenant extracts the tenant from the validated claims and refuses requests
// without one. Every query below this gate is tenant-scoped; the gate is the
// only place the tenant id enters a request.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)
		if claims.TenantID == "" {
			response.Error(c, appErrors.ErrTenantMissing)
			c.Abort()
			return
		}
		c.Set(ContextTenantKey, claims.TenantID)
		c.Next()
	}
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hcm-campaign-api/internal/middleware"
	"github.com/noah-isme/hcm-campaign-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func tenantFromContext(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextTenantKey)
	if !exists {
		return ""
	}
	tenant, _ := value.(string)
	return tenant
}

func actorFromContext(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func familyFromPath(c *gin.Context) models.CampaignFamily {
	switch c.Param("family") {
	case "assessments", "assessment":
		return models.FamilyAssessment
	case "engagements", "engagement":
		return models.FamilyEngagement
	default:
		return ""
	}
}

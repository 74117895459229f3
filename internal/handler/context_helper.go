package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/plm-registrar/enrollment-api/internal/middleware"
	"github.com/plm-registrar/enrollment-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextStudentKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

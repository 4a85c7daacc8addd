package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/quillhub/moderation-api/internal/middleware"
	"github.com/quillhub/moderation-api/internal/models"
	"github.com/quillhub/moderation-api/internal/service"
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

func actorFromClaims(claims *models.JWTClaims) service.Actor {
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{ID: claims.UserID, Role: claims.Role}
}

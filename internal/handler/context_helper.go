package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abhiyeduru/mentlearn-api/internal/middleware"
	"github.com/abhiyeduru/mentlearn-api/internal/models"
	appErrors "github.com/abhiyeduru/mentlearn-api/pkg/errors"
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

// actorFromContext returns the verified caller; an empty Actor when anonymous.
func actorFromContext(c *gin.Context) models.Actor {
	return claimsFromContext(c).Actor()
}

func parseQueryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

func parseQueryBool(c *gin.Context, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be true or false")
	}
	return &val, nil
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}

package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/http/middleware"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
)

func currentActor(c *gin.Context) (entity.Actor, bool) {
	return middleware.CurrentActor(c)
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// parsePoint читает lat/lng из query. Без обоих параметров возвращает nil.
func parsePoint(c *gin.Context) (*valueobject.Point, error) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" && lngStr == "" {
		return nil, nil
	}

	lat, errLat := strconv.ParseFloat(latStr, 64)
	lng, errLng := strconv.ParseFloat(lngStr, 64)
	if errLat != nil || errLng != nil {
		return nil, apperror.Validation("lat и lng должны быть числами")
	}

	p, err := valueobject.NewPoint(lat, lng)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

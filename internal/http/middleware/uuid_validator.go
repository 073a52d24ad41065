package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметр маршрута: валидный UUID.
// Использование: missions.PUT("/:id/accept", UUIDValidator("id"), h.Accept)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := uuid.Parse(c.Param(paramName)); err != nil {
			response.Abort(c, http.StatusBadRequest, apperror.ErrCodeValidation,
				"параметр "+paramName+" должен быть валидным UUID")
			return
		}
		c.Next()
	}
}

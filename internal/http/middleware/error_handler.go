package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/logger"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
)

// ErrorHandler отдаёт последнюю ошибку из c.Errors в формате API.
// В production текст внутренних ошибок скрывается.
func ErrorHandler(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		fields := logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}

		status := http.StatusInternalServerError
		if appErr, ok := apperror.As(err); ok {
			status = appErr.HTTPStatus
		}
		if status >= http.StatusInternalServerError {
			logger.Log.WithFields(fields).WithError(err).Error("ошибка обработки запроса")
		} else {
			logger.Log.WithFields(fields).WithError(err).Debug("запрос отклонён")
		}

		response.Error(c, err, !production)
	}
}

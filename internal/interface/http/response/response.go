package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
)

const internalMessage = "внутренняя ошибка сервера"

// Failure: тело ответа с ошибкой.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// OK отдаёт 200 с полями payload рядом с success=true.
func OK(c *gin.Context, payload gin.H) {
	write(c, http.StatusOK, payload)
}

func Created(c *gin.Context, payload gin.H) {
	write(c, http.StatusCreated, payload)
}

func write(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// Error отдаёт ошибку по таксономии apperror. Для неизвестных ошибок текст
// раскрывается только при expose=true.
func Error(c *gin.Context, err error, expose bool) {
	if appErr, ok := apperror.As(err); ok {
		message := appErr.Message
		if appErr.HTTPStatus >= http.StatusInternalServerError && !expose {
			message = internalMessage
		}
		c.JSON(appErr.HTTPStatus, Failure{Error: message, Code: string(appErr.Code)})
		return
	}

	message := internalMessage
	if expose {
		message = err.Error()
	}
	c.JSON(http.StatusInternalServerError, Failure{Error: message, Code: string(apperror.ErrCodeInternal)})
}

// Abort прерывает цепочку middleware с ошибкой.
func Abort(c *gin.Context, status int, code apperror.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, Failure{Error: message, Code: string(code)})
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Failure{Error: message, Code: string(apperror.ErrCodeValidation)})
}

func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Failure{Error: message, Code: string(apperror.ErrCodeUnauthorized)})
}

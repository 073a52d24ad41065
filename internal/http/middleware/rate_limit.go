package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/logger"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
)

const errCodeRateLimited apperror.ErrorCode = "RATE_LIMITED"

// RejectCounter учитывает отклонённые запросы.
type RejectCounter interface {
	RateLimited()
}

// RateLimitMiddleware ограничивает число запросов с одного IP. По умолчанию 10 в минуту.
func RateLimitMiddleware(limit int64, period time.Duration, counter RejectCounter) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		lc, err := instance.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Log.WithError(err).Error("rate limiter недоступен")
			response.Abort(c, http.StatusInternalServerError, apperror.ErrCodeInternal, "внутренняя ошибка сервера")
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))

		if lc.Reached {
			if counter != nil {
				counter.RateLimited()
			}
			response.Abort(c, http.StatusTooManyRequests, errCodeRateLimited, "слишком много запросов, попробуйте позже")
			return
		}
		c.Next()
	}
}

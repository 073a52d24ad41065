package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestObserver получает результат каждого запроса.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

// Metrics замеряет длительность запросов по шаблону маршрута.
func Metrics(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		observer.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(started))
	}
}

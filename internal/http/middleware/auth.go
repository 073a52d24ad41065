package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
	"github.com/ecorelais/delivery-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextEmailKey  = "email"
	ContextRoleKey   = "role"
)

// AccessParser проверяет access токен.
type AccessParser interface {
	ParseAccess(token string) (*service.AccessClaims, error)
}

// AuthMiddleware проверяет Bearer токен и кладёт в контекст id, email и роль.
func AuthMiddleware(tokens AccessParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			response.Abort(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, "требуется авторизация")
			return
		}

		claims, err := tokens.ParseAccess(strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
		if err != nil || claims.UserID == uuid.Nil {
			response.Abort(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, "токен невалиден")
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextEmailKey, claims.Email)
		c.Set(ContextRoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole пропускает только пользователей с одной из ролей.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRoleKey)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, apperror.ErrCodeForbidden, "недостаточно прав")
	}
}

// CurrentActor возвращает пользователя, установленного AuthMiddleware.
func CurrentActor(c *gin.Context) (entity.Actor, bool) {
	raw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return entity.Actor{}, false
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		return entity.Actor{}, false
	}
	return entity.Actor{ID: userID, Role: valueobject.Role(c.GetString(ContextRoleKey))}, true
}

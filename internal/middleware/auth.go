package middleware

import (
	"net/http"
	"strings"

	"inventory-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ActorKey clave del contexto gin con el usuario autenticado
const ActorKey = "actor"

// AuthMiddleware exige un JWT válido en Authorization: Bearer.
// Los clientes WebSocket del navegador no pueden enviar headers, por eso se acepta ?token=.
func AuthMiddleware(authService services.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			abortUnauthorized(c, "Token requerido")
			return
		}

		claims, err := authService.ParseToken(token)
		if err != nil {
			logger.Debug("Token rechazado", zap.String("path", c.Request.URL.Path), zap.Error(err))
			abortUnauthorized(c, "Token inválido o vencido")
			return
		}

		c.Set(ActorKey, claims.Username)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": "❌ " + message,
		"error":   services.ErrInvalidToken.Error(),
	})
}

package handlers

import (
	"net/http"

	"inventory-service/internal/middleware"
	"inventory-service/internal/models"
	"inventory-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler login y cambio de contraseña
type AuthHandler struct {
	authService services.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login emite un token de sesión
func (h *AuthHandler) Login(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "login"))

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, logger, "Credenciales inválidas", err)
		return
	}

	respondOK(c, http.StatusOK, "Login exitoso", resp)
}

// ChangePassword cambia la contraseña del usuario autenticado
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "change_password"))

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err)
		return
	}

	username := c.GetString(middleware.ActorKey)
	if err := h.authService.ChangePassword(c.Request.Context(), username, &req); err != nil {
		respondError(c, logger, "No se pudo cambiar la contraseña", err)
		return
	}

	respondOK(c, http.StatusOK, "Contraseña actualizada", gin.H{"username": username})
}

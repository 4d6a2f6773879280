package handlers

import (
	"errors"
	"net/http"

	"inventory-service/internal/ledger"
	"inventory-service/internal/services"
	"inventory-service/internal/supabase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor traduce errores de dominio a códigos HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, supabase.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError escribe el sobre de error y loguea según la gravedad
func respondError(c *gin.Context, logger *zap.Logger, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(message, zap.Error(err))
	} else {
		logger.Warn(message, zap.Error(err), zap.Int("status", status))
	}

	c.JSON(status, gin.H{
		"success": false,
		"message": "❌ " + message,
		"error":   err.Error(),
	})
}

// respondBindError el body o los parámetros no tienen el formato esperado
func respondBindError(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("Error binding request", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "❌ Error en el formato de datos",
		"error":   err.Error(),
	})
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"message": "✅ " + message,
		"data":    data,
	})
}

package handlers

import (
	"net/http"

	"inventory-service/internal/supabase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SyncHandler sincronización con Supabase
type SyncHandler struct {
	client *supabase.Client
	logger *zap.Logger
}

func NewSyncHandler(client *supabase.Client, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		client: client,
		logger: logger,
	}
}

// GetStatus verifica la conexión con Supabase
func (h *SyncHandler) GetStatus(c *gin.Context) {
	status := h.client.Status(c.Request.Context())
	respondOK(c, http.StatusOK, "Estado de sincronización", status)
}

// Upload sube el ledger local reemplazando las tablas remotas
func (h *SyncHandler) Upload(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "sync_upload"))

	result, err := h.client.Upload(c.Request.Context())
	if err != nil {
		respondError(c, logger, "Error subiendo datos a Supabase", err)
		return
	}

	respondOK(c, http.StatusOK, "Datos subidos a Supabase", result)
}

// Download reemplaza el ledger local con las tablas remotas
func (h *SyncHandler) Download(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "sync_download"))

	result, err := h.client.Download(c.Request.Context())
	if err != nil {
		respondError(c, logger, "Error descargando datos de Supabase", err)
		return
	}

	respondOK(c, http.StatusOK, "Datos descargados de Supabase", result)
}

package handlers

import (
	"net/http"

	"inventory-service/internal/backup"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BackupHandler crea, lista y restaura backups zip
type BackupHandler struct {
	manager *backup.Manager
	logger  *zap.Logger
}

func NewBackupHandler(manager *backup.Manager, logger *zap.Logger) *BackupHandler {
	return &BackupHandler{
		manager: manager,
		logger:  logger,
	}
}

// CreateBackup guarda un snapshot del ledger
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "create_backup"))

	info, err := h.manager.Create(c.Request.Context())
	if err != nil {
		respondError(c, logger, "Error creando backup", err)
		return
	}

	respondOK(c, http.StatusCreated, "Backup creado correctamente", info)
}

// ListBackups el más reciente primero
func (h *BackupHandler) ListBackups(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "list_backups"))

	backups, err := h.manager.List()
	if err != nil {
		respondError(c, logger, "Error listando backups", err)
		return
	}

	respondOK(c, http.StatusOK, "Backups obtenidos correctamente", gin.H{
		"backups":       backups,
		"total_backups": len(backups),
	})
}

// RestoreBackup reemplaza el ledger con el backup :name
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "restore_backup"))
	name := c.Param("name")

	if err := h.manager.Restore(c.Request.Context(), name); err != nil {
		respondError(c, logger, "Error restaurando backup", err)
		return
	}

	logger.Info("Backup restaurado", zap.String("file", name))
	respondOK(c, http.StatusOK, "Backup restaurado correctamente", gin.H{"filename": name})
}

package handlers

import (
	"fmt"
	"net/http"
	"time"

	"inventory-service/internal/export"
	"inventory-service/internal/models"
	"inventory-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler descarga de planillas xlsx
type ExportHandler struct {
	ledgerService services.LedgerService
	now           func() time.Time
	logger        *zap.Logger
}

func NewExportHandler(ledgerService services.LedgerService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		ledgerService: ledgerService,
		now:           time.Now,
		logger:        logger,
	}
}

// ExportStock planilla con el stock actual de cada item
func (h *ExportHandler) ExportStock(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "export_stock"))

	levels, err := h.ledgerService.StockLevels(c.Request.Context())
	if err != nil {
		respondError(c, logger, "Error obteniendo stock", err)
		return
	}

	file, err := export.StockWorkbook(levels, h.now())
	if err != nil {
		respondError(c, logger, "Error generando planilla", err)
		return
	}

	h.send(c, logger, file)
}

// ExportTransactions planilla con todas las transacciones
func (h *ExportHandler) ExportTransactions(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "export_transactions"))

	txs, err := h.ledgerService.SearchTransactions(c.Request.Context(), &models.TransactionQuery{})
	if err != nil {
		respondError(c, logger, "Error obteniendo transacciones", err)
		return
	}

	file, err := export.TransactionsWorkbook(txs, h.now())
	if err != nil {
		respondError(c, logger, "Error generando planilla", err)
		return
	}

	h.send(c, logger, file)
}

func (h *ExportHandler) send(c *gin.Context, logger *zap.Logger, file *export.File) {
	logger.Info("Planilla generada",
		zap.String("file", file.Filename),
		zap.Int("bytes", len(file.Content)))

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, xlsxContentType, file.Content)
}

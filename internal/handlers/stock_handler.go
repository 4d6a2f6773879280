package handlers

import (
	"net/http"
	"strconv"

	"inventory-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StockHandler maneja las consultas de stock derivado y los reportes
type StockHandler struct {
	ledgerService services.LedgerService
	logger        *zap.Logger
}

// NewStockHandler crea una nueva instancia del handler
func NewStockHandler(ledgerService services.LedgerService, logger *zap.Logger) *StockHandler {
	return &StockHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// GetStockLevels stock actual de todos los items
func (h *StockHandler) GetStockLevels(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_stock_levels"))

	levels, err := h.ledgerService.StockLevels(c.Request.Context())
	if err != nil {
		respondError(c, logger, "Error obteniendo stock", err)
		return
	}

	logger.Info("Stock obtenido exitosamente", zap.Int("total_items", len(levels)))
	respondOK(c, http.StatusOK, "Stock obtenido correctamente", gin.H{
		"items":       levels,
		"total_items": len(levels),
	})
}

// GetStockByItem stock actual de un item
func (h *StockHandler) GetStockByItem(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_stock_by_item"))
	item := c.Param("item")

	stock, err := h.ledgerService.CurrentStock(c.Request.Context(), item)
	if err != nil {
		respondError(c, logger, "Error obteniendo stock del item", err)
		return
	}

	respondOK(c, http.StatusOK, "Stock obtenido correctamente", gin.H{
		"item":          item,
		"current_stock": stock,
	})
}

// GetAvailability disponibilidad por vencimiento y lote
func (h *StockHandler) GetAvailability(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_availability"))
	item := c.Param("item")

	lots, err := h.ledgerService.AvailabilityByExpiry(c.Request.Context(), item)
	if err != nil {
		respondError(c, logger, "Error obteniendo disponibilidad", err)
		return
	}

	respondOK(c, http.StatusOK, "Disponibilidad obtenida correctamente", gin.H{
		"item": item,
		"lots": lots,
	})
}

// GetLowStock items con stock por debajo de su mínimo
func (h *StockHandler) GetLowStock(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_low_stock"))

	entries, err := h.ledgerService.LowStockReport(c.Request.Context())
	if err != nil {
		respondError(c, logger, "Error obteniendo stock bajo", err)
		return
	}

	logger.Info("Reporte de stock bajo generado", zap.Int("total_items", len(entries)))
	respondOK(c, http.StatusOK, "Reporte de stock bajo generado", gin.H{
		"items":       entries,
		"total_items": len(entries),
	})
}

// GetExpired lotes vencidos con stock
func (h *StockHandler) GetExpired(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_expired"))

	entries, err := h.ledgerService.ExpiredReport(c.Request.Context())
	if err != nil {
		respondError(c, logger, "Error obteniendo vencidos", err)
		return
	}

	respondOK(c, http.StatusOK, "Reporte de vencidos generado", gin.H{
		"items":       entries,
		"total_items": len(entries),
	})
}

// GetNearExpiry lotes que vencen dentro de ?days= días
func (h *StockHandler) GetNearExpiry(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_near_expiry"))

	days := h.ledgerService.NearExpiryDays()
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "❌ Parámetro days inválido",
				"error":   "days debe ser un número entero",
			})
			return
		}
		days = parsed
	}

	entries, err := h.ledgerService.NearExpiryReport(c.Request.Context(), days)
	if err != nil {
		respondError(c, logger, "Error obteniendo próximos a vencer", err)
		return
	}

	respondOK(c, http.StatusOK, "Reporte de próximos a vencer generado", gin.H{
		"days":        days,
		"items":       entries,
		"total_items": len(entries),
	})
}

// GetMonthlySummary entradas y salidas por mes e item
func (h *StockHandler) GetMonthlySummary(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_monthly_summary"))

	summary, err := h.ledgerService.MonthlyTransactionSummary(c.Request.Context())
	if err != nil {
		respondError(c, logger, "Error generando resumen mensual", err)
		return
	}

	respondOK(c, http.StatusOK, "Resumen mensual generado", gin.H{
		"months": summary,
	})
}

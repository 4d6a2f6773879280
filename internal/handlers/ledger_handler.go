package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"inventory-service/internal/middleware"
	"inventory-service/internal/models"
	"inventory-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LedgerHandler maneja items, entradas, salidas y búsqueda de transacciones
type LedgerHandler struct {
	ledgerService services.LedgerService
	logger        *zap.Logger
}

// NewLedgerHandler crea una nueva instancia del handler
func NewLedgerHandler(ledgerService services.LedgerService, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// ListItems lista el catálogo, opcionalmente filtrado por ?category=
func (h *LedgerHandler) ListItems(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "list_items"))

	var category *string
	if v, ok := c.GetQuery("category"); ok && strings.TrimSpace(v) != "" {
		category = &v
	}

	items, err := h.ledgerService.ListItems(c.Request.Context(), category)
	if err != nil {
		respondError(c, logger, "Error obteniendo items", err)
		return
	}

	respondOK(c, http.StatusOK, "Items obtenidos correctamente", gin.H{
		"items":       items,
		"total_items": len(items),
	})
}

// CreateItem agrega un item al catálogo
func (h *LedgerHandler) CreateItem(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "create_item"))

	var req models.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err)
		return
	}

	item, err := h.ledgerService.AddItem(c.Request.Context(), &req)
	if err != nil {
		respondError(c, logger, "Error creando item", err)
		return
	}

	logger.Info("Item creado", zap.Int64("item_id", item.ID), zap.String("name", item.Name))
	respondOK(c, http.StatusCreated, "Item creado correctamente", item)
}

// UpdateItem edita nombre, categoría o stock mínimo
func (h *LedgerHandler) UpdateItem(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "update_item"))

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ ID de item inválido",
			"error":   "El ID debe ser un número válido",
		})
		return
	}

	var req models.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err)
		return
	}

	item, err := h.ledgerService.UpdateItem(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, logger, "Error actualizando item", err)
		return
	}

	respondOK(c, http.StatusOK, "Item actualizado correctamente", item)
}

// RecordReceipt registra una entrada (IN)
func (h *LedgerHandler) RecordReceipt(c *gin.Context) {
	start := time.Now()
	logger := h.logger.With(zap.String("handler", "record_receipt"))

	var req models.ReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err)
		return
	}
	req.Actor = c.GetString(middleware.ActorKey)

	logger.Debug("🔍 [DEBUG] Entrada recibida",
		zap.String("item", req.Item),
		zap.Int("quantity", req.Quantity),
		zap.String("actor", req.Actor))

	resp, err := h.ledgerService.RecordReceipt(c.Request.Context(), &req)
	if err != nil {
		respondError(c, logger, "Error registrando entrada", err)
		return
	}

	logger.Info("✅ Entrada registrada",
		zap.Int64("transaction_id", resp.TransactionID),
		zap.Int("current_stock", resp.CurrentStock),
		zap.Duration("latency", time.Since(start)))
	respondOK(c, http.StatusCreated, "Entrada registrada correctamente", resp)
}

// RecordIssue registra una salida (OUT)
func (h *LedgerHandler) RecordIssue(c *gin.Context) {
	start := time.Now()
	logger := h.logger.With(zap.String("handler", "record_issue"))

	var req models.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err)
		return
	}
	req.Actor = c.GetString(middleware.ActorKey)

	resp, err := h.ledgerService.RecordIssue(c.Request.Context(), &req)
	if err != nil {
		respondError(c, logger, "Error registrando salida", err)
		return
	}

	logger.Info("✅ Salida registrada",
		zap.Int64("transaction_id", resp.TransactionID),
		zap.Int("current_stock", resp.CurrentStock),
		zap.Duration("latency", time.Since(start)))
	respondOK(c, http.StatusCreated, "Salida registrada correctamente", resp)
}

// SearchTransactions busca por ?from&to&direction&item
func (h *LedgerHandler) SearchTransactions(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "search_transactions"))

	var query models.TransactionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, logger, err)
		return
	}

	txs, err := h.ledgerService.SearchTransactions(c.Request.Context(), &query)
	if err != nil {
		respondError(c, logger, "Error buscando transacciones", err)
		return
	}

	respondOK(c, http.StatusOK, "Transacciones obtenidas correctamente", gin.H{
		"transactions":       txs,
		"total_transactions": len(txs),
	})
}

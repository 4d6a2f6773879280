package handlers

import (
	"net/http"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// rutas que no se cuentan en las métricas de requests
var unmonitoredRoutes = map[string]bool{
	"/":                                  true,
	"/health":                            true,
	"/health/monitoring":                 true,
	"/api/v1/monitoring/metrics":         true,
	"/api/v1/monitoring/metrics/summary": true,
	"/api/v1/ledger/stream":              true,
}

type MonitoringHandler struct {
	monitoringService services.MonitoringService
	logger            *zap.Logger
}

func NewMonitoringHandler(monitoringService services.MonitoringService, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		monitoringService: monitoringService,
		logger:            logger,
	}
}

// ledgerHealth estado del servicio visto desde el monitoring
type ledgerHealth struct {
	Status    string               `json:"status"`
	Timestamp string               `json:"timestamp"`
	Services  map[string]string    `json:"services"`
	Ledger    models.LedgerMetrics `json:"ledger"`
}

// metricsSummary vista reducida de MonitoringResponse
type metricsSummary struct {
	Requests struct {
		Total        int `json:"total"`
		Endpoints    int `json:"endpoints"`
		Errors       int `json:"errors"`
		SlowRequests int `json:"slow_requests"`
	} `json:"requests"`
	AvgResponseTime string                 `json:"avg_response_time"`
	MaxResponseTime string                 `json:"max_response_time"`
	CacheHitRate    string                 `json:"cache_hit_rate"`
	Store           models.DatabaseMetrics `json:"store"`
	Redis           string                 `json:"redis"`
	Goroutines      int                    `json:"goroutines"`
	Uptime          string                 `json:"uptime"`
	Ledger          models.LedgerMetrics   `json:"ledger"`
	Timestamp       string                 `json:"timestamp"`
}

// GetMetrics métricas completas
func (h *MonitoringHandler) GetMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_metrics"))

	metrics := h.monitoringService.GetMetrics(c.Request.Context())

	logger.Info("Métricas obtenidas exitosamente",
		zap.Int("total_requests", metrics.Requests.TotalRequests),
		zap.Int64("receipts", metrics.Ledger.Receipts),
		zap.Int64("issues", metrics.Ledger.Issues))

	c.JSON(http.StatusOK, metrics)
}

// GetMetricsSummary resumen para el dashboard
func (h *MonitoringHandler) GetMetricsSummary(c *gin.Context) {
	metrics := h.monitoringService.GetMetrics(c.Request.Context())

	var summary metricsSummary
	summary.Requests.Total = metrics.Requests.TotalRequests
	summary.Requests.Endpoints = metrics.Requests.Total
	summary.Requests.Errors = metrics.Requests.ErrorsCount
	summary.Requests.SlowRequests = metrics.Requests.SlowRequestsCount
	summary.AvgResponseTime = metrics.Performance.AvgResponseTimeMs
	summary.MaxResponseTime = metrics.Performance.MaxResponseTimeMs
	summary.CacheHitRate = metrics.Cache.HitRatePercentage
	summary.Store = metrics.Database
	summary.Redis = metrics.Redis.Status
	summary.Goroutines = metrics.System.Goroutines
	summary.Uptime = metrics.System.UptimeHours
	summary.Ledger = metrics.Ledger
	summary.Timestamp = metrics.Timestamp

	c.JSON(http.StatusOK, summary)
}

// HealthCheck degradado si el store o Redis (cuando está habilitado) no responden
func (h *MonitoringHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	store := h.monitoringService.GetDatabaseStats(ctx)
	redis := h.monitoringService.GetRedisStats(ctx)
	itemCache := h.monitoringService.GetCacheStats()

	health := ledgerHealth{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services: map[string]string{
			"store": store.Driver + ":" + store.Status,
			"redis": redis.Status,
			"cache": itemCache.Status,
		},
		Ledger: h.monitoringService.GetLedgerStats(ctx),
	}
	if store.Status != "online" || (redis.Status != "disabled" && !redis.Connected) {
		health.Status = "degraded"
		h.logger.Warn("Servicio degradado",
			zap.String("store", store.Status),
			zap.String("redis", redis.Status))
	}

	c.JSON(http.StatusOK, health)
}

// RecordRequestMiddleware registra duración y status agrupando por ruta,
// así /stock/:item cuenta como un solo endpoint
func (h *MonitoringHandler) RecordRequestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if unmonitoredRoutes[route] {
			return
		}

		data := models.RequestData{
			Endpoint:   route,
			Method:     c.Request.Method,
			Duration:   time.Since(start),
			StatusCode: c.Writer.Status(),
			Timestamp:  time.Now(),
		}
		if len(c.Errors) > 0 {
			data.Error = c.Errors.Last()
		}
		h.monitoringService.RecordRequest(data)
	}
}

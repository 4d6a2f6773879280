package routes

import (
	"inventory-service/internal/handlers"
	"inventory-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers agrupa los handlers que expone la API
type Handlers struct {
	Auth       *handlers.AuthHandler
	Ledger     *handlers.LedgerHandler
	Stock      *handlers.StockHandler
	Export     *handlers.ExportHandler
	Backup     *handlers.BackupHandler
	Sync       *handlers.SyncHandler
	Stream     *handlers.StreamHandler
	Monitoring *handlers.MonitoringHandler
	Health     *middleware.HealthChecker
}

// SetupRoutes configura todas las rutas de la aplicación.
// Todo /api/v1 salvo el login requiere JWT.
func SetupRoutes(router *gin.Engine, h Handlers, auth gin.HandlerFunc) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", h.Auth.Login)

		protected := v1.Group("", auth)

		protected.POST("/auth/password", h.Auth.ChangePassword)

		// Catálogo de items
		items := protected.Group("/items")
		{
			items.GET("", h.Ledger.ListItems)
			items.POST("", h.Ledger.CreateItem)
			items.PUT("/:id", h.Ledger.UpdateItem)
		}

		// Ledger append-only
		ledger := protected.Group("/ledger")
		{
			ledger.POST("/receipts", h.Ledger.RecordReceipt)
			ledger.POST("/issues", h.Ledger.RecordIssue)
			ledger.GET("/transactions", h.Ledger.SearchTransactions)
			ledger.GET("/stream", h.Stream.LedgerStream)
		}

		// Stock derivado
		stock := protected.Group("/stock")
		{
			stock.GET("", h.Stock.GetStockLevels)
			stock.GET("/:item", h.Stock.GetStockByItem)
			stock.GET("/:item/availability", h.Stock.GetAvailability)
		}

		reports := protected.Group("/reports")
		{
			reports.GET("/low-stock", h.Stock.GetLowStock)
			reports.GET("/expired", h.Stock.GetExpired)
			reports.GET("/near-expiry", h.Stock.GetNearExpiry)
			reports.GET("/monthly", h.Stock.GetMonthlySummary)
		}

		exports := protected.Group("/export")
		{
			exports.GET("/stock.xlsx", h.Export.ExportStock)
			exports.GET("/transactions.xlsx", h.Export.ExportTransactions)
		}

		backups := protected.Group("/backups")
		{
			backups.POST("", h.Backup.CreateBackup)
			backups.GET("", h.Backup.ListBackups)
			backups.POST("/:name/restore", h.Backup.RestoreBackup)
		}

		sync := protected.Group("/sync")
		{
			sync.GET("/status", h.Sync.GetStatus)
			sync.POST("/upload", h.Sync.Upload)
			sync.POST("/download", h.Sync.Download)
		}

		monitoring := protected.Group("/monitoring")
		{
			monitoring.GET("/metrics", h.Monitoring.GetMetrics)
			monitoring.GET("/metrics/summary", h.Monitoring.GetMetricsSummary)
		}
	}

	router.GET("/health", h.Health.HealthCheck)
	router.GET("/health/monitoring", h.Monitoring.HealthCheck)

	// API info en raíz
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Inventory Service API",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": gin.H{
				"health": "/health",
				"api":    "/api/v1",
				"auth":   "POST /api/v1/auth/login",
				"ledger": gin.H{
					"receipts":     "POST /api/v1/ledger/receipts",
					"issues":       "POST /api/v1/ledger/issues",
					"transactions": "GET /api/v1/ledger/transactions",
					"stream":       "GET /api/v1/ledger/stream",
				},
				"stock":   "GET /api/v1/stock",
				"reports": "GET /api/v1/reports/{low-stock,expired,near-expiry,monthly}",
			},
		})
	})
}

package middleware

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// BannerInfo datos del entorno que se muestran al iniciar
type BannerInfo struct {
	Port        string
	StoreDriver string
	Redis       bool
	Sync        bool
	AlertCron   string
}

// ServerInfo muestra el banner del servidor al iniciar
func ServerInfo(info BannerInfo, logger *zap.Logger) {
	hostname, _ := os.Hostname()
	goVersion := runtime.Version()
	startTime := time.Now().Format("2006-01-02 15:04:05")
	base := "http://localhost:" + info.Port

	fmt.Println("")
	fmt.Println("🧪 " + boldColor + "Inventory Service API" + resetColor)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("📅 Started at: " + startTime)
	fmt.Println("🌐 Server URL: " + cyanColor + base + resetColor)
	fmt.Println("💻 Hostname: " + hostname)
	fmt.Println("🔧 Go Version: " + goVersion)
	fmt.Println("")
	fmt.Println("📊 " + boldColor + "Endpoints:" + resetColor)
	fmt.Println("   POST " + greenColor + "/api/v1/auth/login" + resetColor + "        - Login")
	fmt.Println("   POST " + greenColor + "/api/v1/ledger/receipts" + resetColor + "   - Entrada de stock")
	fmt.Println("   POST " + greenColor + "/api/v1/ledger/issues" + resetColor + "     - Salida de stock")
	fmt.Println("   GET  " + greenColor + "/api/v1/stock" + resetColor + "             - Stock actual")
	fmt.Println("   GET  " + greenColor + "/api/v1/ledger/stream" + resetColor + "     - Eventos (WebSocket)")
	fmt.Println("   GET  " + greenColor + "/health" + resetColor + "                   - Health Check")
	fmt.Println("")
	fmt.Println("⚙️  " + boldColor + "Environment:" + resetColor)
	fmt.Println("   🗄️  Store: " + info.StoreDriver)
	fmt.Println("   🗃️  Redis: " + enabledLabel(info.Redis))
	fmt.Println("   ☁️  Supabase sync: " + enabledLabel(info.Sync))
	fmt.Println("   ⏰ Alert cron: " + info.AlertCron)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("")

	logger.Info("Server started successfully",
		zap.String("port", info.Port),
		zap.String("hostname", hostname),
		zap.String("go_version", goVersion),
		zap.String("store", info.StoreDriver),
		zap.Bool("redis", info.Redis),
		zap.Bool("sync", info.Sync),
	)
}

func enabledLabel(enabled bool) string {
	if enabled {
		return greenColor + "enabled" + resetColor
	}
	return yellowColor + "disabled" + resetColor
}

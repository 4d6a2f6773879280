package scheduler

import (
	"context"
	"time"

	"inventory-service/internal/events"
	"inventory-service/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// AlertScanner fuente del escaneo de alertas de stock
type AlertScanner interface {
	ScanAlerts(ctx context.Context) (*models.StockAlert, error)
}

// Scheduler ejecuta el escaneo diario de alertas
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	scanner AlertScanner
	bus     events.Bus
	now     func() time.Time
	logger  *zap.Logger
}

// NewScheduler crea el scheduler. bus puede ser nil.
func NewScheduler(spec string, scanner AlertScanner, bus events.Bus, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	// parser estándar de 5 campos: min, hora, día, mes, día de semana
	return &Scheduler{
		cron:    cron.New(),
		spec:    spec,
		scanner: scanner,
		bus:     bus,
		now:     time.Now,
		logger:  logger,
	}
}

// Start registra el job y arranca el cron
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runAlertScan); err != nil {
		return err
	}
	s.logger.Info("Scheduler iniciado", zap.String("alert_cron", s.spec))
	s.cron.Start()
	return nil
}

// Stop detiene el cron y espera el job en curso
func (s *Scheduler) Stop() {
	s.logger.Info("Deteniendo scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runAlertScan() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.ScanNow(ctx); err != nil {
		s.logger.Error("Error en escaneo de alertas", zap.Error(err))
	}
}

// ScanNow ejecuta el escaneo y publica el resultado si hay algo que reportar
func (s *Scheduler) ScanNow(ctx context.Context) (*models.StockAlert, error) {
	alert, err := s.scanner.ScanAlerts(ctx)
	if err != nil {
		return nil, err
	}

	if alert.Empty() {
		s.logger.Info("Escaneo de alertas sin novedades")
		return alert, nil
	}

	s.logger.Warn("⚠️ Alertas de stock",
		zap.Int("low_stock", len(alert.LowStock)),
		zap.Int("expired", len(alert.Expired)),
		zap.Int("near_expiry", len(alert.NearExpiry)))

	if s.bus != nil {
		event := models.LedgerEvent{Type: models.EventStockAlert, Alert: alert, Timestamp: s.now().UTC()}
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Warn("No se pudo publicar alerta", zap.Error(err))
		}
	}
	return alert, nil
}

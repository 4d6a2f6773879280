package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"inventory-service/internal/cache"
	"inventory-service/internal/events"
	"inventory-service/internal/ledger"
	"inventory-service/internal/models"
	"inventory-service/internal/repository"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// defaultActor usuario que firma las transacciones cuando no hay sesión
const defaultActor = "admin"

// LedgerService define la interfaz del motor de stock
type LedgerService interface {
	// Catálogo de items
	AddItem(ctx context.Context, req *models.CreateItemRequest) (*models.Item, error)
	UpdateItem(ctx context.Context, id int64, req *models.UpdateItemRequest) (*models.Item, error)
	ListItems(ctx context.Context, category *string) ([]*models.Item, error)

	// Mutaciones del ledger
	RecordReceipt(ctx context.Context, req *models.ReceiptRequest) (*models.RecordResponse, error)
	RecordIssue(ctx context.Context, req *models.IssueRequest) (*models.RecordResponse, error)

	// Consultas derivadas
	CurrentStock(ctx context.Context, itemName string) (int, error)
	StockLevels(ctx context.Context) ([]models.StockLevel, error)
	AvailabilityByExpiry(ctx context.Context, itemName string) ([]models.Lot, error)
	LowStockReport(ctx context.Context) ([]models.LowStockEntry, error)
	ExpiredReport(ctx context.Context) ([]models.ExpiryEntry, error)
	NearExpiryReport(ctx context.Context, windowDays int) ([]models.ExpiryEntry, error)
	MonthlyTransactionSummary(ctx context.Context) ([]models.MonthlySummary, error)
	SearchTransactions(ctx context.Context, query *models.TransactionQuery) ([]*models.TransactionWithItem, error)
	ScanAlerts(ctx context.Context) (*models.StockAlert, error)

	// Reemplazo masivo (backup, sync)
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	Restore(ctx context.Context, snapshot *models.Snapshot) error

	Stats() models.LedgerMetrics
	NearExpiryDays() int
}

// LedgerOptions parámetros del servicio
type LedgerOptions struct {
	NearExpiryDays      int
	DefaultMinimumStock int
	Now                 func() time.Time
}

// ledgerService implementa LedgerService
type ledgerService struct {
	repo     repository.LedgerRepository
	cache    *cache.ItemCache
	bus      events.Bus
	opts     LedgerOptions
	validate *validator.Validate
	logger   *zap.Logger

	receipts atomic.Int64
	issues   atomic.Int64
	rejected atomic.Int64
}

// NewLedgerService crea una nueva instancia del servicio. cache y bus pueden ser nil.
func NewLedgerService(repo repository.LedgerRepository, itemCache *cache.ItemCache, bus events.Bus, opts LedgerOptions, logger *zap.Logger) LedgerService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultMinimumStock == 0 {
		opts.DefaultMinimumStock = models.DefaultMinimumStock
	}
	if opts.NearExpiryDays < 0 {
		opts.NearExpiryDays = ledger.DefaultNearExpiryDays
	}
	return &ledgerService{
		repo:     repo,
		cache:    itemCache,
		bus:      bus,
		opts:     opts,
		validate: newValidator(),
		logger:   logger,
	}
}

// AddItem da de alta un item en el catálogo
func (s *ledgerService) AddItem(ctx context.Context, req *models.CreateItemRequest) (*models.Item, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = trimOptional(req.Category)

	logger := s.logger.With(
		zap.String("operation", "add_item"),
		zap.String("item", req.Name),
	)

	if err := s.validate.Struct(req); err != nil {
		logger.Warn("Datos de item inválidos", zap.Error(err))
		return nil, validationError(err)
	}

	minimum := s.opts.DefaultMinimumStock
	if req.MinimumStock != nil {
		minimum = *req.MinimumStock
	}

	item := &models.Item{
		Name:         req.Name,
		Category:     req.Category,
		MinimumStock: minimum,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		logger.Error("Error creando item", zap.Error(err))
		return nil, ledger.WrapStore("add_item", err)
	}

	if s.cache != nil {
		s.cache.SetItem(ctx, item)
	}

	logger.Info("Item creado",
		zap.Int64("item_id", item.ID),
		zap.String("category", item.CategoryName()),
		zap.Int("minimum_stock", item.MinimumStock))
	return item, nil
}

// UpdateItem modifica nombre, categoría o stock mínimo. Solo se aplican los campos presentes.
func (s *ledgerService) UpdateItem(ctx context.Context, id int64, req *models.UpdateItemRequest) (*models.Item, error) {
	logger := s.logger.With(
		zap.String("operation", "update_item"),
		zap.Int64("item_id", id),
	)

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	item, err := s.repo.GetItemByID(ctx, id)
	if err != nil {
		return nil, ledger.WrapStore("update_item", err)
	}
	if item == nil {
		return nil, &ledger.NotFoundError{Resource: "item", Key: fmt.Sprintf("%d", id)}
	}

	previousName := item.Name
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Category != nil {
		item.Category = trimOptional(req.Category)
	}
	if req.MinimumStock != nil {
		item.MinimumStock = *req.MinimumStock
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		logger.Error("Error actualizando item", zap.Error(err))
		return nil, ledger.WrapStore("update_item", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, previousName)
		s.cache.Invalidate(ctx, item.Name)
	}

	logger.Info("Item actualizado",
		zap.String("item", item.Name),
		zap.String("category", item.CategoryName()))
	return item, nil
}

// ListItems lista el catálogo, opcionalmente filtrado por categoría
func (s *ledgerService) ListItems(ctx context.Context, category *string) ([]*models.Item, error) {
	items, err := s.repo.ListItems(ctx, trimOptional(category))
	if err != nil {
		return nil, ledger.WrapStore("list_items", err)
	}
	return items, nil
}

// RecordReceipt registra una entrada de stock (IN)
func (s *ledgerService) RecordReceipt(ctx context.Context, req *models.ReceiptRequest) (*models.RecordResponse, error) {
	req.Item = strings.TrimSpace(req.Item)
	req.Source = strings.TrimSpace(req.Source)
	req.Batch = trimOptional(req.Batch)
	req.Note = trimOptional(req.Note)

	logger := s.logger.With(
		zap.String("operation", "record_receipt"),
		zap.String("item", req.Item),
		zap.Int("quantity", req.Quantity),
	)

	if err := s.validate.Struct(req); err != nil {
		s.rejected.Add(1)
		logger.Warn("Entrada inválida", zap.Error(err))
		return nil, validationError(err)
	}

	date, expiry, err := s.parseDates(req.Date, req.ExpiryDate)
	if err != nil {
		s.rejected.Add(1)
		return nil, err
	}

	item, err := s.requireItem(ctx, req.Item)
	if err != nil {
		s.rejected.Add(1)
		return nil, err
	}

	tr := &models.Transaction{
		ItemID:       item.ID,
		Direction:    models.DirectionIn,
		Quantity:     req.Quantity,
		Date:         date,
		Counterparty: req.Source,
		ExpiryDate:   expiry,
		Batch:        req.Batch,
		Note:         req.Note,
		CreatedBy:    actorOrDefault(req.Actor),
	}

	var stock int
	err = s.repo.WithinItemLock(ctx, item.ID, func(tx repository.LedgerTx) error {
		if err := s.confirmItem(ctx, tx, item); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, tr); err != nil {
			return err
		}
		txs, err := tx.ListTransactions(ctx, &models.TransactionFilter{ItemID: &item.ID})
		if err != nil {
			return err
		}
		stock = ledger.CurrentStock(txs, item.ID)
		return nil
	})
	if err != nil {
		logger.Error("Error registrando entrada", zap.Error(err))
		return nil, ledger.WrapStore("record_receipt", err)
	}

	s.receipts.Add(1)
	logger.Info("Entrada registrada",
		zap.Int64("transaction_id", tr.ID),
		zap.Int("current_stock", stock))

	s.publish(ctx, models.EventReceiptRecorded, tr, item.Name, stock)
	return recordResponse(tr, item.Name, stock), nil
}

// RecordIssue registra una salida de stock (OUT). La verificación de
// disponibilidad y el alta ocurren bajo el mismo lock del item.
func (s *ledgerService) RecordIssue(ctx context.Context, req *models.IssueRequest) (*models.RecordResponse, error) {
	req.Item = strings.TrimSpace(req.Item)
	req.Destination = strings.TrimSpace(req.Destination)
	req.Batch = trimOptional(req.Batch)
	req.Note = trimOptional(req.Note)

	logger := s.logger.With(
		zap.String("operation", "record_issue"),
		zap.String("item", req.Item),
		zap.Int("quantity", req.Quantity),
	)

	if err := s.validate.Struct(req); err != nil {
		s.rejected.Add(1)
		logger.Warn("Salida inválida", zap.Error(err))
		return nil, validationError(err)
	}

	date, expiry, err := s.parseDates(req.Date, req.ExpiryDate)
	if err != nil {
		s.rejected.Add(1)
		return nil, err
	}

	item, err := s.requireItem(ctx, req.Item)
	if err != nil {
		s.rejected.Add(1)
		return nil, err
	}

	tr := &models.Transaction{
		ItemID:       item.ID,
		Direction:    models.DirectionOut,
		Quantity:     req.Quantity,
		Date:         date,
		Counterparty: req.Destination,
		ExpiryDate:   expiry,
		Note:         req.Note,
		CreatedBy:    actorOrDefault(req.Actor),
	}

	var stock int
	err = s.repo.WithinItemLock(ctx, item.ID, func(tx repository.LedgerTx) error {
		if err := s.confirmItem(ctx, tx, item); err != nil {
			return err
		}
		txs, err := tx.ListTransactions(ctx, &models.TransactionFilter{ItemID: &item.ID})
		if err != nil {
			return err
		}

		batch := req.Batch
		if batch == nil {
			resolved, ok := ledger.ResolveBatch(txs, item.ID, expiry)
			if !ok {
				return &ledger.NotFoundError{Resource: "lot", Key: lotDescription(item.Name, expiry, nil)}
			}
			batch = resolved
			logger.Debug("Lote resuelto automáticamente", zap.Stringp("batch", batch))
		}

		if !ledger.HasEntries(txs, item.ID, expiry, batch) {
			return &ledger.NotFoundError{Resource: "lot", Key: lotDescription(item.Name, expiry, batch)}
		}

		available := ledger.Available(txs, item.ID, expiry, batch)
		if req.Quantity > available {
			return &ledger.InsufficientStockError{
				Item:      item.Name,
				Batch:     derefString(batch),
				Expiry:    formatDay(expiry),
				Requested: req.Quantity,
				Available: available,
			}
		}

		tr.Batch = batch
		if err := tx.CreateTransaction(ctx, tr); err != nil {
			return err
		}
		stock = ledger.CurrentStock(append(txs, tr), item.ID)
		return nil
	})
	if err != nil {
		s.rejected.Add(1)
		logger.Warn("Salida rechazada", zap.Error(err))
		return nil, ledger.WrapStore("record_issue", err)
	}

	s.issues.Add(1)
	logger.Info("Salida registrada",
		zap.Int64("transaction_id", tr.ID),
		zap.Stringp("batch", tr.Batch),
		zap.Int("current_stock", stock))

	s.publish(ctx, models.EventIssueRecorded, tr, item.Name, stock)
	return recordResponse(tr, item.Name, stock), nil
}

// CurrentStock stock actual de un item
func (s *ledgerService) CurrentStock(ctx context.Context, itemName string) (int, error) {
	item, txs, err := s.itemLedger(ctx, itemName)
	if err != nil {
		return 0, err
	}
	return ledger.CurrentStock(txs, item.ID), nil
}

// StockLevels stock actual de todos los items
func (s *ledgerService) StockLevels(ctx context.Context) ([]models.StockLevel, error) {
	items, txs, err := s.loadLedger(ctx, "stock_levels")
	if err != nil {
		return nil, err
	}
	return ledger.StockLevels(items, txs), nil
}

// AvailabilityByExpiry lotes vigentes con stock de un item
func (s *ledgerService) AvailabilityByExpiry(ctx context.Context, itemName string) ([]models.Lot, error) {
	item, txs, err := s.itemLedger(ctx, itemName)
	if err != nil {
		return nil, err
	}
	return ledger.AvailabilityByExpiry(txs, item.ID, s.today()), nil
}

// LowStockReport items bajo su stock mínimo
func (s *ledgerService) LowStockReport(ctx context.Context) ([]models.LowStockEntry, error) {
	items, txs, err := s.loadLedger(ctx, "low_stock_report")
	if err != nil {
		return nil, err
	}
	return ledger.LowStock(items, txs), nil
}

// ExpiredReport grupos vencidos con stock
func (s *ledgerService) ExpiredReport(ctx context.Context) ([]models.ExpiryEntry, error) {
	items, txs, err := s.loadLedger(ctx, "expired_report")
	if err != nil {
		return nil, err
	}
	return ledger.Expired(items, txs, s.today()), nil
}

// NearExpiryReport grupos que vencen dentro de windowDays días
func (s *ledgerService) NearExpiryReport(ctx context.Context, windowDays int) ([]models.ExpiryEntry, error) {
	if windowDays < 0 {
		return nil, &ledger.ValidationError{Field: "days", Reason: "must not be negative"}
	}
	items, txs, err := s.loadLedger(ctx, "near_expiry_report")
	if err != nil {
		return nil, err
	}
	return ledger.NearExpiry(items, txs, s.today(), windowDays), nil
}

// MonthlyTransactionSummary resumen mensual por item
func (s *ledgerService) MonthlyTransactionSummary(ctx context.Context) ([]models.MonthlySummary, error) {
	items, txs, err := s.loadLedger(ctx, "monthly_summary")
	if err != nil {
		return nil, err
	}
	return ledger.MonthlySummary(items, txs), nil
}

// SearchTransactions busca transacciones por rango de fechas, dirección e item
func (s *ledgerService) SearchTransactions(ctx context.Context, query *models.TransactionQuery) ([]*models.TransactionWithItem, error) {
	if query == nil {
		query = &models.TransactionQuery{}
	}
	query.Direction = trimOptional(query.Direction)
	query.Item = trimOptional(query.Item)
	query.From = trimOptional(query.From)
	query.To = trimOptional(query.To)

	if err := s.validate.Struct(query); err != nil {
		return nil, validationError(err)
	}

	filter := &models.TransactionFilter{}
	var err error
	if filter.DateFrom, err = ledger.ParseOptionalDay(query.From); err != nil {
		return nil, &ledger.ValidationError{Field: "from", Reason: err.Error()}
	}
	if filter.DateTo, err = ledger.ParseOptionalDay(query.To); err != nil {
		return nil, &ledger.ValidationError{Field: "to", Reason: err.Error()}
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, &ledger.ValidationError{Field: "from", Reason: "must not be after to"}
	}
	if query.Direction != nil {
		direction := models.Direction(*query.Direction)
		filter.Direction = &direction
	}
	if query.Item != nil {
		item, err := s.findItem(ctx, *query.Item)
		if err != nil {
			return nil, ledger.WrapStore("search_transactions", err)
		}
		if item == nil {
			return nil, &ledger.NotFoundError{Resource: "item", Key: *query.Item}
		}
		filter.ItemID = &item.ID
	}

	items, err := s.repo.ListItems(ctx, nil)
	if err != nil {
		return nil, ledger.WrapStore("search_transactions", err)
	}
	txs, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, ledger.WrapStore("search_transactions", err)
	}

	byID := make(map[int64]*models.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	result := make([]*models.TransactionWithItem, 0, len(txs))
	for _, t := range ledger.Search(txs, filter) {
		row := &models.TransactionWithItem{Transaction: *t}
		if item, ok := byID[t.ItemID]; ok {
			row.ItemName = item.Name
			row.Category = item.Category
		}
		result = append(result, row)
	}
	return result, nil
}

// ScanAlerts ejecuta los tres reportes de alerta sobre una misma lectura del ledger
func (s *ledgerService) ScanAlerts(ctx context.Context) (*models.StockAlert, error) {
	items, txs, err := s.loadLedger(ctx, "scan_alerts")
	if err != nil {
		return nil, err
	}
	today := s.today()
	return &models.StockAlert{
		LowStock:   ledger.LowStock(items, txs),
		Expired:    ledger.Expired(items, txs, today),
		NearExpiry: ledger.NearExpiry(items, txs, today, s.opts.NearExpiryDays),
	}, nil
}

// Snapshot copia completa de items y transacciones, ordenadas por id
func (s *ledgerService) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	items, txs, err := s.loadLedger(ctx, "snapshot")
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID < txs[j].ID })
	return &models.Snapshot{Items: items, Transactions: txs}, nil
}

// Restore reemplaza el ledger completo por el snapshot dado
func (s *ledgerService) Restore(ctx context.Context, snapshot *models.Snapshot) error {
	logger := s.logger.With(zap.String("operation", "restore"))

	if err := validateSnapshot(snapshot); err != nil {
		logger.Warn("Snapshot inválido", zap.Error(err))
		return err
	}

	for _, t := range snapshot.Transactions {
		t.Date = ledger.Day(t.Date)
		if t.ExpiryDate != nil {
			d := ledger.Day(*t.ExpiryDate)
			t.ExpiryDate = &d
		}
	}

	if err := s.repo.ReplaceAll(ctx, snapshot.Items, snapshot.Transactions); err != nil {
		logger.Error("Error reemplazando ledger", zap.Error(err))
		return ledger.WrapStore("restore", err)
	}

	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}

	logger.Info("Ledger restaurado",
		zap.Int("items", len(snapshot.Items)),
		zap.Int("transactions", len(snapshot.Transactions)))

	s.publishEvent(ctx, models.LedgerEvent{Type: models.EventLedgerReplaced, Timestamp: s.opts.Now().UTC()})
	return nil
}

// Stats contadores de operaciones desde el arranque
func (s *ledgerService) Stats() models.LedgerMetrics {
	return models.LedgerMetrics{
		Receipts: s.receipts.Load(),
		Issues:   s.issues.Load(),
		Rejected: s.rejected.Load(),
	}
}

// NearExpiryDays ventana configurada del reporte de próximos a vencer
func (s *ledgerService) NearExpiryDays() int {
	return s.opts.NearExpiryDays
}

func (s *ledgerService) today() time.Time {
	return ledger.Day(s.opts.Now())
}

func (s *ledgerService) parseDates(date, expiry *string) (time.Time, *time.Time, error) {
	day := s.today()
	if parsed, err := ledger.ParseOptionalDay(date); err != nil {
		return time.Time{}, nil, &ledger.ValidationError{Field: "date", Reason: err.Error()}
	} else if parsed != nil {
		day = *parsed
	}

	expiryDay, err := ledger.ParseOptionalDay(expiry)
	if err != nil {
		return time.Time{}, nil, &ledger.ValidationError{Field: "expiry_date", Reason: err.Error()}
	}
	return day, expiryDay, nil
}

// findItem busca un item por nombre pasando por el caché
func (s *ledgerService) findItem(ctx context.Context, name string) (*models.Item, error) {
	if s.cache != nil {
		if item := s.cache.GetItem(ctx, name); item != nil {
			return item, nil
		}
	}

	item, err := s.repo.GetItemByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if item != nil && s.cache != nil {
		s.cache.SetItem(ctx, item)
	}
	return item, nil
}

// requireItem como findItem, pero un item desconocido es un error de validación
func (s *ledgerService) requireItem(ctx context.Context, name string) (*models.Item, error) {
	item, err := s.findItem(ctx, name)
	if err != nil {
		return nil, ledger.WrapStore("get_item", err)
	}
	if item == nil {
		return nil, &ledger.ValidationError{Field: "item", Reason: fmt.Sprintf("unknown item %q", name)}
	}
	return item, nil
}

// confirmItem relee el item dentro del lock. Si el nombre ya no coincide
// (rename o restore) la entrada del caché está vencida y se descarta.
func (s *ledgerService) confirmItem(ctx context.Context, tx repository.LedgerTx, item *models.Item) error {
	current, err := tx.GetItemByID(ctx, item.ID)
	if err != nil {
		return err
	}
	if current != nil && current.Name == item.Name {
		return nil
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, item.Name)
	}
	return &ledger.ValidationError{Field: "item", Reason: fmt.Sprintf("unknown item %q", item.Name)}
}

// itemLedger item y sus transacciones. Un item desconocido es NotFound.
func (s *ledgerService) itemLedger(ctx context.Context, name string) (*models.Item, []*models.Transaction, error) {
	item, err := s.findItem(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, nil, ledger.WrapStore("get_item", err)
	}
	if item != nil {
		// la entrada del caché puede haber quedado vencida tras un rename
		current, err := s.repo.GetItemByID(ctx, item.ID)
		if err != nil {
			return nil, nil, ledger.WrapStore("get_item", err)
		}
		if current == nil || current.Name != item.Name {
			if s.cache != nil {
				s.cache.Invalidate(ctx, item.Name)
			}
			item = nil
		}
	}
	if item == nil {
		return nil, nil, &ledger.NotFoundError{Resource: "item", Key: name}
	}
	txs, err := s.repo.ListTransactions(ctx, &models.TransactionFilter{ItemID: &item.ID})
	if err != nil {
		return nil, nil, ledger.WrapStore("list_transactions", err)
	}
	return item, txs, nil
}

func (s *ledgerService) loadLedger(ctx context.Context, op string) ([]*models.Item, []*models.Transaction, error) {
	items, err := s.repo.ListItems(ctx, nil)
	if err != nil {
		return nil, nil, ledger.WrapStore(op, err)
	}
	txs, err := s.repo.ListTransactions(ctx, nil)
	if err != nil {
		return nil, nil, ledger.WrapStore(op, err)
	}
	return items, txs, nil
}

func (s *ledgerService) publish(ctx context.Context, eventType models.EventType, tr *models.Transaction, itemName string, stock int) {
	s.publishEvent(ctx, models.LedgerEvent{
		Type:         eventType,
		Transaction:  tr,
		Item:         itemName,
		CurrentStock: &stock,
		Timestamp:    s.opts.Now().UTC(),
	})
}

// publishEvent el fallo al publicar no afecta a la operación ya confirmada
func (s *ledgerService) publishEvent(ctx context.Context, event models.LedgerEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("No se pudo publicar evento",
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}

func validateSnapshot(snapshot *models.Snapshot) error {
	if snapshot == nil {
		return &ledger.ValidationError{Reason: "snapshot is empty"}
	}

	ids := make(map[int64]bool, len(snapshot.Items))
	names := make(map[string]bool, len(snapshot.Items))
	for _, item := range snapshot.Items {
		if item.ID <= 0 || item.Name == "" {
			return &ledger.ValidationError{Field: "items", Reason: "every item needs an id and a name"}
		}
		if ids[item.ID] || names[item.Name] {
			return &ledger.ValidationError{Field: "items", Reason: fmt.Sprintf("duplicate item %q", item.Name)}
		}
		ids[item.ID] = true
		names[item.Name] = true
	}

	txIDs := make(map[int64]bool, len(snapshot.Transactions))
	for _, t := range snapshot.Transactions {
		switch {
		case t.ID <= 0 || txIDs[t.ID]:
			return &ledger.ValidationError{Field: "transactions", Reason: fmt.Sprintf("invalid or duplicate id %d", t.ID)}
		case !ids[t.ItemID]:
			return &ledger.ValidationError{Field: "transactions", Reason: fmt.Sprintf("transaction %d references unknown item %d", t.ID, t.ItemID)}
		case !t.Direction.Valid():
			return &ledger.ValidationError{Field: "transactions", Reason: fmt.Sprintf("transaction %d has invalid direction %q", t.ID, t.Direction)}
		case t.Quantity <= 0:
			return &ledger.ValidationError{Field: "transactions", Reason: fmt.Sprintf("transaction %d has non-positive quantity", t.ID)}
		}
		txIDs[t.ID] = true
	}
	return nil
}

func recordResponse(tr *models.Transaction, itemName string, stock int) *models.RecordResponse {
	return &models.RecordResponse{
		TransactionID: tr.ID,
		Item:          itemName,
		Direction:     tr.Direction,
		Quantity:      tr.Quantity,
		Batch:         tr.Batch,
		CurrentStock:  stock,
		Timestamp:     tr.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func actorOrDefault(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return defaultActor
	}
	return actor
}

func lotDescription(item string, expiry *time.Time, batch *string) string {
	return fmt.Sprintf("%s (expiry %s, batch %s)", item, orNone(formatDay(expiry)), orNone(derefString(batch)))
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(ledger.DateLayout)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

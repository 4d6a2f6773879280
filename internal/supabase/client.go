// Package supabase sincroniza el ledger con tablas remotas de Supabase (PostgREST).
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"inventory-service/internal/config"
	"inventory-service/internal/ledger"
	"inventory-service/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	tableItems        = "items"
	tableTransactions = "transactions"
	tableTransferLogs = "transfer_logs"

	TransferUpload   = "to_supabase"
	TransferDownload = "from_supabase"

	statusSuccess = "success"
	statusFailure = "failure"
)

// ErrNotConfigured la sincronización no tiene URL o clave
var ErrNotConfigured = errors.New("remote sync is not configured")

// Store origen y destino de los snapshots
type Store interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	Restore(ctx context.Context, snapshot *models.Snapshot) error
}

// Status estado de la conexión remota
type Status struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}

// Result filas transferidas en una sincronización
type Result struct {
	Direction    string `json:"direction"`
	Items        int    `json:"items"`
	Transactions int    `json:"transactions"`
}

// Client cliente resty sobre la API REST de Supabase
type Client struct {
	http    *resty.Client
	store   Store
	enabled bool
	now     func() time.Time
	logger  *zap.Logger
}

// remoteItem fila de la tabla items remota
type remoteItem struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Category     *string   `json:"category"`
	MinimumStock int       `json:"minimum_stock"`
	CreatedAt    time.Time `json:"created_at"`
}

// remoteTransaction las fechas viajan como YYYY-MM-DD
type remoteTransaction struct {
	ID           int64     `json:"id"`
	ItemID       int64     `json:"item_id"`
	Direction    string    `json:"direction"`
	Quantity     int       `json:"quantity"`
	Date         string    `json:"date"`
	Counterparty string    `json:"counterparty"`
	ExpiryDate   *string   `json:"expiry_date"`
	Batch        *string   `json:"batch"`
	Note         *string   `json:"note"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type transferLog struct {
	TransferType string  `json:"transfer_type"`
	Status       string  `json:"status"`
	Details      *string `json:"details"`
	Timestamp    string  `json:"timestamp"`
}

// apiError cuerpo de error de PostgREST
type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
}

// NewClient construye el cliente con la URL y la clave configuradas
func NewClient(cfg config.SyncConfig, store Store, logger *zap.Logger) *Client {
	base := strings.TrimSuffix(cfg.URL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(base+"/rest/v1").
		SetHeader("apikey", cfg.Key).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Key)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)

	return &Client{
		http:    restyClient,
		store:   store,
		enabled: cfg.URL != "" && cfg.Key != "",
		now:     time.Now,
		logger:  logger,
	}
}

// Status consulta transfer_logs para verificar credenciales y conectividad
func (c *Client) Status(ctx context.Context) Status {
	if !c.enabled {
		return Status{Message: ErrNotConfigured.Error()}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"select": "*", "limit": "1"}).
		SetError(&apiError{}).
		Get(tableTransferLogs)
	if err := checkResponse("test connection", resp, err); err != nil {
		return Status{Enabled: true, Message: err.Error()}
	}
	return Status{Enabled: true, Connected: true, Message: "connected"}
}

// Upload reemplaza las tablas remotas con el contenido local
func (c *Client) Upload(ctx context.Context) (*Result, error) {
	if !c.enabled {
		return nil, ErrNotConfigured
	}
	logger := c.logger.With(zap.String("operation", "sync_upload"))

	result, err := c.upload(ctx)
	if err != nil {
		logger.Error("Error subiendo datos", zap.Error(err))
		c.logTransfer(ctx, TransferUpload, statusFailure, err.Error())
		return nil, err
	}

	logger.Info("Datos subidos",
		zap.Int("items", result.Items),
		zap.Int("transactions", result.Transactions))
	c.logTransfer(ctx, TransferUpload, statusSuccess, "")
	return result, nil
}

func (c *Client) upload(ctx context.Context) (*Result, error) {
	snapshot, err := c.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]remoteItem, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, remoteItem{
			ID:           item.ID,
			Name:         item.Name,
			Category:     item.Category,
			MinimumStock: item.MinimumStock,
			CreatedAt:    item.CreatedAt.UTC(),
		})
	}
	txs := make([]remoteTransaction, 0, len(snapshot.Transactions))
	for _, t := range snapshot.Transactions {
		txs = append(txs, toRemoteTransaction(t))
	}

	// transacciones primero por la clave foránea remota
	if err := c.clear(ctx, tableTransactions); err != nil {
		return nil, err
	}
	if err := c.clear(ctx, tableItems); err != nil {
		return nil, err
	}
	if err := c.insert(ctx, tableItems, items, len(items)); err != nil {
		return nil, err
	}
	if err := c.insert(ctx, tableTransactions, txs, len(txs)); err != nil {
		return nil, err
	}

	return &Result{Direction: TransferUpload, Items: len(items), Transactions: len(txs)}, nil
}

// Download reemplaza el ledger local con las tablas remotas
func (c *Client) Download(ctx context.Context) (*Result, error) {
	if !c.enabled {
		return nil, ErrNotConfigured
	}
	logger := c.logger.With(zap.String("operation", "sync_download"))

	result, err := c.download(ctx)
	if err != nil {
		logger.Error("Error descargando datos", zap.Error(err))
		c.logTransfer(ctx, TransferDownload, statusFailure, err.Error())
		return nil, err
	}

	logger.Info("Datos descargados",
		zap.Int("items", result.Items),
		zap.Int("transactions", result.Transactions))
	c.logTransfer(ctx, TransferDownload, statusSuccess, "")
	return result, nil
}

func (c *Client) download(ctx context.Context) (*Result, error) {
	var items []remoteItem
	if err := c.selectAll(ctx, tableItems, &items); err != nil {
		return nil, err
	}
	var txs []remoteTransaction
	if err := c.selectAll(ctx, tableTransactions, &txs); err != nil {
		return nil, err
	}

	snapshot := &models.Snapshot{
		Items:        make([]*models.Item, 0, len(items)),
		Transactions: make([]*models.Transaction, 0, len(txs)),
	}
	for _, item := range items {
		snapshot.Items = append(snapshot.Items, &models.Item{
			ID:           item.ID,
			Name:         item.Name,
			Category:     item.Category,
			MinimumStock: item.MinimumStock,
			CreatedAt:    item.CreatedAt,
		})
	}
	for _, rt := range txs {
		t, err := fromRemoteTransaction(rt)
		if err != nil {
			return nil, err
		}
		snapshot.Transactions = append(snapshot.Transactions, t)
	}

	if err := c.store.Restore(ctx, snapshot); err != nil {
		return nil, err
	}
	return &Result{Direction: TransferDownload, Items: len(items), Transactions: len(txs)}, nil
}

func (c *Client) clear(ctx context.Context, table string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("id", "neq.0").
		SetError(&apiError{}).
		Delete(table)
	return checkResponse("clear "+table, resp, err)
}

func (c *Client) insert(ctx context.Context, table string, rows interface{}, count int) error {
	if count == 0 {
		return nil
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(rows).
		SetError(&apiError{}).
		Post(table)
	return checkResponse("insert "+table, resp, err)
}

func (c *Client) selectAll(ctx context.Context, table string, dest interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"select": "*", "order": "id"}).
		SetResult(dest).
		SetError(&apiError{}).
		Get(table)
	return checkResponse("select "+table, resp, err)
}

// logTransfer registra el intento en transfer_logs; si falla solo se loguea
func (c *Client) logTransfer(ctx context.Context, transferType, status, details string) {
	entry := transferLog{
		TransferType: transferType,
		Status:       status,
		Timestamp:    c.now().UTC().Format(time.RFC3339),
	}
	if details != "" {
		entry.Details = &details
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(entry).
		SetError(&apiError{}).
		Post(tableTransferLogs)
	if err := checkResponse("log transfer", resp, err); err != nil {
		c.logger.Warn("No se pudo registrar la transferencia", zap.Error(err))
	}
}

func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("supabase %s: %w", op, err)
	}
	if resp.StatusCode() < http.StatusBadRequest {
		return nil
	}
	message := resp.Status()
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Message != "" {
		message = apiErr.Message
	}
	return fmt.Errorf("supabase %s: status=%d, message=%s", op, resp.StatusCode(), message)
}

func toRemoteTransaction(t *models.Transaction) remoteTransaction {
	rt := remoteTransaction{
		ID:           t.ID,
		ItemID:       t.ItemID,
		Direction:    string(t.Direction),
		Quantity:     t.Quantity,
		Date:         t.Date.Format(ledger.DateLayout),
		Counterparty: t.Counterparty,
		Batch:        t.Batch,
		Note:         t.Note,
		CreatedBy:    t.CreatedBy,
		CreatedAt:    t.CreatedAt.UTC(),
	}
	if t.ExpiryDate != nil {
		expiry := t.ExpiryDate.Format(ledger.DateLayout)
		rt.ExpiryDate = &expiry
	}
	return rt
}

func fromRemoteTransaction(rt remoteTransaction) (*models.Transaction, error) {
	date, err := ledger.ParseDay(rt.Date)
	if err != nil {
		return nil, fmt.Errorf("remote transaction %d: %w", rt.ID, err)
	}
	expiry, err := ledger.ParseOptionalDay(rt.ExpiryDate)
	if err != nil {
		return nil, fmt.Errorf("remote transaction %d: %w", rt.ID, err)
	}
	return &models.Transaction{
		ID:           rt.ID,
		ItemID:       rt.ItemID,
		Direction:    models.Direction(rt.Direction),
		Quantity:     rt.Quantity,
		Date:         date,
		Counterparty: rt.Counterparty,
		ExpiryDate:   expiry,
		Batch:        rt.Batch,
		Note:         rt.Note,
		CreatedBy:    rt.CreatedBy,
		CreatedAt:    rt.CreatedAt,
	}, nil
}

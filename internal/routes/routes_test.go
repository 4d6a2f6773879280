package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inventory-service/internal/backup"
	"inventory-service/internal/cache"
	"inventory-service/internal/config"
	"inventory-service/internal/events"
	"inventory-service/internal/handlers"
	"inventory-service/internal/middleware"
	"inventory-service/internal/repository"
	"inventory-service/internal/services"
	"inventory-service/internal/supabase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testAPI struct {
	router *gin.Engine
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	bus := events.NewLocalBus(logger)
	itemCache := cache.NewItemCache(nil, 100, time.Minute, logger)
	ledgerService := services.NewLedgerService(repository.NewMemoryLedgerRepository(), itemCache, bus, services.LedgerOptions{
		NearExpiryDays:      60,
		DefaultMinimumStock: 20,
		Now:                 func() time.Time { return fixedNow },
	}, logger)

	authService := services.NewAuthService(repository.NewMemoryUserRepository(), "test-secret", time.Hour, logger)
	require.NoError(t, authService.EnsureUser(context.Background(), "admin", "admin123"))

	manager, err := backup.NewManager(t.TempDir(), ledgerService, logger)
	require.NoError(t, err)

	monitoringService := services.NewMonitoringService(logger, &config.Config{}, nil, nil, itemCache, ledgerService)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService, logger)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware(), monitoringHandler.RecordRequestMiddleware())
	SetupRoutes(router, Handlers{
		Auth:       handlers.NewAuthHandler(authService, logger),
		Ledger:     handlers.NewLedgerHandler(ledgerService, logger),
		Stock:      handlers.NewStockHandler(ledgerService, logger),
		Export:     handlers.NewExportHandler(ledgerService, logger),
		Backup:     handlers.NewBackupHandler(manager, logger),
		Sync:       handlers.NewSyncHandler(supabase.NewClient(config.SyncConfig{}, ledgerService, logger), logger),
		Stream:     handlers.NewStreamHandler(bus, logger),
		Monitoring: monitoringHandler,
		Health:     middleware.NewHealthChecker(nil, nil, logger),
	}, middleware.AuthMiddleware(authService, logger))

	api := &testAPI{router: router}
	rec, env := api.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin", "password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	api.token = login.Token
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestRoutes_AuthRequired(t *testing.T) {
	api := newTestAPI(t)

	testCases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "No token", header: "", want: http.StatusUnauthorized},
		{name: "Garbage token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "Wrong scheme", header: "Basic " + api.token, want: http.StatusUnauthorized},
		{name: "Valid token", header: "Bearer " + api.token, want: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/stock", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			api.router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}

	api.token = ""
	rec, env := api.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)

	rec, _ = api.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_LedgerFlow(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := api.do(t, http.MethodPost, "/api/v1/items", map[string]interface{}{"name": "Ethanol", "minimum_stock": 10})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := api.do(t, http.MethodPost, "/api/v1/items", map[string]interface{}{"name": "Ethanol"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)

	rec, env = api.do(t, http.MethodPost, "/api/v1/ledger/receipts", map[string]interface{}{
		"item": "Ethanol", "quantity": 30, "source": "Supplier", "expiry_date": "2025-04-01", "batch": "L-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var recorded struct {
		CurrentStock int `json:"current_stock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &recorded))
	assert.Equal(t, 30, recorded.CurrentStock)

	testCases := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{name: "Insufficient stock", body: map[string]interface{}{"item": "Ethanol", "quantity": 31, "destination": "Lab A", "expiry_date": "2025-04-01"}, want: http.StatusConflict},
		{name: "Unknown item", body: map[string]interface{}{"item": "Acetone", "quantity": 1, "destination": "Lab A"}, want: http.StatusBadRequest},
		{name: "No lot for that expiry", body: map[string]interface{}{"item": "Ethanol", "quantity": 1, "destination": "Lab A"}, want: http.StatusNotFound},
		{name: "Zero quantity", body: map[string]interface{}{"item": "Ethanol", "quantity": 0, "destination": "Lab A"}, want: http.StatusBadRequest},
		{name: "Valid issue", body: map[string]interface{}{"item": "Ethanol", "quantity": 25, "destination": "Lab A", "expiry_date": "2025-04-01"}, want: http.StatusCreated},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := api.do(t, http.MethodPost, "/api/v1/ledger/issues", tc.body)
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	rec, env = api.do(t, http.MethodGet, "/api/v1/stock/Ethanol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stock struct {
		CurrentStock int `json:"current_stock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stock))
	assert.Equal(t, 5, stock.CurrentStock)

	rec, env = api.do(t, http.MethodGet, "/api/v1/reports/low-stock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var low struct {
		TotalItems int `json:"total_items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &low))
	assert.Equal(t, 1, low.TotalItems)

	rec, env = api.do(t, http.MethodGet, "/api/v1/ledger/transactions?direction=OUT", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var search struct {
		Total int `json:"total_transactions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &search))
	assert.Equal(t, 1, search.Total)

	rec, _ = api.do(t, http.MethodGet, "/api/v1/ledger/transactions?from=2025-03-10&to=2025-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/api/v1/reports/near-expiry?days=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = api.do(t, http.MethodGet, "/api/v1/reports/near-expiry?days=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var near struct {
		TotalItems int `json:"total_items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &near))
	assert.Equal(t, 1, near.TotalItems)
}

func TestRoutes_ExportBackupAndSync(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := api.do(t, http.MethodPost, "/api/v1/items", map[string]interface{}{"name": "Agarose"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = api.do(t, http.MethodPost, "/api/v1/ledger/receipts", map[string]interface{}{"item": "Agarose", "quantity": 12, "source": "Supplier"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/api/v1/export/stock.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "current_stock_")
	assert.NotZero(t, rec.Body.Len())

	rec, env := api.do(t, http.MethodPost, "/api/v1/backups", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Filename string `json:"filename"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec, _ = api.do(t, http.MethodPost, "/api/v1/ledger/issues", map[string]interface{}{"item": "Agarose", "quantity": 12, "destination": "Lab B"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = api.do(t, http.MethodPost, "/api/v1/backups/"+created.Filename+"/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = api.do(t, http.MethodGet, "/api/v1/stock/Agarose", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stock struct {
		CurrentStock int `json:"current_stock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stock))
	assert.Equal(t, 12, stock.CurrentStock)

	rec, _ = api.do(t, http.MethodPost, "/api/v1/backups/inventory_backup_20200101_000000.zip/restore", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = api.do(t, http.MethodGet, "/api/v1/sync/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status supabase.Status
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.False(t, status.Enabled)

	rec, _ = api.do(t, http.MethodPost, "/api/v1/sync/upload", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRoutes_ChangePassword(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := api.do(t, http.MethodPost, "/api/v1/auth/password", map[string]string{
		"current_password": "admin123", "new_password": "abc", "confirm_password": "abc",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(t, http.MethodPost, "/api/v1/auth/password", map[string]string{
		"current_password": "admin123", "new_password": "secret1", "confirm_password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	api.token = ""
	rec, _ = api.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin", "password": "secret1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"inventory-service/internal/config"
	"inventory-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMonitoringService_RecordRequest(t *testing.T) {
	svc := NewMonitoringService(zap.NewNop(), &config.Config{}, nil, nil, nil, nil)
	now := time.Now()

	svc.RecordRequest(models.RequestData{Endpoint: "/api/v1/stock", Method: "GET", Duration: 10 * time.Millisecond, StatusCode: 200, Timestamp: now})
	svc.RecordRequest(models.RequestData{Endpoint: "/api/v1/stock", Method: "GET", Duration: 30 * time.Millisecond, StatusCode: 200, Timestamp: now})
	svc.RecordRequest(models.RequestData{Endpoint: "/api/v1/ledger/issues", Method: "POST", Duration: 2 * time.Second, StatusCode: 409, Timestamp: now})
	svc.RecordRequest(models.RequestData{Endpoint: "/health", Method: "GET", Duration: time.Millisecond, StatusCode: 200, Error: errors.New("x"), Timestamp: now})

	metrics := svc.GetMetrics(context.Background())
	assert.Equal(t, 4, metrics.Requests.TotalRequests)
	assert.Equal(t, 3, metrics.Requests.Total)
	assert.Equal(t, 1, metrics.Requests.SlowRequestsCount)
	assert.Equal(t, 2, metrics.Requests.ErrorsCount)
	require.NotEmpty(t, metrics.Requests.TopEndpoints)
	assert.Equal(t, "GET /api/v1/stock", metrics.Requests.TopEndpoints[0].Endpoint)
	assert.Equal(t, 20.0, metrics.Requests.ByEndpoint["GET /api/v1/stock"].AvgTime)

	assert.Equal(t, "disabled", metrics.Redis.Status)
	assert.Equal(t, "disabled", metrics.Cache.Status)
	assert.Equal(t, config.StoreDriverMemory, metrics.Database.Driver)
}

func TestMonitoringService_LedgerStats(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, "Taq")
	f.receive(t, "Taq", 3, nil, nil)

	svc := NewMonitoringService(zap.NewNop(), &config.Config{}, nil, nil, nil, f.svc)
	stats := svc.GetLedgerStats(context.Background())
	assert.Equal(t, int64(1), stats.Receipts)
	assert.Equal(t, 1, stats.Items)
}

func TestParseUsedMemory(t *testing.T) {
	memory, mb := parseUsedMemory("# Memory\r\nused_memory:2097152\r\nused_memory_human:2.00M\r\n")
	assert.Equal(t, "2097152", memory)
	assert.Equal(t, "2.00 MB", mb)

	memory, mb = parseUsedMemory("nothing here")
	assert.Empty(t, memory)
	assert.Empty(t, mb)
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"inventory-service/internal/cache"
	"inventory-service/internal/events"
	"inventory-service/internal/ledger"
	"inventory-service/internal/models"
	"inventory-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func str(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func dayOffset(days int) *string {
	s := fixedNow.AddDate(0, 0, days).Format(ledger.DateLayout)
	return &s
}

type fixture struct {
	svc   LedgerService
	repo  repository.LedgerRepository
	bus   events.Bus
	cache *cache.ItemCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.NewMemoryLedgerRepository()
	bus := events.NewLocalBus(zap.NewNop())
	itemCache := cache.NewItemCache(nil, 100, time.Minute, zap.NewNop())
	svc := NewLedgerService(repo, itemCache, bus, LedgerOptions{
		NearExpiryDays:      60,
		DefaultMinimumStock: 20,
		Now:                 func() time.Time { return fixedNow },
	}, zap.NewNop())
	return &fixture{svc: svc, repo: repo, bus: bus, cache: itemCache}
}

func (f *fixture) addItem(t *testing.T, name string) *models.Item {
	t.Helper()
	item, err := f.svc.AddItem(context.Background(), &models.CreateItemRequest{Name: name})
	require.NoError(t, err)
	return item
}

func (f *fixture) receive(t *testing.T, item string, qty int, expiry *string, batch *string) *models.RecordResponse {
	t.Helper()
	resp, err := f.svc.RecordReceipt(context.Background(), &models.ReceiptRequest{
		Item: item, Quantity: qty, Source: "Supplier", ExpiryDate: expiry, Batch: batch, Actor: "tester",
	})
	require.NoError(t, err)
	return resp
}

func TestAddItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.AddItem(ctx, &models.CreateItemRequest{Name: "  Taq Polymerase ", Category: str("enzymes")})
	require.NoError(t, err)
	assert.Equal(t, "Taq Polymerase", item.Name)
	assert.Equal(t, 20, item.MinimumStock)

	custom, err := f.svc.AddItem(ctx, &models.CreateItemRequest{Name: "Agarose", MinimumStock: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, custom.MinimumStock)

	_, err = f.svc.AddItem(ctx, &models.CreateItemRequest{Name: "Taq Polymerase"})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.svc.AddItem(ctx, &models.CreateItemRequest{Name: "   "})
	var verr *ledger.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	items, err := f.svc.ListItems(ctx, str("enzymes"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Taq Polymerase", items[0].Name)
}

func TestAddItem_ZeroOptionsUseDefaultMinimum(t *testing.T) {
	svc := NewLedgerService(repository.NewMemoryLedgerRepository(), nil, nil, LedgerOptions{}, zap.NewNop())

	item, err := svc.AddItem(context.Background(), &models.CreateItemRequest{Name: "Ethanol"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMinimumStock, item.MinimumStock)
}

func TestUpdateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "Taq")
	f.receive(t, "Taq", 5, nil, nil)

	updated, err := f.svc.UpdateItem(ctx, item.ID, &models.UpdateItemRequest{Name: str("Taq HS"), MinimumStock: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, "Taq HS", updated.Name)

	_, err = f.svc.CurrentStock(ctx, "Taq")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	stock, err := f.svc.CurrentStock(ctx, "Taq HS")
	require.NoError(t, err)
	assert.Equal(t, 5, stock)

	low, err := f.svc.LowStockReport(ctx)
	require.NoError(t, err)
	assert.Empty(t, low)

	_, err = f.svc.UpdateItem(ctx, 999, &models.UpdateItemRequest{Name: str("x")})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStaleCacheAfterRename(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		call    func(svc LedgerService) error
		wantErr error
	}{
		{
			name: "Receipt",
			call: func(svc LedgerService) error {
				_, err := svc.RecordReceipt(ctx, &models.ReceiptRequest{Item: "Old", Quantity: 3, Source: "Supplier"})
				return err
			},
			wantErr: ledger.ErrValidation,
		},
		{
			name: "Issue",
			call: func(svc LedgerService) error {
				_, err := svc.RecordIssue(ctx, &models.IssueRequest{Item: "Old", Quantity: 1, Destination: "Lab"})
				return err
			},
			wantErr: ledger.ErrValidation,
		},
		{
			name: "Current stock",
			call: func(svc LedgerService) error {
				_, err := svc.CurrentStock(ctx, "Old")
				return err
			},
			wantErr: ledger.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			item := f.addItem(t, "Old")
			f.receive(t, "Old", 5, nil, nil)

			_, err := f.svc.UpdateItem(ctx, item.ID, &models.UpdateItemRequest{Name: str("New")})
			require.NoError(t, err)

			// una lectura lenta repone la entrada vieja después del rename
			f.cache.SetItem(ctx, &models.Item{ID: item.ID, Name: "Old", MinimumStock: 20})

			assert.ErrorIs(t, tc.call(f.svc), tc.wantErr)
			assert.Nil(t, f.cache.GetItem(ctx, "Old"))

			stock, err := f.svc.CurrentStock(ctx, "New")
			require.NoError(t, err)
			assert.Equal(t, 5, stock)
		})
	}
}

func TestRecordReceipt_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Taq")

	testCases := []struct {
		name  string
		req   models.ReceiptRequest
		field string
	}{
		{name: "Zero quantity", req: models.ReceiptRequest{Item: "Taq", Quantity: 0, Source: "S"}, field: "quantity"},
		{name: "Negative quantity", req: models.ReceiptRequest{Item: "Taq", Quantity: -3, Source: "S"}, field: "quantity"},
		{name: "Blank source", req: models.ReceiptRequest{Item: "Taq", Quantity: 1, Source: "   "}, field: "source"},
		{name: "Unknown item", req: models.ReceiptRequest{Item: "Nope", Quantity: 1, Source: "S"}, field: "item"},
		{name: "Bad expiry", req: models.ReceiptRequest{Item: "Taq", Quantity: 1, Source: "S", ExpiryDate: str("10/03/2025")}, field: "expiry_date"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			_, err := f.svc.RecordReceipt(ctx, &req)
			var verr *ledger.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	txs, err := f.repo.ListTransactions(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Equal(t, int64(len(testCases)), f.svc.Stats().Rejected)
}

func TestReceiptThenIssue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Taq")

	receipt := f.receive(t, "Taq", 50, dayOffset(180), str("B1"))
	assert.Equal(t, 50, receipt.CurrentStock)
	assert.Equal(t, models.DirectionIn, receipt.Direction)

	stock, err := f.svc.CurrentStock(ctx, "Taq")
	require.NoError(t, err)
	assert.Equal(t, 50, stock)

	lots, err := f.svc.AvailabilityByExpiry(ctx, "Taq")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, *dayOffset(180), lots[0].ExpiryDate.Format(ledger.DateLayout))
	assert.Equal(t, "B1", *lots[0].Batch)
	assert.Equal(t, 50, lots[0].AvailableQuantity)

	issue, err := f.svc.RecordIssue(ctx, &models.IssueRequest{
		Item: "Taq", Quantity: 20, Destination: "Lab 2", ExpiryDate: dayOffset(180), Batch: str("B1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 30, issue.CurrentStock)
	assert.Equal(t, "B1", *issue.Batch)

	stock, err = f.svc.CurrentStock(ctx, "Taq")
	require.NoError(t, err)
	assert.Equal(t, 30, stock)

	txs, err := f.repo.ListTransactions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "tester", txs[0].CreatedBy)
	assert.Equal(t, "admin", txs[1].CreatedBy)
	assert.Equal(t, "2025-03-10", txs[1].Date.Format(ledger.DateLayout))

	stats := f.svc.Stats()
	assert.Equal(t, int64(1), stats.Receipts)
	assert.Equal(t, int64(1), stats.Issues)
}

func TestRecordIssue_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Taq")
	f.receive(t, "Taq", 10, dayOffset(30), str("B1"))

	_, err := f.svc.RecordIssue(ctx, &models.IssueRequest{
		Item: "Taq", Quantity: 11, Destination: "Lab", ExpiryDate: dayOffset(30), Batch: str("B1"),
	})
	var insufficient *ledger.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 10, insufficient.Available)
	assert.Equal(t, 11, insufficient.Requested)

	_, err = f.svc.RecordIssue(ctx, &models.IssueRequest{
		Item: "Taq", Quantity: 1, Destination: "Lab", ExpiryDate: dayOffset(31),
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = f.svc.RecordIssue(ctx, &models.IssueRequest{
		Item: "Taq", Quantity: 1, Destination: "Lab", ExpiryDate: dayOffset(30), Batch: str("B9"),
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = f.svc.RecordIssue(ctx, &models.IssueRequest{
		Item: "Taq", Quantity: 1, Destination: " ", ExpiryDate: dayOffset(30),
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.svc.RecordIssue(ctx, &models.IssueRequest{Item: "Ghost", Quantity: 1, Destination: "Lab"})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	stock, err := f.svc.CurrentStock(ctx, "Taq")
	require.NoError(t, err)
	assert.Equal(t, 10, stock)
}

func TestRecordIssue_ResolvesBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Taq")
	f.receive(t, "Taq", 5, dayOffset(30), str("A"))
	f.receive(t, "Taq", 5, dayOffset(30), str("B"))

	first, err := f.svc.RecordIssue(ctx, &models.IssueRequest{
		Item: "Taq", Quantity: 5, Destination: "Lab", ExpiryDate: dayOffset(30),
	})
	require.NoError(t, err)
	assert.Equal(t, "A", *first.Batch)

	second, err := f.svc.RecordIssue(ctx, &models.IssueRequest{
		Item: "Taq", Quantity: 3, Destination: "Lab", ExpiryDate: dayOffset(30),
	})
	require.NoError(t, err)
	assert.Equal(t, "B", *second.Batch)

	_, err = f.svc.RecordIssue(ctx, &models.IssueRequest{
		Item: "Taq", Quantity: 3, Destination: "Lab", ExpiryDate: dayOffset(30),
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientStock)
}

func TestRecordIssue_ConcurrentNeverOversells(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Taq")
	f.receive(t, "Taq", 10, dayOffset(30), str("B1"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RecordIssue(ctx, &models.IssueRequest{
				Item: "Taq", Quantity: 1, Destination: "Lab", ExpiryDate: dayOffset(30), Batch: str("B1"),
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ledger.ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	stock, err := f.svc.CurrentStock(ctx, "Taq")
	require.NoError(t, err)
	assert.Equal(t, 0, stock)
}

func TestReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Taq")
	f.addItem(t, "Agarose")
	f.receive(t, "Taq", 15, dayOffset(-3), str("OLD"))
	f.receive(t, "Taq", 30, dayOffset(20), str("NEW"))
	f.receive(t, "Agarose", 5, dayOffset(90), nil)

	low, err := f.svc.LowStockReport(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Agarose", low[0].Item)
	assert.Equal(t, 15, low[0].Shortage)

	expired, err := f.svc.ExpiredReport(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, 15, expired[0].CurrentStock)

	near, err := f.svc.NearExpiryReport(ctx, 60)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, "Taq", near[0].Item)

	wide, err := f.svc.NearExpiryReport(ctx, 120)
	require.NoError(t, err)
	assert.Len(t, wide, 2)

	_, err = f.svc.NearExpiryReport(ctx, -1)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	alert, err := f.svc.ScanAlerts(ctx)
	require.NoError(t, err)
	assert.False(t, alert.Empty())
	assert.Len(t, alert.NearExpiry, 1)

	levels, err := f.svc.StockLevels(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "Agarose", levels[0].Name)
	assert.Equal(t, 45, levels[1].CurrentStock)

	monthly, err := f.svc.MonthlyTransactionSummary(ctx)
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	assert.Equal(t, "2025-03", monthly[0].Month)
}

func TestSearchTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Taq")
	f.addItem(t, "Agarose")
	f.receive(t, "Taq", 10, nil, nil)
	f.receive(t, "Agarose", 3, nil, nil)
	_, err := f.svc.RecordIssue(ctx, &models.IssueRequest{Item: "Taq", Quantity: 2, Destination: "Lab", Date: dayOffset(-1)})
	require.NoError(t, err)

	all, err := f.svc.SearchTransactions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Agarose", all[0].ItemName)
	assert.Equal(t, models.DirectionOut, all[2].Direction)

	out, err := f.svc.SearchTransactions(ctx, &models.TransactionQuery{Direction: str("OUT")})
	require.NoError(t, err)
	require.Len(t, out, 1)

	taq, err := f.svc.SearchTransactions(ctx, &models.TransactionQuery{Item: str("Taq"), From: dayOffset(0)})
	require.NoError(t, err)
	require.Len(t, taq, 1)
	assert.Equal(t, models.DirectionIn, taq[0].Direction)

	_, err = f.svc.SearchTransactions(ctx, &models.TransactionQuery{Direction: str("SIDEWAYS")})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.svc.SearchTransactions(ctx, &models.TransactionQuery{From: dayOffset(1), To: dayOffset(0)})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.svc.SearchTransactions(ctx, &models.TransactionQuery{Item: str("Ghost")})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSnapshotRestore_ReproducesDerivedOutputs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Taq")
	f.addItem(t, "Agarose")
	f.receive(t, "Taq", 15, dayOffset(-3), str("OLD"))
	f.receive(t, "Taq", 30, dayOffset(20), str("NEW"))
	f.receive(t, "Agarose", 5, dayOffset(90), nil)

	snapshot, err := f.svc.Snapshot(ctx)
	require.NoError(t, err)
	levelsBefore, err := f.svc.StockLevels(ctx)
	require.NoError(t, err)
	nearBefore, err := f.svc.NearExpiryReport(ctx, 60)
	require.NoError(t, err)

	other := newFixture(t)
	feed, cancel, err := other.bus.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	other.addItem(t, "Leftover")
	require.NoError(t, other.svc.Restore(ctx, snapshot))

	levelsAfter, err := other.svc.StockLevels(ctx)
	require.NoError(t, err)
	nearAfter, err := other.svc.NearExpiryReport(ctx, 60)
	require.NoError(t, err)
	assert.Equal(t, levelsBefore, levelsAfter)
	assert.Equal(t, nearBefore, nearAfter)

	_, err = other.svc.CurrentStock(ctx, "Leftover")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	event := <-feed
	assert.Equal(t, models.EventLedgerReplaced, event.Type)
}

func TestRestore_RejectsInconsistentSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Taq")

	bad := &models.Snapshot{
		Items: []*models.Item{{ID: 1, Name: "Taq"}},
		Transactions: []*models.Transaction{
			{ID: 1, ItemID: 2, Direction: models.DirectionIn, Quantity: 1, Date: fixedNow},
		},
	}
	assert.ErrorIs(t, f.svc.Restore(ctx, bad), ledger.ErrValidation)
	assert.ErrorIs(t, f.svc.Restore(ctx, nil), ledger.ErrValidation)

	items, err := f.svc.ListItems(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRecordReceipt_PublishesEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Taq")

	ch, cancel, err := f.bus.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	f.receive(t, "Taq", 4, nil, nil)

	event := <-ch
	assert.Equal(t, models.EventReceiptRecorded, event.Type)
	assert.Equal(t, "Taq", event.Item)
	require.NotNil(t, event.CurrentStock)
	assert.Equal(t, 4, *event.CurrentStock)
}

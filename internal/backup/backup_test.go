package backup

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"inventory-service/internal/ledger"
	"inventory-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	current  *models.Snapshot
	restored *models.Snapshot
}

func (f *fakeStore) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	return f.current, nil
}

func (f *fakeStore) Restore(ctx context.Context, snapshot *models.Snapshot) error {
	f.restored = snapshot
	return nil
}

func sampleSnapshot() *models.Snapshot {
	batch := "L-01"
	expiry := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	return &models.Snapshot{
		Items: []*models.Item{
			{ID: 1, Name: "Taq Polymerase", MinimumStock: 20, CreatedAt: time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)},
		},
		Transactions: []*models.Transaction{
			{
				ID: 1, ItemID: 1, Direction: models.DirectionIn, Quantity: 50,
				Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Counterparty: "Supplier",
				ExpiryDate: &expiry, Batch: &batch, CreatedBy: "admin",
				CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
			},
		},
	}
}

func newManager(t *testing.T, store Store) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "backups"), store, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestManager_CreateAndRestore(t *testing.T) {
	store := &fakeStore{current: sampleSnapshot()}
	m := newManager(t, store)
	m.now = func() time.Time { return time.Date(2025, 3, 10, 14, 5, 9, 0, time.Local) }

	info, err := m.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "inventory_backup_20250310_140509.zip", info.Filename)
	assert.Positive(t, info.Size)

	require.NoError(t, m.Restore(context.Background(), info.Filename))
	require.NotNil(t, store.restored)
	require.Len(t, store.restored.Items, 1)
	assert.Equal(t, "Taq Polymerase", store.restored.Items[0].Name)
	require.Len(t, store.restored.Transactions, 1)
	tx := store.restored.Transactions[0]
	assert.Equal(t, 50, tx.Quantity)
	require.NotNil(t, tx.Batch)
	assert.Equal(t, "L-01", *tx.Batch)
	assert.True(t, tx.ExpiryDate.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)))
}

func TestManager_List(t *testing.T) {
	m := newManager(t, &fakeStore{current: sampleSnapshot()})
	stamps := []time.Time{
		time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local),
		time.Date(2025, 3, 12, 9, 0, 0, 0, time.Local),
		time.Date(2025, 3, 12, 9, 0, 0, 0, time.Local),
	}
	for _, at := range stamps {
		at := at
		m.now = func() time.Time { return at }
		_, err := m.Create(context.Background())
		require.NoError(t, err)
	}

	// archivos ajenos no se listan
	require.NoError(t, os.WriteFile(filepath.Join(m.dir, "notes.txt"), []byte("x"), 0o644))

	backups, err := m.List()
	require.NoError(t, err)
	names := make([]string, 0, len(backups))
	for _, b := range backups {
		names = append(names, b.Filename)
	}
	assert.Equal(t, []string{
		"inventory_backup_20250312_090000_1.zip",
		"inventory_backup_20250312_090000.zip",
		"inventory_backup_20250310_090000.zip",
	}, names)
}

func TestManager_RestoreErrors(t *testing.T) {
	store := &fakeStore{current: sampleSnapshot()}
	m := newManager(t, store)

	corrupt := "inventory_backup_20250101_000000.zip"
	require.NoError(t, os.WriteFile(filepath.Join(m.dir, corrupt), []byte("not a zip"), 0o644))

	incomplete := "inventory_backup_20250102_000000.zip"
	f, err := os.Create(filepath.Join(m.dir, incomplete))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create(itemsEntry)
	require.NoError(t, err)
	_, err = w.Write([]byte("[]"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	testCases := []struct {
		name     string
		filename string
		wantErr  error
	}{
		{name: "Path traversal", filename: "../inventory_backup_20250101_000000.zip", wantErr: ledger.ErrValidation},
		{name: "Foreign name", filename: "dump.zip", wantErr: ledger.ErrValidation},
		{name: "Missing file", filename: "inventory_backup_20240101_000000.zip", wantErr: ledger.ErrNotFound},
		{name: "Corrupt archive", filename: corrupt, wantErr: ledger.ErrValidation},
		{name: "Missing transactions entry", filename: incomplete, wantErr: ledger.ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := m.Restore(context.Background(), tc.filename)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
	assert.Nil(t, store.restored)
}

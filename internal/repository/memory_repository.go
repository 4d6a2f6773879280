package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"inventory-service/internal/ledger"
	"inventory-service/internal/models"
)

// memoryLedgerRepository implementa LedgerRepository en memoria.
// Un único RWMutex serializa las escrituras; las lecturas ven solo
// transacciones ya confirmadas.
type memoryLedgerRepository struct {
	mu         sync.RWMutex
	items      map[int64]*models.Item
	txs        []*models.Transaction
	nextItemID int64
	nextTxID   int64
	now        func() time.Time
}

// NewMemoryLedgerRepository crea un repository en memoria
func NewMemoryLedgerRepository() LedgerRepository {
	return &memoryLedgerRepository{
		items:      make(map[int64]*models.Item),
		nextItemID: 1,
		nextTxID:   1,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryLedgerRepository) CreateItem(ctx context.Context, item *models.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findByName(item.Name) != nil {
		return &ledger.ValidationError{Field: "name", Reason: fmt.Sprintf("item %q already exists", item.Name)}
	}

	item.ID = r.nextItemID
	item.CreatedAt = r.now()
	r.nextItemID++

	stored := *item
	r.items[item.ID] = &stored
	return nil
}

func (r *memoryLedgerRepository) UpdateItem(ctx context.Context, item *models.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[item.ID]
	if !ok {
		return &ledger.NotFoundError{Resource: "item", Key: fmt.Sprintf("%d", item.ID)}
	}
	if other := r.findByName(item.Name); other != nil && other.ID != item.ID {
		return &ledger.ValidationError{Field: "name", Reason: fmt.Sprintf("item %q already exists", item.Name)}
	}

	current.Name = item.Name
	current.Category = item.Category
	current.MinimumStock = item.MinimumStock
	return nil
}

func (r *memoryLedgerRepository) GetItemByName(ctx context.Context, name string) (*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item := r.findByName(name)
	if item == nil {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (r *memoryLedgerRepository) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (r *memoryLedgerRepository) ListItems(ctx context.Context, category *string) ([]*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []*models.Item{}
	for _, item := range r.items {
		if category != nil && item.CategoryName() != *category {
			continue
		}
		copied := *item
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (r *memoryLedgerRepository) ListTransactions(ctx context.Context, filter *models.TransactionFilter) ([]*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filterTransactions(r.txs, filter), nil
}

// WithinItemLock toma el lock de escritura global. Las transacciones creadas
// por fn quedan pendientes y solo se confirman si fn no retorna error.
func (r *memoryLedgerRepository) WithinItemLock(ctx context.Context, itemID int64, fn func(tx LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryLedgerTx{repo: r, nextID: r.nextTxID}
	if err := fn(tx); err != nil {
		return err
	}

	r.txs = append(r.txs, tx.pending...)
	r.nextTxID = tx.nextID
	return nil
}

func (r *memoryLedgerRepository) ReplaceAll(ctx context.Context, items []*models.Item, txs []*models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = make(map[int64]*models.Item, len(items))
	r.txs = make([]*models.Transaction, 0, len(txs))
	r.nextItemID, r.nextTxID = 1, 1

	for _, item := range items {
		copied := *item
		r.items[item.ID] = &copied
		if item.ID >= r.nextItemID {
			r.nextItemID = item.ID + 1
		}
	}
	for _, t := range txs {
		copied := *t
		r.txs = append(r.txs, &copied)
		if t.ID >= r.nextTxID {
			r.nextTxID = t.ID + 1
		}
	}
	sort.SliceStable(r.txs, func(i, j int) bool { return r.txs[i].ID < r.txs[j].ID })
	return nil
}

func (r *memoryLedgerRepository) findByName(name string) *models.Item {
	for _, item := range r.items {
		if item.Name == name {
			return item
		}
	}
	return nil
}

// memoryLedgerTx vista del ledger con las altas pendientes de confirmar
type memoryLedgerTx struct {
	repo    *memoryLedgerRepository
	pending []*models.Transaction
	nextID  int64
}

func (t *memoryLedgerTx) ListTransactions(ctx context.Context, filter *models.TransactionFilter) ([]*models.Transaction, error) {
	all := append(filterTransactions(t.repo.txs, filter), filterTransactions(t.pending, filter)...)
	return all, nil
}

func (t *memoryLedgerTx) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	item, ok := t.repo.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (t *memoryLedgerTx) CreateTransaction(ctx context.Context, tr *models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.repo.items[tr.ItemID]; !ok {
		return &ledger.ValidationError{Field: "item_id", Reason: fmt.Sprintf("unknown item %d", tr.ItemID)}
	}
	tr.ID = t.nextID
	tr.CreatedAt = t.repo.now()
	t.nextID++

	copied := *tr
	t.pending = append(t.pending, &copied)
	return nil
}

func filterTransactions(txs []*models.Transaction, filter *models.TransactionFilter) []*models.Transaction {
	result := []*models.Transaction{}
	for _, t := range txs {
		if filter.Matches(t) {
			copied := *t
			result = append(result, &copied)
		}
	}
	return result
}

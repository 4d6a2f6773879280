package repository

import (
	"context"

	"inventory-service/internal/models"
)

// LedgerRepository define la interfaz de persistencia del ledger.
// Las transacciones solo se agregan dentro de WithinItemLock.
type LedgerRepository interface {
	// Operaciones de items
	CreateItem(ctx context.Context, item *models.Item) error
	UpdateItem(ctx context.Context, item *models.Item) error
	GetItemByName(ctx context.Context, name string) (*models.Item, error)
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	ListItems(ctx context.Context, category *string) ([]*models.Item, error)

	// Lectura del log de transacciones
	ListTransactions(ctx context.Context, filter *models.TransactionFilter) ([]*models.Transaction, error)

	// WithinItemLock ejecuta fn con las mutaciones del item serializadas.
	// Si fn retorna error no se persiste nada.
	WithinItemLock(ctx context.Context, itemID int64, fn func(tx LedgerTx) error) error

	// ReplaceAll reemplaza items y transacciones en bloque (restore, sync)
	ReplaceAll(ctx context.Context, items []*models.Item, txs []*models.Transaction) error
}

// LedgerTx vista del ledger dentro de la sección crítica de un item
type LedgerTx interface {
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	ListTransactions(ctx context.Context, filter *models.TransactionFilter) ([]*models.Transaction, error)
	CreateTransaction(ctx context.Context, t *models.Transaction) error
}

// UserRepository define la interfaz para usuarios
type UserRepository interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
}

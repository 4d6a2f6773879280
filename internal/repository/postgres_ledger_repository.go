package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-service/internal/ledger"
	"inventory-service/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Código de PostgreSQL para violación de restricción UNIQUE
const uniqueViolation = "23505"

const selectTransactions = `
	SELECT id, item_id, direction, quantity, date, counterparty,
		   expiry_date, batch, note, created_by, created_at
	FROM transactions`

// querier cubre *sql.DB y *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// postgresLedgerRepository implementa LedgerRepository sobre PostgreSQL
type postgresLedgerRepository struct {
	db     *sql.DB
	stmts  map[string]*sql.Stmt
	logger *zap.Logger
}

// NewPostgresLedgerRepository crea una nueva instancia del repository
func NewPostgresLedgerRepository(db *sql.DB, logger *zap.Logger) (LedgerRepository, error) {
	repo := &postgresLedgerRepository{
		db:     db,
		stmts:  make(map[string]*sql.Stmt),
		logger: logger,
	}

	if err := repo.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return repo, nil
}

// prepareStatements prepara todas las consultas SQL para mejor rendimiento
func (r *postgresLedgerRepository) prepareStatements() error {
	statements := map[string]string{
		"create_item": `
			INSERT INTO items (name, category, minimum_stock)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`,
		"update_item": `
			UPDATE items
			SET name = $1, category = $2, minimum_stock = $3
			WHERE id = $4
		`,
		"get_item_by_name": `
			SELECT id, name, category, minimum_stock, created_at
			FROM items
			WHERE name = $1
		`,
		"get_item_by_id": `
			SELECT id, name, category, minimum_stock, created_at
			FROM items
			WHERE id = $1
		`,
		"lock_item": `
			SELECT id, name, category, minimum_stock, created_at
			FROM items
			WHERE id = $1
			FOR SHARE
		`,
		"list_items": `
			SELECT id, name, category, minimum_stock, created_at
			FROM items
			WHERE $1::text IS NULL OR category = $1
			ORDER BY name
		`,
		"create_transaction": `
			INSERT INTO transactions
			(item_id, direction, quantity, date, counterparty, expiry_date, batch, note, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at
		`,
	}

	for name, query := range statements {
		stmt, err := r.db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare %s: %w", name, err)
		}
		r.stmts[name] = stmt
	}

	return nil
}

// CreateItem crea un nuevo item. Un nombre duplicado es un error de validación.
func (r *postgresLedgerRepository) CreateItem(ctx context.Context, item *models.Item) error {
	err := r.stmts["create_item"].QueryRowContext(ctx,
		item.Name, nullString(item.Category), item.MinimumStock,
	).Scan(&item.ID, &item.CreatedAt)

	if isUniqueViolation(err) {
		return &ledger.ValidationError{Field: "name", Reason: fmt.Sprintf("item %q already exists", item.Name)}
	}
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// UpdateItem actualiza nombre, categoría y stock mínimo
func (r *postgresLedgerRepository) UpdateItem(ctx context.Context, item *models.Item) error {
	result, err := r.stmts["update_item"].ExecContext(ctx,
		item.Name, nullString(item.Category), item.MinimumStock, item.ID,
	)
	if isUniqueViolation(err) {
		return &ledger.ValidationError{Field: "name", Reason: fmt.Sprintf("item %q already exists", item.Name)}
	}
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return &ledger.NotFoundError{Resource: "item", Key: fmt.Sprintf("%d", item.ID)}
	}

	return nil
}

// GetItemByName obtiene un item por nombre exacto
func (r *postgresLedgerRepository) GetItemByName(ctx context.Context, name string) (*models.Item, error) {
	item, err := scanItem(r.stmts["get_item_by_name"].QueryRowContext(ctx, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// GetItemByID obtiene un item por id
func (r *postgresLedgerRepository) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	item, err := scanItem(r.stmts["get_item_by_id"].QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// ListItems lista items ordenados por nombre, opcionalmente por categoría
func (r *postgresLedgerRepository) ListItems(ctx context.Context, category *string) ([]*models.Item, error) {
	rows, err := r.stmts["list_items"].QueryContext(ctx, nullString(category))
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []*models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// ListTransactions obtiene transacciones con filtros dinámicos
func (r *postgresLedgerRepository) ListTransactions(ctx context.Context, filter *models.TransactionFilter) ([]*models.Transaction, error) {
	return queryTransactions(ctx, r.db, filter)
}

// WithinItemLock abre una transacción SQL con un advisory lock por item.
// El lock se libera al hacer commit o rollback.
func (r *postgresLedgerRepository) WithinItemLock(ctx context.Context, itemID int64, fn func(tx LedgerTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", itemID); err != nil {
		return fmt.Errorf("failed to acquire item lock: %w", err)
	}

	if err := fn(&postgresLedgerTx{tx: tx, repo: r}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceAll reemplaza el contenido de items y transactions en una sola transacción
func (r *postgresLedgerRepository) ReplaceAll(ctx context.Context, items []*models.Item, txs []*models.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "TRUNCATE transactions, items RESTART IDENTITY"); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}

	itemStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (id, name, category, minimum_stock, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer itemStmt.Close()

	for _, item := range items {
		if _, err := itemStmt.ExecContext(ctx,
			item.ID, item.Name, nullString(item.Category), item.MinimumStock, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert item %s: %w", item.Name, err)
		}
	}

	txStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions
		(id, item_id, direction, quantity, date, counterparty, expiry_date, batch, note, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer txStmt.Close()

	for _, t := range txs {
		if _, err := txStmt.ExecContext(ctx,
			t.ID, t.ItemID, string(t.Direction), t.Quantity, t.Date.Format(ledger.DateLayout),
			t.Counterparty, nullDate(t.ExpiryDate), nullString(t.Batch), nullString(t.Note),
			t.CreatedBy, t.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert transaction %d: %w", t.ID, err)
		}
	}

	for _, table := range []string{"items", "transactions"} {
		query := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)",
			table, table)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("Ledger reemplazado",
		zap.Int("items", len(items)),
		zap.Int("transactions", len(txs)))
	return nil
}

// postgresLedgerTx implementa LedgerTx dentro de una transacción SQL
type postgresLedgerTx struct {
	tx   *sql.Tx
	repo *postgresLedgerRepository
}

func (t *postgresLedgerTx) ListTransactions(ctx context.Context, filter *models.TransactionFilter) ([]*models.Transaction, error) {
	return queryTransactions(ctx, t.tx, filter)
}

// GetItemByID lee el item con FOR SHARE: un rename concurrente espera al commit
func (t *postgresLedgerTx) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	stmt := t.tx.StmtContext(ctx, t.repo.stmts["lock_item"])
	item, err := scanItem(stmt.QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock item: %w", err)
	}
	return item, nil
}

func (t *postgresLedgerTx) CreateTransaction(ctx context.Context, tr *models.Transaction) error {
	stmt := t.tx.StmtContext(ctx, t.repo.stmts["create_transaction"])
	err := stmt.QueryRowContext(ctx,
		tr.ItemID, string(tr.Direction), tr.Quantity, tr.Date.Format(ledger.DateLayout), tr.Counterparty,
		nullDate(tr.ExpiryDate), nullString(tr.Batch), nullString(tr.Note), tr.CreatedBy,
	).Scan(&tr.ID, &tr.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// transactionQuery arma la consulta dinámica a partir del filtro
func transactionQuery(filter *models.TransactionFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, value interface{}) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter != nil {
		if filter.ItemID != nil {
			add("item_id = $%d", *filter.ItemID)
		}
		if filter.Direction != nil {
			add("direction = $%d", string(*filter.Direction))
		}
		if filter.DateFrom != nil {
			add("date >= $%d::date", filter.DateFrom.Format(ledger.DateLayout))
		}
		if filter.DateTo != nil {
			add("date <= $%d::date", filter.DateTo.Format(ledger.DateLayout))
		}
	}

	query := selectTransactions
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"
	return query, args
}

func queryTransactions(ctx context.Context, q querier, filter *models.TransactionFilter) ([]*models.Transaction, error) {
	query, args := transactionQuery(filter)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := []*models.Transaction{}
	for rows.Next() {
		var (
			t         models.Transaction
			direction string
			expiry    sql.NullTime
			batch     sql.NullString
			note      sql.NullString
		)
		err := rows.Scan(
			&t.ID, &t.ItemID, &direction, &t.Quantity, &t.Date, &t.Counterparty,
			&expiry, &batch, &note, &t.CreatedBy, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Direction = models.Direction(direction)
		t.Date = ledger.Day(t.Date)
		if expiry.Valid {
			d := ledger.Day(expiry.Time)
			t.ExpiryDate = &d
		}
		t.Batch = stringPtr(batch)
		t.Note = stringPtr(note)
		txs = append(txs, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

// rowScanner cubre *sql.Row y *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var category sql.NullString
	if err := row.Scan(&item.ID, &item.Name, &category, &item.MinimumStock, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.Category = stringPtr(category)
	return &item, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(ledger.DateLayout)
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

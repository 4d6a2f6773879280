package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"inventory-service/internal/ledger"
	"inventory-service/internal/models"
)

// postgresUserRepository implementa UserRepository sobre PostgreSQL
type postgresUserRepository struct {
	db    *sql.DB
	stmts map[string]*sql.Stmt
}

// NewPostgresUserRepository crea una nueva instancia del repository
func NewPostgresUserRepository(db *sql.DB) (UserRepository, error) {
	repo := &postgresUserRepository{
		db:    db,
		stmts: make(map[string]*sql.Stmt),
	}

	statements := map[string]string{
		"get_user": `
			SELECT username, password_hash, created_at
			FROM users
			WHERE username = $1
		`,
		"create_user": `
			INSERT INTO users (username, password_hash)
			VALUES ($1, $2)
			RETURNING created_at
		`,
		"update_password": `
			UPDATE users SET password_hash = $1 WHERE username = $2
		`,
	}

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare %s: %w", name, err)
		}
		repo.stmts[name] = stmt
	}

	return repo, nil
}

// GetUser obtiene un usuario; nil si no existe
func (r *postgresUserRepository) GetUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.stmts["get_user"].QueryRowContext(ctx, username).Scan(
		&user.Username, &user.PasswordHash, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateUser crea un usuario con su hash de contraseña
func (r *postgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	err := r.stmts["create_user"].QueryRowContext(ctx, user.Username, user.PasswordHash).Scan(&user.CreatedAt)
	if isUniqueViolation(err) {
		return &ledger.ValidationError{Field: "username", Reason: "user already exists"}
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdatePassword reemplaza el hash de contraseña
func (r *postgresUserRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	result, err := r.stmts["update_password"].ExecContext(ctx, passwordHash, username)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &ledger.NotFoundError{Resource: "user", Key: username}
	}
	return nil
}

// memoryUserRepository implementa UserRepository en memoria
type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewMemoryUserRepository crea un repository de usuarios en memoria
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]models.User)}
}

func (r *memoryUserRepository) GetUser(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (r *memoryUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Username]; ok {
		return &ledger.ValidationError{Field: "username", Reason: "user already exists"}
	}
	user.CreatedAt = time.Now().UTC()
	r.users[user.Username] = *user
	return nil
}

func (r *memoryUserRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[username]
	if !ok {
		return &ledger.NotFoundError{Resource: "user", Key: username}
	}
	user.PasswordHash = passwordHash
	r.users[username] = user
	return nil
}

package ledger

import (
	"errors"
	"fmt"
)

// Errores base. Los tipos concretos responden a errors.Is con estos valores
// para que los handlers puedan mapearlos a códigos HTTP.
var (
	ErrValidation        = errors.New("validation error")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
	ErrStore             = errors.New("store error")
)

// ValidationError entrada inválida: campo requerido, cantidad no positiva, item desconocido
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InsufficientStockError la salida supera lo disponible para el lote resuelto
type InsufficientStockError struct {
	Item      string
	Batch     string
	Expiry    string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (expiry %s, batch %s): requested %d, available %d",
		e.Item, orNone(e.Expiry), orNone(e.Batch), e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// NotFoundError el item, lote o vencimiento referenciado no tiene entradas en el ledger
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StoreError falla de persistencia. Se propaga sin reintentos.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool { return target == ErrStore }

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStore envuelve err en un StoreError salvo que ya sea un error de dominio
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrStore) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

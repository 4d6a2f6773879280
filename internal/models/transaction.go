package models

import (
	"time"
)

// Direction sentido de un movimiento del ledger
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Valid indica si la dirección es IN u OUT
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Transaction representa la tabla transactions. Las filas son append-only.
type Transaction struct {
	ID           int64      `json:"id" db:"id"`
	ItemID       int64      `json:"item_id" db:"item_id"`
	Direction    Direction  `json:"direction" db:"direction"`
	Quantity     int        `json:"quantity" db:"quantity"`
	Date         time.Time  `json:"date" db:"date"`
	Counterparty string     `json:"counterparty" db:"counterparty"`
	ExpiryDate   *time.Time `json:"expiry_date" db:"expiry_date"`
	Batch        *string    `json:"batch" db:"batch"`
	Note         *string    `json:"note" db:"note"`
	CreatedBy    string     `json:"created_by" db:"created_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Signed retorna la cantidad con signo: positiva para IN, negativa para OUT
func (t *Transaction) Signed() int {
	if t.Direction == DirectionOut {
		return -t.Quantity
	}
	return t.Quantity
}

// TransactionWithItem incluye el nombre y categoría del item
type TransactionWithItem struct {
	Transaction
	ItemName string  `json:"item_name"`
	Category *string `json:"category"`
}

// TransactionFilter filtros para consultas de transacciones
type TransactionFilter struct {
	ItemID    *int64     `json:"item_id,omitempty"`
	Direction *Direction `json:"direction,omitempty"`
	DateFrom  *time.Time `json:"date_from,omitempty"`
	DateTo    *time.Time `json:"date_to,omitempty"`
}

// Matches indica si la transacción cumple el filtro (rango de fechas inclusivo)
func (f *TransactionFilter) Matches(t *Transaction) bool {
	if f == nil {
		return true
	}
	if f.ItemID != nil && t.ItemID != *f.ItemID {
		return false
	}
	if f.Direction != nil && t.Direction != *f.Direction {
		return false
	}
	if f.DateFrom != nil && t.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && t.Date.After(*f.DateTo) {
		return false
	}
	return true
}

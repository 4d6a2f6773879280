package models

import (
	"time"
)

// DefaultMinimumStock umbral de stock mínimo cuando el item no define uno
const DefaultMinimumStock = 20

// Item representa la tabla items
type Item struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Category     *string   `json:"category" db:"category"`
	MinimumStock int       `json:"minimum_stock" db:"minimum_stock"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CategoryName retorna la categoría o cadena vacía si no tiene
func (i *Item) CategoryName() string {
	if i.Category == nil {
		return ""
	}
	return *i.Category
}

// StockLevel stock actual derivado de un item
type StockLevel struct {
	ItemID       int64   `json:"item_id"`
	Name         string  `json:"name"`
	Category     *string `json:"category"`
	MinimumStock int     `json:"minimum_stock"`
	CurrentStock int     `json:"current_stock"`
}

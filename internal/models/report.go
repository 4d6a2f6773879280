package models

import (
	"time"
)

// Lot disponibilidad derivada de una clave (item, vencimiento, lote)
type Lot struct {
	ExpiryDate        *time.Time `json:"expiry_date"`
	Batch             *string    `json:"batch"`
	AvailableQuantity int        `json:"available_quantity"`
}

// LowStockEntry fila del reporte de stock bajo
type LowStockEntry struct {
	ItemID       int64  `json:"item_id"`
	Item         string `json:"item"`
	CurrentStock int    `json:"current_stock"`
	MinimumStock int    `json:"minimum_stock"`
	Shortage     int    `json:"shortage"`
}

// ExpiryEntry fila de los reportes de vencidos y próximos a vencer
type ExpiryEntry struct {
	ItemID       int64     `json:"item_id"`
	Item         string    `json:"item"`
	CurrentStock int       `json:"current_stock"`
	ExpiryDate   time.Time `json:"expiry_date"`
}

// MonthlySummary resumen mensual de movimientos por item
type MonthlySummary struct {
	Month     string  `json:"month"`
	ItemID    int64   `json:"item_id"`
	Item      string  `json:"item"`
	Category  *string `json:"category"`
	StockIn   int     `json:"stock_in"`
	StockOut  int     `json:"stock_out"`
	NetChange int     `json:"net_change"`
}

// Snapshot copia completa de las tablas items y transactions.
// Se usa para export, backup y sincronización remota.
type Snapshot struct {
	Items        []*Item        `json:"items"`
	Transactions []*Transaction `json:"transactions"`
}

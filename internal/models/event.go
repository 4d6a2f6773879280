package models

import "time"

// EventType tipo de evento publicado en el bus del ledger
type EventType string

const (
	EventReceiptRecorded EventType = "receipt_recorded"
	EventIssueRecorded   EventType = "issue_recorded"
	EventLedgerReplaced  EventType = "ledger_replaced"
	EventStockAlert      EventType = "stock_alert"
)

// LedgerEvent evento que se envía a los clientes del stream
type LedgerEvent struct {
	Type         EventType    `json:"type"`
	Transaction  *Transaction `json:"transaction,omitempty"`
	Item         string       `json:"item,omitempty"`
	CurrentStock *int         `json:"current_stock,omitempty"`
	Alert        *StockAlert  `json:"alert,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// StockAlert resumen del escaneo programado de alertas
type StockAlert struct {
	LowStock   []LowStockEntry `json:"low_stock"`
	Expired    []ExpiryEntry   `json:"expired"`
	NearExpiry []ExpiryEntry   `json:"near_expiry"`
}

// Empty indica si el escaneo no encontró nada que reportar
func (a *StockAlert) Empty() bool {
	return len(a.LowStock) == 0 && len(a.Expired) == 0 && len(a.NearExpiry) == 0
}

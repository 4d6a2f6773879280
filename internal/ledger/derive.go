// Package ledger contiene las funciones de derivación del ledger de stock.
//
// Ningún agregado se almacena: stock actual, disponibilidad por lote y estado
// de vencimiento se calculan siempre plegando el log de transacciones. Las
// funciones son puras y no dependen del orden de las transacciones salvo
// donde se indica (resolución de lote y búsqueda).
package ledger

import (
	"sort"
	"time"

	"inventory-service/internal/models"
)

// DefaultNearExpiryDays ventana por defecto del reporte de próximos a vencer
const DefaultNearExpiryDays = 60

// lotKey clave (vencimiento, lote). Ausente y vacío son valores distintos.
type lotKey struct {
	expiry    string
	hasExpiry bool
	batch     string
	hasBatch  bool
}

func keyOf(expiry *time.Time, batch *string) lotKey {
	k := lotKey{}
	if expiry != nil {
		k.expiry = expiry.Format(DateLayout)
		k.hasExpiry = true
	}
	if batch != nil {
		k.batch = *batch
		k.hasBatch = true
	}
	return k
}

type expiryKey struct {
	itemID int64
	expiry string
}

// Balance suma IN menos OUT sin recortar. Puede ser negativo si el ledger
// subyacente fue alterado fuera del motor.
func Balance(txs []*models.Transaction, itemID int64) int {
	total := 0
	for _, t := range txs {
		if t.ItemID == itemID {
			total += t.Signed()
		}
	}
	return total
}

// CurrentStock stock actual del item, recortado a cero para mostrar
func CurrentStock(txs []*models.Transaction, itemID int64) int {
	return clamp(Balance(txs, itemID))
}

// Available suma IN menos OUT restringida a (item, vencimiento, lote)
func Available(txs []*models.Transaction, itemID int64, expiry *time.Time, batch *string) int {
	want := keyOf(expiry, batch)
	total := 0
	for _, t := range txs {
		if t.ItemID == itemID && keyOf(t.ExpiryDate, t.Batch) == want {
			total += t.Signed()
		}
	}
	return total
}

// HasEntries indica si existe alguna transacción para (item, vencimiento, lote)
func HasEntries(txs []*models.Transaction, itemID int64, expiry *time.Time, batch *string) bool {
	want := keyOf(expiry, batch)
	for _, t := range txs {
		if t.ItemID == itemID && keyOf(t.ExpiryDate, t.Batch) == want {
			return true
		}
	}
	return false
}

// Lots agrega todas las claves (vencimiento, lote) del item, incluidas las
// agotadas. Orden: vencimiento ascendente (sin vencimiento al final), lote.
func Lots(txs []*models.Transaction, itemID int64) []models.Lot {
	index := make(map[lotKey]int)
	var lots []models.Lot
	for _, t := range txs {
		if t.ItemID != itemID {
			continue
		}
		k := keyOf(t.ExpiryDate, t.Batch)
		i, ok := index[k]
		if !ok {
			i = len(lots)
			index[k] = i
			lots = append(lots, models.Lot{ExpiryDate: t.ExpiryDate, Batch: t.Batch})
		}
		lots[i].AvailableQuantity += t.Signed()
	}
	sortLots(lots)
	return lots
}

// AvailabilityByExpiry lotes con stock positivo y vencimiento >= hoy,
// ordenados por vencimiento ascendente
func AvailabilityByExpiry(txs []*models.Transaction, itemID int64, today time.Time) []models.Lot {
	today = Day(today)
	result := []models.Lot{}
	for _, lot := range Lots(txs, itemID) {
		if lot.ExpiryDate == nil || lot.AvailableQuantity <= 0 {
			continue
		}
		if lot.ExpiryDate.Before(today) {
			continue
		}
		result = append(result, lot)
	}
	return result
}

// ResolveBatch elige el lote que descuenta una salida sin lote explícito.
// Regla: la entrada IN más antigua (created_at, luego id) para (item,
// vencimiento) cuyo lote aún tiene stock; si ninguno tiene stock, la entrada
// IN más antigua. ok es false si no hay ninguna entrada IN que coincida.
func ResolveBatch(txs []*models.Transaction, itemID int64, expiry *time.Time) (batch *string, ok bool) {
	want := formatOptionalDay(expiry)
	var receipts []*models.Transaction
	for _, t := range txs {
		if t.ItemID != itemID || t.Direction != models.DirectionIn {
			continue
		}
		if (t.ExpiryDate == nil) != (expiry == nil) || formatOptionalDay(t.ExpiryDate) != want {
			continue
		}
		receipts = append(receipts, t)
	}
	if len(receipts) == 0 {
		return nil, false
	}

	sort.SliceStable(receipts, func(i, j int) bool {
		if !receipts[i].CreatedAt.Equal(receipts[j].CreatedAt) {
			return receipts[i].CreatedAt.Before(receipts[j].CreatedAt)
		}
		return receipts[i].ID < receipts[j].ID
	})

	for _, r := range receipts {
		if Available(txs, itemID, expiry, r.Batch) > 0 {
			return r.Batch, true
		}
	}
	return receipts[0].Batch, true
}

// StockLevels stock actual de cada item, ordenado por categoría y nombre
func StockLevels(items []*models.Item, txs []*models.Transaction) []models.StockLevel {
	balances := balancesByItem(txs)
	levels := make([]models.StockLevel, 0, len(items))
	for _, item := range items {
		levels = append(levels, models.StockLevel{
			ItemID:       item.ID,
			Name:         item.Name,
			Category:     item.Category,
			MinimumStock: item.MinimumStock,
			CurrentStock: clamp(balances[item.ID]),
		})
	}
	sort.SliceStable(levels, func(i, j int) bool {
		ci, cj := derefOr(levels[i].Category), derefOr(levels[j].Category)
		if ci != cj {
			return ci < cj
		}
		return levels[i].Name < levels[j].Name
	})
	return levels
}

// LowStock items con stock actual menor al mínimo, por faltante descendente
func LowStock(items []*models.Item, txs []*models.Transaction) []models.LowStockEntry {
	balances := balancesByItem(txs)
	result := []models.LowStockEntry{}
	for _, item := range items {
		current := clamp(balances[item.ID])
		if current >= item.MinimumStock {
			continue
		}
		result = append(result, models.LowStockEntry{
			ItemID:       item.ID,
			Item:         item.Name,
			CurrentStock: current,
			MinimumStock: item.MinimumStock,
			Shortage:     item.MinimumStock - current,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Shortage != result[j].Shortage {
			return result[i].Shortage > result[j].Shortage
		}
		return result[i].Item < result[j].Item
	})
	return result
}

// Expired grupos (item, vencimiento) con stock positivo ya vencidos,
// el vencimiento más reciente primero
func Expired(items []*models.Item, txs []*models.Transaction, today time.Time) []models.ExpiryEntry {
	today = Day(today)
	result := []models.ExpiryEntry{}
	for _, e := range expiryGroups(items, txs) {
		if e.ExpiryDate.Before(today) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].ExpiryDate.Equal(result[j].ExpiryDate) {
			return result[i].ExpiryDate.After(result[j].ExpiryDate)
		}
		return result[i].Item < result[j].Item
	})
	return result
}

// NearExpiry grupos (item, vencimiento) con stock positivo que vencen dentro
// de windowDays días, hoy incluido. Disjunto de Expired.
func NearExpiry(items []*models.Item, txs []*models.Transaction, today time.Time, windowDays int) []models.ExpiryEntry {
	today = Day(today)
	result := []models.ExpiryEntry{}
	for _, e := range expiryGroups(items, txs) {
		days := DaysBetween(today, e.ExpiryDate)
		if days >= 0 && days <= windowDays {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].ExpiryDate.Equal(result[j].ExpiryDate) {
			return result[i].ExpiryDate.Before(result[j].ExpiryDate)
		}
		return result[i].Item < result[j].Item
	})
	return result
}

// MonthlySummary agrupa por mes de calendario e item. Orden: mes descendente,
// categoría, nombre.
func MonthlySummary(items []*models.Item, txs []*models.Transaction) []models.MonthlySummary {
	byID := itemsByID(items)
	type monthKey struct {
		month  string
		itemID int64
	}
	index := make(map[monthKey]int)
	var rows []models.MonthlySummary
	for _, t := range txs {
		item, ok := byID[t.ItemID]
		if !ok {
			continue
		}
		k := monthKey{month: t.Date.Format(MonthLayout), itemID: t.ItemID}
		i, seen := index[k]
		if !seen {
			i = len(rows)
			index[k] = i
			rows = append(rows, models.MonthlySummary{
				Month:    k.month,
				ItemID:   item.ID,
				Item:     item.Name,
				Category: item.Category,
			})
		}
		if t.Direction == models.DirectionIn {
			rows[i].StockIn += t.Quantity
		} else {
			rows[i].StockOut += t.Quantity
		}
		rows[i].NetChange += t.Signed()
	}
	if rows == nil {
		rows = []models.MonthlySummary{}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Month != rows[j].Month {
			return rows[i].Month > rows[j].Month
		}
		ci, cj := derefOr(rows[i].Category), derefOr(rows[j].Category)
		if ci != cj {
			return ci < cj
		}
		return rows[i].Item < rows[j].Item
	})
	return rows
}

// Search filtra transacciones y las ordena por fecha y creación, ambas
// descendentes
func Search(txs []*models.Transaction, filter *models.TransactionFilter) []*models.Transaction {
	result := []*models.Transaction{}
	for _, t := range txs {
		if filter.Matches(t) {
			result = append(result, t)
		}
	}
	SortRecentFirst(result)
	return result
}

// SortRecentFirst ordena por fecha, created_at e id, todos descendentes
func SortRecentFirst(txs []*models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func expiryGroups(items []*models.Item, txs []*models.Transaction) []models.ExpiryEntry {
	byID := itemsByID(items)
	index := make(map[expiryKey]int)
	var groups []models.ExpiryEntry
	for _, t := range txs {
		if t.ExpiryDate == nil {
			continue
		}
		item, ok := byID[t.ItemID]
		if !ok {
			continue
		}
		k := expiryKey{itemID: t.ItemID, expiry: t.ExpiryDate.Format(DateLayout)}
		i, seen := index[k]
		if !seen {
			i = len(groups)
			index[k] = i
			groups = append(groups, models.ExpiryEntry{
				ItemID:     item.ID,
				Item:       item.Name,
				ExpiryDate: Day(*t.ExpiryDate),
			})
		}
		groups[i].CurrentStock += t.Signed()
	}

	positive := groups[:0]
	for _, g := range groups {
		if g.CurrentStock > 0 {
			positive = append(positive, g)
		}
	}
	return positive
}

func balancesByItem(txs []*models.Transaction) map[int64]int {
	balances := make(map[int64]int)
	for _, t := range txs {
		balances[t.ItemID] += t.Signed()
	}
	return balances
}

func itemsByID(items []*models.Item) map[int64]*models.Item {
	byID := make(map[int64]*models.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return byID
}

func sortLots(lots []models.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if (a.ExpiryDate == nil) != (b.ExpiryDate == nil) {
			return b.ExpiryDate == nil
		}
		if a.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate) {
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		return derefOr(a.Batch) < derefOr(b.Batch)
	})
}

func derefOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

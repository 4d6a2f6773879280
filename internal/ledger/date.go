package ledger

import (
	"fmt"
	"time"
)

// DateLayout formato de fecha de calendario usado en la API y el almacenamiento
const DateLayout = "2006-01-02"

// MonthLayout formato del mes en el resumen mensual
const MonthLayout = "2006-01"

// Day normaliza t a la medianoche UTC de su fecha de calendario
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay interpreta una fecha YYYY-MM-DD
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ParseOptionalDay interpreta una fecha opcional; nil o vacío equivale a ausente
func ParseOptionalDay(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := ParseDay(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DaysBetween días de calendario entre from y to (to - from)
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

func formatOptionalDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

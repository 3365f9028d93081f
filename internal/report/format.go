package report

// format.go applies the column rules the supplier's importer expects:
//   - SKU, COR FORNECEDOR and QUANTIDADE VENDIDA leave as integers; nulls become 0
//   - CNPJ FILIAL leaves as digits only ('.', '/' and '-' stripped)
//
// Every other column passes through untouched.

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// taxIDPunctuation strips the separators of a formatted CNPJ (12.345.678/0001-99).
var taxIDPunctuation = strings.NewReplacer(".", "", "/", "", "-", "")

// CoercionError reports a cell that could not be converted to an integer.
type CoercionError struct {
	Column string
	Row    int // 1-based
	Value  any
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("row %d, column %q: cannot convert %v (%T) to integer", e.Row, e.Column, e.Value, e.Value)
}

// FormatStats records what Format changed.
type FormatStats struct {
	// NullsCoerced counts, per integer column, the null cells replaced by 0.
	NullsCoerced map[string]int
}

// TotalNulls returns the number of null cells replaced across all columns.
func (s FormatStats) TotalNulls() int {
	total := 0
	for _, n := range s.NullsCoerced {
		total += n
	}
	return total
}

// Format rewrites t in place. It fails on the first cell that cannot be
// coerced; the table is then partially formatted and must be discarded.
func Format(t *Table) (FormatStats, error) {
	stats := FormatStats{NullsCoerced: make(map[string]int, len(IntegerColumns))}

	for _, col := range IntegerColumns {
		idx, err := t.Index(col)
		if err != nil {
			return stats, err
		}
		for r, row := range t.Rows {
			if row[idx] == nil {
				stats.NullsCoerced[col]++
				row[idx] = int64(0)
				continue
			}
			n, err := CoerceInt(row[idx])
			if err != nil {
				return stats, &CoercionError{Column: col, Row: r + 1, Value: row[idx]}
			}
			row[idx] = n
		}
	}

	idx, err := t.Index(ColBranchTaxID)
	if err != nil {
		return stats, err
	}
	for _, row := range t.Rows {
		row[idx] = StripTaxID(cellText(row[idx]))
	}

	return stats, nil
}

// CoerceInt converts a non-null cell to int64. Floats and decimals are
// truncated toward zero; strings must hold an integer literal.
func CoerceInt(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("non-finite value %v", x)
		}
		return int64(x), nil
	case decimal.Decimal:
		return x.IntPart(), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// StripTaxID removes '.', '/' and '-' and keeps every other character in order.
func StripTaxID(s string) string {
	return taxIDPunctuation.Replace(s)
}

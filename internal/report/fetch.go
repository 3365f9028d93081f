package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/salesfeed/internal/database"
)

// decimalTypes are database type names whose values drivers hand back as text.
var decimalTypes = map[string]bool{
	"DECIMAL":    true,
	"NUMERIC":    true,
	"MONEY":      true,
	"SMALLMONEY": true,
}

// Fetcher runs the sales query and materializes its result.
type Fetcher struct {
	db      *sqlx.DB
	dialect database.Dialect
}

// NewFetcher creates a fetcher for an open connection.
func NewFetcher(db *sqlx.DB, dialect database.Dialect) *Fetcher {
	return &Fetcher{db: db, dialect: dialect}
}

// Fetch returns yesterday's sales as a Table. DATA VENDA is set to saleDate on
// every row. An empty result is not an error.
func (f *Fetcher) Fetch(ctx context.Context, saleDate time.Time) (*Table, error) {
	query, err := SalesQuery(f.dialect)
	if err != nil {
		return nil, err
	}

	rows, err := f.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	if err := checkColumns(cols); err != nil {
		return nil, fmt.Errorf("sales query: %w", err)
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}
	isDecimal := make([]bool, len(types))
	for i, ct := range types {
		isDecimal[i] = decimalTypes[strings.ToUpper(ct.DatabaseTypeName())]
	}

	dateIdx := indexOf(cols, ColSaleDate)
	stamp := FormatDate(saleDate)

	table := NewTable()
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan row %d: %w", table.Len()+1, err)
		}
		for i, v := range values {
			cell, err := normalizeCell(v, isDecimal[i])
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", table.Len()+1, cols[i], err)
			}
			values[i] = cell
		}
		values[dateIdx] = stamp
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales rows: %w", err)
	}

	return table, nil
}

// normalizeCell turns driver values into the cell types the formatter and
// packager understand. Text is forced to valid UTF-8 and decimal-typed text
// becomes decimal.Decimal.
func normalizeCell(v any, isDecimal bool) (any, error) {
	switch x := v.(type) {
	case []byte:
		return normalizeText(string(x), isDecimal)
	case string:
		return normalizeText(x, isDecimal)
	case float32:
		return float64(x), nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	default:
		return v, nil
	}
}

func normalizeText(s string, isDecimal bool) (any, error) {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if !isDecimal {
		return s, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d, nil
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}

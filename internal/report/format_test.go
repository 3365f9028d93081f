package report

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// row builds a table row in output column order.
func row(sku, model, color, colorName, size, date, cnpj, qty, value any) []any {
	return []any{sku, model, color, colorName, size, date, cnpj, qty, value}
}

func TestCoerceInt(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    int64
		wantErr bool
	}{
		{"int64", int64(301), 301, false},
		{"int", 60, 60, false},
		{"int32", int32(25), 25, false},
		{"uint8", uint8(7), 7, false},
		{"float truncates", 25.9, 25, false},
		{"negative float truncates toward zero", -3.7, -3, false},
		{"decimal", decimal.RequireFromString("12.00"), 12, false},
		{"bool true", true, 1, false},
		{"string integer", "301", 301, false},
		{"string with spaces", "  42 ", 42, false},
		{"bytes integer", []byte("65"), 65, false},
		{"string decimal rejected", "12.5", 0, true},
		{"empty string rejected", "", 0, true},
		{"text rejected", "abc", 0, true},
		{"NaN rejected", math.NaN(), 0, true},
		{"uint64 overflow", uint64(math.MaxUint64), 0, true},
		{"unsupported type", struct{}{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceInt(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripTaxID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"12.345.678/0001-99", "12345678000199"},
		{"12345678000199", "12345678000199"},
		{"", ""},
		{"./-", ""},
		{"AB.12/x-3", "AB12x3"},
		{"12 345", "12 345"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StripTaxID(tt.input), "StripTaxID(%q)", tt.input)
	}
}

func TestStripTaxID_PreservesOtherCharacters(t *testing.T) {
	inputs := []string{"12.345.678/0001-99", "a-b-c", "ção/.-ñ", "--..//", "9"}
	for _, in := range inputs {
		out := StripTaxID(in)
		assert.False(t, strings.ContainsAny(out, "./-"), "output %q still has punctuation", out)

		var kept []rune
		for _, r := range in {
			if r != '.' && r != '/' && r != '-' {
				kept = append(kept, r)
			}
		}
		assert.Equal(t, string(kept), out)
	}
}

func TestFormat(t *testing.T) {
	table := NewTable()
	table.Rows = [][]any{
		row(int64(301), "Camiseta Básica", int64(60), "Rosa", "M", "01032024", "12.345.678/0001-99", int64(25), 89.9),
		row(nil, "Calça Jeans", nil, "", "G", "01032024", int64(98765432000188), nil, decimal.RequireFromString("129.50")),
		row("303", "Tênis", 70.0, "Laranja", "P", "01032024", nil, "8", "45.99"),
	}

	stats, err := Format(table)
	require.NoError(t, err)

	assert.Equal(t, row(int64(301), "Camiseta Básica", int64(60), "Rosa", "M", "01032024", "12345678000199", int64(25), 89.9), table.Rows[0])

	r1 := table.Rows[1]
	assert.Equal(t, int64(0), r1[0])
	assert.Equal(t, int64(0), r1[2])
	assert.Equal(t, int64(0), r1[7])
	assert.Equal(t, "98765432000188", r1[6])
	assert.Equal(t, decimal.RequireFromString("129.50"), r1[8], "value column must not be touched")

	r2 := table.Rows[2]
	assert.Equal(t, int64(303), r2[0])
	assert.Equal(t, int64(70), r2[2])
	assert.Equal(t, "", r2[6])
	assert.Equal(t, int64(8), r2[7])
	assert.Equal(t, "45.99", r2[8])

	assert.Equal(t, map[string]int{ColSKU: 1, ColColorCode: 1, ColQuantitySold: 1}, stats.NullsCoerced)
	assert.Equal(t, 3, stats.TotalNulls())
}

func TestFormat_NumericTaxIDHasNoFraction(t *testing.T) {
	table := NewTable()
	table.Rows = [][]any{
		row(int64(1), "m", int64(1), "c", "s", "d", 12345678000199.0, int64(1), 1.0),
	}

	_, err := Format(table)
	require.NoError(t, err)
	assert.Equal(t, "12345678000199", table.Rows[0][6])
}

func TestFormat_IntegerColumnsAlwaysInt64(t *testing.T) {
	table := NewTable()
	inputs := []any{nil, int64(1), 2, int32(3), 4.0, "5", []byte("6"), decimal.NewFromInt(7), false}
	for _, v := range inputs {
		table.Rows = append(table.Rows, row(v, "m", v, "c", "s", "d", "x", v, "1"))
	}

	_, err := Format(table)
	require.NoError(t, err)

	for _, r := range table.Rows {
		for _, col := range IntegerColumns {
			idx, err := table.Index(col)
			require.NoError(t, err)
			assert.IsType(t, int64(0), r[idx])
		}
	}
}

func TestFormat_CoercionError(t *testing.T) {
	table := NewTable()
	table.Rows = [][]any{
		row(int64(1), "m", int64(1), "c", "s", "d", "x", int64(1), "1"),
		row(int64(2), "m", int64(1), "c", "s", "d", "x", "muitos", "1"),
	}

	_, err := Format(table)
	require.Error(t, err)

	var ce *CoercionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ColQuantitySold, ce.Column)
	assert.Equal(t, 2, ce.Row)
	assert.Equal(t, "muitos", ce.Value)
}

func TestFormat_MissingColumn(t *testing.T) {
	table := &Table{Columns: []string{ColSKU}, Rows: [][]any{{int64(1)}}}

	_, err := Format(table)
	assert.Error(t, err)
}

func TestFormat_EmptyTable(t *testing.T) {
	stats, err := Format(NewTable())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalNulls())
}

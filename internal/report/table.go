// Package report builds the daily supplier sales file.
//
// The flow is Fetch → Format → EncodeCSV. A Table is materialized once per run
// from the source query, mutated in place by Format, then serialized.
//
// # Columns
//
// The output has exactly nine columns, in this order, with these names:
//
//	SKU; MODELO FORNECEDOR; COR FORNECEDOR; COR; TAMANHO; DATA VENDA;
//	CNPJ FILIAL; QUANTIDADE VENDIDA; VALOR VENDA
//
// The supplier's importer matches on exact names, so they are case-sensitive
// and keep their spaces.
package report

import "fmt"

// Column names as sent to the supplier.
const (
	ColSKU          = "SKU"
	ColModel        = "MODELO FORNECEDOR"
	ColColorCode    = "COR FORNECEDOR"
	ColColorName    = "COR"
	ColSize         = "TAMANHO"
	ColSaleDate     = "DATA VENDA"
	ColBranchTaxID  = "CNPJ FILIAL"
	ColQuantitySold = "QUANTIDADE VENDIDA"
	ColSaleValue    = "VALOR VENDA"
)

// Columns is the fixed output order.
var Columns = []string{
	ColSKU,
	ColModel,
	ColColorCode,
	ColColorName,
	ColSize,
	ColSaleDate,
	ColBranchTaxID,
	ColQuantitySold,
	ColSaleValue,
}

// IntegerColumns hold identifiers and counts that must leave as integers.
var IntegerColumns = []string{ColSKU, ColColorCode, ColQuantitySold}

// Table is an in-memory result set. Rows keep the order the source returned.
type Table struct {
	Columns []string
	Rows    [][]any
}

// NewTable returns an empty table with the fixed columns.
func NewTable() *Table {
	cols := make([]string, len(Columns))
	copy(cols, Columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the named column. Names are matched exactly.
func (t *Table) Index(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("column not found: %q", name)
}

// checkColumns verifies got matches the fixed column set, name for name.
func checkColumns(got []string) error {
	if len(got) != len(Columns) {
		return fmt.Errorf("unexpected column count: got %d (%v), want %d", len(got), got, len(Columns))
	}
	for i, name := range Columns {
		if got[i] != name {
			return fmt.Errorf("unexpected column %d: got %q, want %q", i+1, got[i], name)
		}
	}
	return nil
}

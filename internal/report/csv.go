package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Delimiter separates CSV fields.
const Delimiter = ';'

// Encoding is the character set of the produced file.
type Encoding struct {
	Name string
	enc  encoding.Encoding // nil for UTF-8
}

// UTF8 is the default output encoding.
var UTF8 = Encoding{Name: "utf-8"}

// ParseEncoding maps a REPORT_ENCODING value to an Encoding.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "iso-8859-1", "latin1":
		return Encoding{Name: "iso-8859-1", enc: charmap.ISO8859_1}, nil
	case "windows-1252", "cp1252":
		return Encoding{Name: "windows-1252", enc: charmap.Windows1252}, nil
	default:
		return Encoding{}, fmt.Errorf("unsupported encoding %q", name)
	}
}

// EncodeCSV serializes t: header row first, then one line per row, fields
// separated by ';', lines ending in '\n'. A field is quoted only when it
// contains the delimiter, a double quote or a line break; leading spaces are
// written as-is. The same table always yields the same bytes.
func EncodeCSV(t *Table, enc Encoding) ([]byte, error) {
	var buf bytes.Buffer

	writeRecord(&buf, t.Columns)

	record := make([]string, len(t.Columns))
	for r, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", r+1, len(row), len(t.Columns))
		}
		for i, v := range row {
			record[i] = renderCell(v)
		}
		writeRecord(&buf, record)
	}

	if enc.enc == nil {
		return buf.Bytes(), nil
	}

	out, _, err := transform.Bytes(enc.enc.NewEncoder(), buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("encode csv as %s: %w", enc.Name, err)
	}
	return out, nil
}

func writeRecord(buf *bytes.Buffer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			buf.WriteRune(Delimiter)
		}
		if !needsQuotes(field) {
			buf.WriteString(field)
			continue
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}

func needsQuotes(field string) bool {
	return strings.ContainsRune(field, Delimiter) || strings.ContainsAny(field, "\"\r\n")
}

// renderCell formats a cell for output. Floats and decimals use their
// shortest exact form and always keep a fractional part
// (89.90 → 89.9, 75.00 → 75.0).
func renderCell(v any) string {
	switch v.(type) {
	case float64, float32, decimal.Decimal:
		return withFraction(cellText(v))
	default:
		return cellText(v)
	}
}

// withFraction appends ".0" to an integral number rendering.
func withFraction(s string) string {
	if strings.ContainsAny(s, ".eEIN") {
		return s
	}
	return s + ".0"
}

// cellText renders a cell as plain text, numbers in their shortest form.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case decimal.Decimal:
		return x.String()
	case bool:
		if x {
			return "True"
		}
		return "False"
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

package report

import "time"

// DateLayout is ddMMyyyy, used in the file name and in DATA VENDA.
const DateLayout = "02012006"

// FilePrefix and FileExt frame the daily file name.
const (
	FilePrefix = "VENDAS_"
	FileExt    = ".csv"
)

// Yesterday returns the calendar day before now, in loc, at midnight.
// A nil loc means time.Local.
func Yesterday(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day()-1, 0, 0, 0, 0, loc)
}

// FormatDate renders d as ddMMyyyy.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// FileName returns the report file name for the given sale date,
// e.g. VENDAS_01032024.csv.
func FileName(saleDate time.Time) string {
	return FilePrefix + FormatDate(saleDate) + FileExt
}

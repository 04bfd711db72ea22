// Package grid models a worksheet as a rectangular table of typed cells
// and provides sources that read such tables from workbooks.
package grid

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Kind is the type of a cell value.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindDate // native date or date-time
	KindTime // native time of day
	KindBool
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindBool:
		return "bool"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Cell is one typed spreadsheet value. Only the field matching Kind is
// meaningful.
type Cell struct {
	Kind   Kind
	Text   string    // KindText, KindError
	Number float64   // KindNumber
	Time   time.Time // KindDate, KindTime (clock part only for KindTime)
	Bool   bool      // KindBool
}

func Empty() Cell { return Cell{} }
func Text(s string) Cell { return Cell{Kind: KindText, Text: s} }
func Number(f float64) Cell { return Cell{Kind: KindNumber, Number: f} }
func Bool(b bool) Cell { return Cell{Kind: KindBool, Bool: b} }
func DateTime(t time.Time) Cell { return Cell{Kind: KindDate, Time: t} }
func ErrorValue(s string) Cell { return Cell{Kind: KindError, Text: s} }
func Date(y int, m time.Month, d int) Cell {
	return DateTime(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// Clock is a native time-of-day cell.
func Clock(hour, minute int) Cell {
	return Cell{Kind: KindTime, Time: time.Date(1899, 12, 30, hour, minute, 0, 0, time.UTC)}
}

// IsBlank reports whether the cell is empty or holds only whitespace.
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case KindEmpty:
		return true
	case KindText:
		return strings.TrimSpace(c.Text) == ""
	default:
		return false
	}
}

// String renders the cell the way it would appear in a sheet. It is used
// for token scanning and diagnostics.
func (c Cell) String() string {
	switch c.Kind {
	case KindText, KindError:
		return c.Text
	case KindNumber:
		return FormatNumber(c.Number)
	case KindDate:
		if c.Time.Hour() == 0 && c.Time.Minute() == 0 && c.Time.Second() == 0 {
			return c.Time.Format("02.01.06")
		}
		return c.Time.Format("02.01.06 15:04")
	case KindTime:
		return c.Time.Format("15:04")
	case KindBool:
		if c.Bool {
			return "TRUE"
		}
		return "FALSE"
	default:
		return ""
	}
}

// FormatNumber renders a float without trailing zeros, so scene 3.0 reads
// "3" and scene 3.5 reads "3.5".
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Sheet is one worksheet. Rows keep the length the source gave them;
// a missing cell reads as empty through Cell.
type Sheet struct {
	File  string
	Index int
	Name  string
	Rows  [][]Cell
}

func NewSheet(file string, index int, name string, rows [][]Cell) *Sheet {
	return &Sheet{File: file, Index: index, Name: name, Rows: rows}
}

// Width is the length of the widest row.
func (s *Sheet) Width() int {
	width := 0
	for _, r := range s.Rows {
		width = max(width, len(r))
	}
	return width
}

// Cell returns the cell at zero-based (y, x), or an empty cell outside
// the row.
func (s *Sheet) Cell(y, x int) Cell {
	if y < 0 || y >= len(s.Rows) || x < 0 || x >= len(s.Rows[y]) {
		return Empty()
	}
	return s.Rows[y][x]
}

// PadRows extends every row shorter than width with empty cells.
func PadRows(rows [][]Cell, width int) [][]Cell {
	out := make([][]Cell, len(rows))
	for i, r := range rows {
		if len(r) >= width {
			out[i] = r
			continue
		}
		row := make([]Cell, width)
		copy(row, r)
		out[i] = row
	}
	return out
}

// Source hands back a worksheet of a workbook by position.
type Source interface {
	ReadSheet(ctx context.Context, path string, index int) (*Sheet, error)
}

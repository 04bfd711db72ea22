package grid

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	appLog "rehearsalcal/internal/log"
	"rehearsalcal/internal/model"
)

// Built-in number formats (ECMA-376 18.8.30) that denote dates or times.
var (
	builtinDateFormats = map[int]bool{
		14: true, 15: true, 16: true, 17: true, 22: true,
		27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
		50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
	}
	builtinTimeFormats = map[int]bool{
		18: true, 19: true, 20: true, 21: true, 45: true, 46: true, 47: true,
	}
)

// ExcelSource reads .xlsx workbooks. Number cells formatted as dates or
// times are returned as KindDate / KindTime cells.
type ExcelSource struct{}

func NewExcelSource() *ExcelSource {
	return &ExcelSource{}
}

func (s *ExcelSource) ReadSheet(ctx context.Context, path string, index int) (*Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &model.IOError{Op: "open workbook", Path: path, Err: err}
	}
	defer f.Close()

	names := f.GetSheetList()
	if index < 0 || index >= len(names) {
		return nil, &model.IOError{
			Op:   "read sheet",
			Path: path,
			Err:  fmt.Errorf("cannot find sheet number %d (workbook has %d sheets)", index, len(names)),
		}
	}
	name := names[index]

	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &model.IOError{Op: "read sheet " + name, Path: path, Err: err}
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	r := cellReader{f: f, sheet: name, date1904: date1904, styles: make(map[int]Kind)}
	rows := make([][]Cell, len(raw))
	for y, values := range raw {
		row := make([]Cell, len(values))
		for x, v := range values {
			row[x] = r.cell(x, y, v)
		}
		rows[y] = row
	}

	// GetRows drops trailing empty cells; restore them up to the used range
	// so only rows that are short in the file itself stay short.
	width := usedWidth(f, name)
	rows = PadRows(rows, width)

	appLog.Debug("sheet read", "path", path, "sheet", name, "index", index, "rows", len(rows), "width", width)
	return NewSheet(path, index, name, rows), nil
}

// usedWidth is the column count of the sheet's dimension reference
// ("A1:E40"). It is 0 when the workbook does not record one.
func usedWidth(f *excelize.File, sheet string) int {
	dim, err := f.GetSheetDimension(sheet)
	if err != nil || dim == "" {
		return 0
	}
	last := dim
	if i := strings.LastIndexByte(dim, ':'); i >= 0 {
		last = dim[i+1:]
	}
	col, _, err := excelize.CellNameToCoordinates(last)
	if err != nil {
		return 0
	}
	return col
}

type cellReader struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	// styles caches the number-format classification per style index.
	styles map[int]Kind
}

func (r *cellReader) cell(x, y int, raw string) Cell {
	if raw == "" {
		return Empty()
	}
	axis, err := excelize.CoordinatesToCellName(x+1, y+1)
	if err != nil {
		return Text(raw)
	}
	typ, err := r.f.GetCellType(r.sheet, axis)
	if err != nil {
		return Text(raw)
	}

	switch typ {
	case excelize.CellTypeBool:
		return Bool(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeError:
		return ErrorValue(raw)
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return Text(raw)
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return DateTime(t)
			}
		}
		return Text(raw)
	}

	// Unset, number and formula cells: numeric if the value parses.
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Text(raw)
	}
	switch r.numberKind(axis) {
	case KindDate:
		if t, err := excelize.ExcelDateToTime(f, r.date1904); err == nil {
			return DateTime(t)
		}
	case KindTime:
		if t, err := excelize.ExcelDateToTime(f, r.date1904); err == nil {
			return Clock(t.Hour(), t.Minute())
		}
	}
	return Number(f)
}

// numberKind classifies the cell's number format as date, time or plain
// number.
func (r *cellReader) numberKind(axis string) Kind {
	idx, err := r.f.GetCellStyle(r.sheet, axis)
	if err != nil {
		return KindNumber
	}
	if k, ok := r.styles[idx]; ok {
		return k
	}

	kind := KindNumber
	if style, err := r.f.GetStyle(idx); err == nil && style != nil {
		switch {
		case builtinDateFormats[style.NumFmt]:
			kind = KindDate
		case builtinTimeFormats[style.NumFmt]:
			kind = KindTime
		case style.CustomNumFmt != nil:
			kind = classifyFormat(*style.CustomNumFmt)
		}
	}
	r.styles[idx] = kind
	return kind
}

// classifyFormat inspects a custom number format code such as
// "dd.mm.yy" or "hh:mm".
func classifyFormat(code string) Kind {
	// Drop quoted literals and bracketed sections ([Red], [$-407]).
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, ch := range strings.ToLower(code) {
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(ch)
		}
	}
	c := b.String()

	hasDate := strings.ContainsAny(c, "dy")
	hasTime := strings.ContainsAny(c, "hs")
	switch {
	case hasDate:
		return KindDate
	case hasTime:
		return KindTime
	default:
		return KindNumber
	}
}

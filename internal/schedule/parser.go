// Package schedule parses the rehearsal schedule sheet into Occasions.
//
// Sheet layout (1-based columns):
//
//	row 1:      col 2 = default location, col 4 = mandatory silent-play cutoff date (optional)
//	...         ignored until a row whose col 1 reads "Datum"
//	data rows:  date | time(s) | scenes | room | note
//
// Dates are carried forward from the previous row when a date cell holds
// no date token, and open stop times are closed with the start time of
// the next row on the same date.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rehearsalcal/internal/grid"
	appLog "rehearsalcal/internal/log"
	"rehearsalcal/internal/model"
)

// DataMarker is the column-1 text of the row that precedes the data rows.
const DataMarker = "Datum"

// Zero-based column positions.
const (
	colDate = iota
	colTime
	colScenes
	colRoom
	colNote
	dataColumns

	headerLocationCol = 1
	headerCutoffCol   = 3
)

const (
	expectedDate  = "date 'D.M.YY' or 'DD.MM.YY'"
	expectedTime  = "time 'HH:MM' or 'HH:MM-HH:MM'"
	expectedScene = "scene list or label text"
)

var (
	// dateToken finds the first D.M.YY / DD.MM.YY token in free text such
	// as "Mo. 3.1.22".
	dateToken = regexp.MustCompile(`(?:^|\D)(\d{1,2})\.(\d{1,2})\.(\d{2})(?:$|\D)`)
	// longYearDate catches D.M.YYYY, which dateToken does not accept.
	longYearDate = regexp.MustCompile(`(?:^|\D)\d{1,2}\.\d{1,2}\.\d{4}(?:$|\D)`)
	// timeRange accepts "HH:MM" or "HH:MM-HH:MM" with a hyphen or en dash.
	timeRange = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?:\s*[-–]\s*(\d{1,2}):(\d{2}))?$`)
)

// Table is a parsed schedule sheet.
type Table struct {
	Facts     model.SheetFacts
	Occasions []*model.Occasion
}

// draft is a parsed row before stop-time backfill and identity.
type draft struct {
	row    int
	date   time.Time
	start  model.Clock
	stop   *model.Clock
	scenes model.Scenes
	room   string
	note   string
}

type parser struct {
	sheet *grid.Sheet
}

// Parse reads the header facts and all data rows of a schedule sheet. It
// stops at the first error and returns no partial table.
func Parse(sheet *grid.Sheet) (*Table, error) {
	p := &parser{sheet: sheet}

	facts, err := p.header()
	if err != nil {
		return nil, err
	}

	drafts, err := p.rows()
	if err != nil {
		return nil, err
	}
	backfillStops(drafts)

	occasions := make([]*model.Occasion, 0, len(drafts))
	for _, d := range drafts {
		o, err := model.NewOccasion(model.OccasionSpec{
			Date:   d.date,
			Start:  d.start,
			Stop:   d.stop,
			Scenes: d.scenes,
			Room:   d.room,
			Note:   d.note,
			Row:    d.row,
		})
		if err != nil {
			return nil, p.tokenErr(d.row-1, colTime, expectedTime, d.start.String())
		}
		occasions = append(occasions, o)
	}

	appLog.Info("schedule parsed",
		"file", sheet.File,
		"sheet", sheet.Name,
		"occasions", len(occasions),
		"location", facts.DefaultLocation,
		"cutoff", formatCutoff(facts.Cutoff),
	)
	return &Table{Facts: facts, Occasions: occasions}, nil
}

func (p *parser) header() (model.SheetFacts, error) {
	var facts model.SheetFacts
	if len(p.sheet.Rows) == 0 {
		return facts, p.rowErr(0, "sheet is empty, header row with location missing")
	}
	header := p.sheet.Rows[0]

	if len(header) <= headerLocationCol || header[headerLocationCol].IsBlank() {
		return facts, p.structErr(0, headerLocationCol, "default location missing in header row")
	}
	loc := header[headerLocationCol]
	switch loc.Kind {
	case grid.KindText, grid.KindNumber:
		facts.DefaultLocation = strings.TrimSpace(loc.String())
	default:
		return facts, p.structErr(0, headerLocationCol, fmt.Sprintf("default location must be text, got %s", loc.Kind))
	}

	if len(header) <= headerCutoffCol || header[headerCutoffCol].IsBlank() {
		return facts, nil
	}
	cell := header[headerCutoffCol]
	if cell.Kind == grid.KindDate {
		d := civilDate(cell.Time)
		facts.Cutoff = &d
		return facts, nil
	}
	d, found, err := scanDate(cell.String())
	if err != nil || !found {
		return facts, p.tokenErr(0, headerCutoffCol, expectedDate, cell.String())
	}
	facts.Cutoff = &d
	return facts, nil
}

func (p *parser) rows() ([]draft, error) {
	var (
		drafts  []draft
		started bool
		prev    time.Time
	)
	for y, row := range p.sheet.Rows {
		if !started {
			if len(row) > 0 && row[0].Kind == grid.KindText && strings.TrimSpace(row[0].Text) == DataMarker {
				started = true
			}
			continue
		}

		if len(row) == 0 {
			continue
		}
		if len(row) < dataColumns {
			return nil, p.rowErr(y, fmt.Sprintf("data row has %d cells, expected at least %d", len(row), dataColumns))
		}
		if blankRow(row) {
			appLog.Debug("schedule: skipping empty row", "sheet", p.sheet.Name, "row", y+1)
			continue
		}

		date, err := p.date(y, row[colDate], prev)
		if err != nil {
			return nil, err
		}
		prev = date

		start, stop, err := p.times(y, row[colTime])
		if err != nil {
			return nil, err
		}

		scenes, err := p.scenes(y, row[colScenes])
		if err != nil {
			return nil, err
		}

		drafts = append(drafts, draft{
			row:    y + 1,
			date:   date,
			start:  start,
			stop:   stop,
			scenes: scenes,
			room:   optionalText(row[colRoom]),
			note:   optionalText(row[colNote]),
		})
	}
	if !started {
		appLog.Warn("schedule: data marker row not found", "file", p.sheet.File, "sheet", p.sheet.Name, "marker", DataMarker)
	}
	return drafts, nil
}

func (p *parser) date(y int, cell grid.Cell, prev time.Time) (time.Time, error) {
	if cell.Kind == grid.KindDate {
		return civilDate(cell.Time), nil
	}
	text := cell.String()
	d, found, err := scanDate(text)
	if err != nil {
		return time.Time{}, p.tokenErr(y, colDate, expectedDate, text)
	}
	if found {
		return d, nil
	}
	if prev.IsZero() {
		return time.Time{}, &model.ReferentialError{
			Location: p.loc(y, colDate),
			Reason:   fmt.Sprintf("no date in '%s' and no previous row to carry a date forward from", text),
		}
	}
	return prev, nil
}

func (p *parser) times(y int, cell grid.Cell) (model.Clock, *model.Clock, error) {
	// A native date-time cell carries its clock part; a bare date does not.
	isDateTime := cell.Kind == grid.KindDate && (cell.Time.Hour() != 0 || cell.Time.Minute() != 0)
	if cell.Kind == grid.KindTime || isDateTime {
		c, err := model.NewClock(cell.Time.Hour(), cell.Time.Minute())
		if err != nil {
			return 0, nil, p.tokenErr(y, colTime, expectedTime, cell.String())
		}
		return c, nil, nil
	}

	text := cell.String()
	if cell.Kind != grid.KindText {
		return 0, nil, p.tokenErr(y, colTime, expectedTime, text)
	}
	m := timeRange.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, nil, p.tokenErr(y, colTime, expectedTime, text)
	}

	start, err := clock(m[1], m[2])
	if err != nil {
		return 0, nil, p.tokenErr(y, colTime, expectedTime, text)
	}
	if m[3] == "" {
		return start, nil, nil
	}
	stop, err := clock(m[3], m[4])
	if err != nil || stop < start {
		return 0, nil, p.tokenErr(y, colTime, expectedTime, text)
	}
	return start, &stop, nil
}

func (p *parser) scenes(y int, cell grid.Cell) (model.Scenes, error) {
	switch cell.Kind {
	case grid.KindEmpty, grid.KindText, grid.KindNumber:
		return model.ParseScenes(cell.String()), nil
	default:
		return model.Scenes{}, p.tokenErr(y, colScenes, expectedScene, cell.String())
	}
}

// backfillStops walks the rows from last to first and closes an open stop
// time with the start time of the following row on the same date. The
// last row of a date keeps its open stop.
func backfillStops(drafts []draft) {
	for i := len(drafts) - 2; i >= 0; i-- {
		cur, next := &drafts[i], drafts[i+1]
		if cur.stop != nil || !cur.date.Equal(next.date) || next.start < cur.start {
			continue
		}
		stop := next.start
		cur.stop = &stop
	}
}

// scanDate returns the first D.M.YY token of text. found is false when the
// text holds no token; err is set when the token is not a calendar date.
func scanDate(text string) (d time.Time, found bool, err error) {
	m := dateToken.FindStringSubmatch(text)
	if m == nil {
		if longYearDate.MatchString(text) {
			return time.Time{}, true, fmt.Errorf("four-digit year in '%s'", text)
		}
		return time.Time{}, false, nil
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	d = model.Date(2000+year, time.Month(month), day)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, true, fmt.Errorf("invalid date %s.%s.%s", m[1], m[2], m[3])
	}
	return d, true, nil
}

func clock(h, m string) (model.Clock, error) {
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, err
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, err
	}
	return model.NewClock(hour, minute)
}

func civilDate(t time.Time) time.Time {
	return model.Date(t.Year(), t.Month(), t.Day())
}

func optionalText(c grid.Cell) string {
	if c.Kind == grid.KindEmpty {
		return ""
	}
	return strings.TrimSpace(c.String())
}

func blankRow(row []grid.Cell) bool {
	for _, c := range row {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

func formatCutoff(c *time.Time) string {
	if c == nil {
		return "none"
	}
	return c.Format("2006-01-02")
}

func (p *parser) loc(y, x int) model.Location {
	return model.Location{File: p.sheet.File, Sheet: p.sheet.Name, Row: y + 1, Col: x + 1}
}

// rowErr reports a structural problem with a whole row.
func (p *parser) rowErr(y int, reason string) error {
	loc := p.loc(y, 0)
	loc.Col = 0
	return &model.StructuralError{Location: loc, Reason: reason}
}

func (p *parser) structErr(y, x int, reason string) error {
	return &model.StructuralError{Location: p.loc(y, x), Reason: reason}
}

func (p *parser) tokenErr(y, x int, expected, token string) error {
	return &model.TokenParseError{Location: p.loc(y, x), Expected: expected, Token: token}
}

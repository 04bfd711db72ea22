// Package cast parses the cast sheet: one row per role with a
// participation mark per scene column.
package cast

import (
	"fmt"
	"strings"

	"rehearsalcal/internal/grid"
	appLog "rehearsalcal/internal/log"
	"rehearsalcal/internal/model"
)

const (
	colRole    = 0
	colPerson  = 1
	firstScene = 2
)

// Marks are the cell marks deciding scene participation. Matching is a
// case-insensitive substring test; Performs is checked first.
type Marks struct {
	Performs   string
	SilentPlay string
}

// DefaultMarks are "x" for performing and "-" for silent play.
var DefaultMarks = Marks{Performs: "x", SilentPlay: "-"}

// Parse reads the header row of scene names and every role row up to the
// first row with neither role nor person.
func Parse(sheet *grid.Sheet, marks Marks) ([]*model.CastEntry, error) {
	if marks.Performs == "" || marks.SilentPlay == "" {
		return nil, fmt.Errorf("cast: participation marks must not be empty")
	}
	if len(sheet.Rows) == 0 {
		return nil, structErr(sheet, 0, -1, "sheet is empty, header row with scene names missing")
	}

	scenes, err := sceneNames(sheet)
	if err != nil {
		return nil, err
	}
	appLog.Debug("cast: scene columns", "sheet", sheet.Name, "scenes", scenes)

	performs := strings.ToLower(marks.Performs)
	silent := strings.ToLower(marks.SilentPlay)

	var entries []*model.CastEntry
	for y := 1; y < len(sheet.Rows); y++ {
		row := sheet.Rows[y]
		if sheet.Cell(y, colRole).IsBlank() && sheet.Cell(y, colPerson).IsBlank() {
			appLog.Debug("cast: end of table", "sheet", sheet.Name, "row", y+1, "ignored_rows", len(sheet.Rows)-y-1)
			break
		}

		role, err := textCell(sheet, y, colRole, "role")
		if err != nil {
			return nil, err
		}
		person, err := textCell(sheet, y, colPerson, "person")
		if err != nil {
			return nil, err
		}

		var (
			list  []model.Scene
			flags []bool
		)
		for i, name := range scenes {
			x := firstScene + i
			if x >= len(row) || row[x].Kind != grid.KindText {
				continue
			}
			mark := strings.ToLower(row[x].Text)
			switch {
			case strings.Contains(mark, performs):
				list = append(list, name)
				flags = append(flags, false)
			case strings.Contains(mark, silent):
				list = append(list, name)
				flags = append(flags, true)
			}
		}

		entry, err := model.NewCastEntry(role, person, list, flags)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	appLog.Info("cast parsed", "file", sheet.File, "sheet", sheet.Name, "entries", len(entries), "scenes", len(scenes))
	return entries, nil
}

// sceneNames reads header columns from the third onward. Trailing empty
// cells are dropped.
func sceneNames(sheet *grid.Sheet) ([]model.Scene, error) {
	header := sheet.Rows[0]
	end := len(header)
	for end > firstScene && header[end-1].Kind == grid.KindEmpty {
		end--
	}

	var scenes []model.Scene
	for x := firstScene; x < end; x++ {
		c := header[x]
		switch c.Kind {
		case grid.KindText, grid.KindNumber:
			scenes = append(scenes, strings.TrimSpace(c.String()))
		default:
			return nil, structErr(sheet, 0, x, fmt.Sprintf("scene name must be text or number, got %s", c.Kind))
		}
	}
	return scenes, nil
}

func textCell(sheet *grid.Sheet, y, x int, what string) (string, error) {
	c := sheet.Cell(y, x)
	if c.Kind != grid.KindText || c.IsBlank() {
		return "", structErr(sheet, y, x, fmt.Sprintf("%s must be text, got %s '%s'", what, c.Kind, c.String()))
	}
	return strings.TrimSpace(c.Text), nil
}

// structErr builds a StructuralError; x < 0 addresses the whole row.
func structErr(sheet *grid.Sheet, y, x int, reason string) error {
	return &model.StructuralError{
		Location: model.Location{File: sheet.File, Sheet: sheet.Name, Row: y + 1, Col: x + 1},
		Reason:   reason,
	}
}

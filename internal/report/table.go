// Package report renders per-person schedules as aligned text tables.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"rehearsalcal/internal/match"
	"rehearsalcal/internal/model"
)

var header = []string{"Datum", "Zeit", "Szenen", "Ort", "Rolle"}

// Rows returns one table row per pair of the group.
func Rows(g match.PersonGroup, defaultLocation string) [][]string {
	rows := make([][]string, 0, len(g.Pairs))
	for _, p := range g.Pairs {
		o := p.Occasion
		date := "?"
		if o.HasDate() {
			date = o.Date.Format("02.01.2006")
		}
		place := o.Room
		if place == "" {
			place = defaultLocation
		}
		role := "-"
		if p.Cast != nil {
			role = p.Cast.Role
		}
		rows = append(rows, []string{date, o.TimeRange(), o.Scenes.Render(), place, role})
	}
	return rows
}

// Write renders every group as a heading plus a markdown table. When
// person is non-empty only that person's group is written.
func Write(w io.Writer, groups []match.PersonGroup, defaultLocation, person string) error {
	written := 0
	for _, g := range groups {
		if person != "" && g.Person != person {
			continue
		}
		if written > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "## %s (%d)\n\n", g.Person, len(g.Pairs)); err != nil {
			return err
		}
		for _, line := range Table(header, Rows(g, defaultLocation)) {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		}
		written++
	}
	if person != "" && written == 0 {
		return fmt.Errorf("no calendar for person %q", person)
	}
	return nil
}

// Table lays out head and rows as a markdown table padded by display
// width, so umlauts and wide runes line up.
func Table(head []string, rows [][]string) []string {
	widths := make([]int, len(head))
	measure := func(row []string) {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(head)
	for _, r := range rows {
		measure(r)
	}
	// Min width for separator "---".
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	line := func(row []string, sep bool) string {
		var sb strings.Builder
		sb.WriteString("|")
		for i, width := range widths {
			sb.WriteString(" ")
			if sep {
				sb.WriteString(strings.Repeat("-", width))
			} else {
				cell := ""
				if i < len(row) {
					cell = row[i]
				}
				sb.WriteString(runewidth.FillRight(cell, width))
			}
			sb.WriteString(" |")
		}
		return sb.String()
	}

	out := make([]string, 0, len(rows)+2)
	out = append(out, line(head, false), line(nil, true))
	for _, r := range rows {
		out = append(out, line(r, false))
	}
	return out
}

// Summary is a one-line count per kind of occasion.
func Summary(occasions []*model.Occasion, groups []match.PersonGroup) string {
	special := 0
	for _, o := range occasions {
		if o.Scenes.Unconditional() {
			special++
		}
	}
	return fmt.Sprintf("%d occasions (%d for everybody), %d persons", len(occasions), special, len(groups))
}

// Package pipeline wires the grid source, parsers, matcher and emitter
// into one batch run.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"rehearsalcal/internal/cast"
	"rehearsalcal/internal/grid"
	appLog "rehearsalcal/internal/log"
	"rehearsalcal/internal/match"
	"rehearsalcal/internal/model"
	"rehearsalcal/internal/schedule"
)

// Options select the workbook and sheets to read.
type Options struct {
	Workbook      string
	ScheduleSheet int
	CastSheet     int
	Marks         cast.Marks
}

// Result is everything a run derived from the workbook.
type Result struct {
	Facts     model.SheetFacts
	Occasions []*model.Occasion
	Cast      []*model.CastEntry
	Pairs     []match.Pair
	Groups    []match.PersonGroup
}

// Emitter writes one person's calendar.
type Emitter interface {
	Emit(ctx context.Context, group match.PersonGroup, defaultLocation string) error
}

// Build reads and parses both sheets, then matches, filters and groups.
// The first error aborts the run.
func Build(ctx context.Context, src grid.Source, opts Options) (*Result, error) {
	if opts.Marks == (cast.Marks{}) {
		opts.Marks = cast.DefaultMarks
	}

	scheduleSheet, err := src.ReadSheet(ctx, opts.Workbook, opts.ScheduleSheet)
	if err != nil {
		return nil, ioErr("read schedule sheet", opts.Workbook, err)
	}
	table, err := schedule.Parse(scheduleSheet)
	if err != nil {
		return nil, err
	}

	castSheet, err := src.ReadSheet(ctx, opts.Workbook, opts.CastSheet)
	if err != nil {
		return nil, ioErr("read cast sheet", opts.Workbook, err)
	}
	entries, err := cast.Parse(castSheet, opts.Marks)
	if err != nil {
		return nil, err
	}

	pairs := match.Match(table.Occasions, entries)
	matched := len(pairs)
	pairs = match.FilterByCutoff(pairs, table.Facts.Cutoff)
	pairs = match.FilterResolvedDate(pairs)
	groups := match.GroupByPerson(pairs)

	appLog.Info("pipeline built",
		"workbook", opts.Workbook,
		"occasions", len(table.Occasions),
		"cast_entries", len(entries),
		"pairs_matched", matched,
		"pairs_kept", len(pairs),
		"persons", len(groups),
	)

	return &Result{
		Facts:     table.Facts,
		Occasions: table.Occasions,
		Cast:      entries,
		Pairs:     pairs,
		Groups:    groups,
	}, nil
}

// Run is Build followed by one Emit per person. The first emission error
// stops the run; calendars already written stay on disk.
func Run(ctx context.Context, src grid.Source, opts Options, emitter Emitter) (*Result, error) {
	res, err := Build(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	for _, g := range res.Groups {
		if err := emitter.Emit(ctx, g, res.Facts.DefaultLocation); err != nil {
			var ee *model.EmissionError
			if !errors.As(err, &ee) {
				err = &model.EmissionError{Person: g.Person, Err: err}
			}
			return res, err
		}
	}
	appLog.Info("calendars emitted", "persons", len(res.Groups))
	return res, nil
}

// ioErr keeps classified source errors as they are and wraps the rest.
func ioErr(op, path string, err error) error {
	if model.KindOf(err) != model.KindUnknown {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &model.IOError{Op: op, Path: path, Err: err}
}

package ics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "rehearsalcal/internal/log"
	"rehearsalcal/internal/match"
	"rehearsalcal/internal/model"
)

const (
	DefaultTitle     = "Theater"
	DefaultProductID = "-//EnsembLee//NONSGML Scene Scheduler//DE"
	DefaultDuration  = 4 * time.Hour
	DefaultTimezone  = "Europe/Zurich"

	labelRole   = "Rolle: "
	labelScenes = "Szenen: "
	labelNote   = "Notiz: "
)

// Options control how occasions turn into VEVENTs.
type Options struct {
	// Location is the civil timezone of all schedule dates and times.
	Location *time.Location
	// DefaultDuration closes occasions without a stop time.
	DefaultDuration time.Duration
	Title           string
	ProductID       string
	// Now stamps DTSTAMP; time.Now when nil.
	Now func() time.Time
}

// Builder renders a person's pairs into a calendar.
type Builder struct {
	opts Options
}

// NewBuilder fills unset options with their defaults. A nil Location
// resolves DefaultTimezone and falls back to UTC when the zone database
// is unavailable.
func NewBuilder(opts Options) *Builder {
	if opts.Location == nil {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			appLog.Error("ics: timezone unavailable, using UTC", err, "tz", DefaultTimezone)
			loc = time.UTC
		}
		opts.Location = loc
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = DefaultDuration
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Builder{opts: opts}
}

// event collects the roles a person has at one occasion; an occasion
// yields a single VEVENT per calendar even when several of the person's
// roles appear in it.
type event struct {
	occasion *model.Occasion
	roles    []string
}

// Build returns the calendar for one person and the number of events in
// it. Pairs without a resolved date are skipped.
func (b *Builder) Build(group match.PersonGroup, defaultLocation string) (*ical.Calendar, int) {
	var (
		events []*event
		byID   = make(map[string]*event)
	)
	for _, p := range group.Pairs {
		if !p.Occasion.HasDate() {
			continue
		}
		ev, ok := byID[p.Occasion.ID]
		if !ok {
			ev = &event{occasion: p.Occasion}
			byID[p.Occasion.ID] = ev
			events = append(events, ev)
		}
		if p.Cast != nil {
			ev.roles = appendUnique(ev.roles, p.Cast.Role)
		}
	}

	cal := ical.NewCalendar()
	cal.SetProductId(b.opts.ProductID)
	cal.SetMethod(ical.MethodPublish)

	stamp := b.opts.Now().UTC()
	for _, ev := range events {
		o := ev.occasion
		start, end := b.Span(o)

		ve := cal.AddEvent(o.ID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(start.UTC())
		ve.SetEndAt(end.UTC())
		ve.SetStatus(ical.ObjectStatusConfirmed)
		ve.SetSummary(b.opts.Title)
		ve.SetLocation(eventLocation(o, defaultLocation))
		ve.SetDescription(Description(o, ev.roles))
	}
	return cal, len(events)
}

// Span resolves the occasion's civil start and stop in the configured
// timezone. An open stop becomes start plus the default duration.
func (b *Builder) Span(o *model.Occasion) (time.Time, time.Time) {
	start := o.Start.On(o.Date, b.opts.Location)
	if o.Stop == nil {
		return start, start.Add(b.opts.DefaultDuration)
	}
	return start, o.Stop.On(o.Date, b.opts.Location)
}

// Description renders the multi-line event description.
func Description(o *model.Occasion, roles []string) string {
	var lines []string
	if len(roles) > 0 {
		lines = append(lines, labelRole+strings.Join(roles, ", "))
	}
	lines = append(lines, labelScenes+o.Scenes.Render())
	if o.Note != "" {
		lines = append(lines, labelNote+o.Note)
	}
	return strings.Join(lines, "\n")
}

func eventLocation(o *model.Occasion, defaultLocation string) string {
	if o.Room != "" {
		return o.Room
	}
	return defaultLocation
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// Writer emits one .ics file per person into a directory.
type Writer struct {
	dir     string
	builder *Builder
}

func NewWriter(dir string, builder *Builder) *Writer {
	return &Writer{dir: dir, builder: builder}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Path returns the file a person's calendar is written to.
func (w *Writer) Path(person string) string {
	return filepath.Join(w.dir, FileName(person))
}

// FileName maps a person identifier to "<person>.ics". Path separators
// and NUL are replaced so the file always lands inside the output dir.
func FileName(person string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(person))
	if name == "" || name == "." || name == ".." {
		name = "_"
	}
	return name + ".ics"
}

// Emit builds the person's calendar and writes it atomically. Any failure
// is returned as *model.EmissionError.
func (w *Writer) Emit(ctx context.Context, group match.PersonGroup, defaultLocation string) error {
	path := w.Path(group.Person)
	fail := func(err error) error {
		return &model.EmissionError{Person: group.Person, Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	cal, n := w.builder.Build(group, defaultLocation)

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fail(err)
	}
	tmp, err := os.CreateTemp(w.dir, ".rehearsalcal-*.tmp")
	if err != nil {
		return fail(err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := cal.SerializeTo(tmp); err != nil {
		tmp.Close()
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fail(err)
	}

	appLog.Info("calendar written", "person", group.Person, "path", path, "events", n)
	return nil
}

// Serialize renders a person's calendar without touching the filesystem.
func (b *Builder) Serialize(group match.PersonGroup, defaultLocation string) ([]byte, error) {
	cal, _ := b.Build(group, defaultLocation)
	var sb strings.Builder
	if err := cal.SerializeTo(&sb); err != nil {
		return nil, fmt.Errorf("serialize calendar for %q: %w", group.Person, err)
	}
	return []byte(sb.String()), nil
}

package model

import (
	"errors"
	"fmt"
	"time"
)

// Clock is a civil time of day, stored as minutes since midnight.
type Clock int

// NewClock validates hour/minute and returns the corresponding Clock.
func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	return Clock(hour*60 + minute), nil
}

// MustClock is NewClock for constant inputs; it panics on invalid values.
func MustClock(hour, minute int) Clock {
	c, err := NewClock(hour, minute)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On combines the clock with a civil date in loc.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour(), c.Minute(), 0, 0, loc)
}

// Date returns the civil date y-m-d as midnight UTC, the representation
// used for all occasion dates.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Occasion is one schedule time slot, independent of which cast members
// are involved. Occasions are built once by NewOccasion and must not be
// modified afterwards; ID depends on every other field.
type Occasion struct {
	ID     string
	Date   time.Time // civil date, midnight UTC
	Start  Clock
	Stop   *Clock // nil: open end, resolved at emission time
	Scenes Scenes
	Room   string // empty: use the sheet's default location
	Note   string

	// Row is the 1-based spreadsheet row the occasion was read from.
	Row int
}

// OccasionSpec carries the parsed fields of an occasion.
type OccasionSpec struct {
	Date   time.Time
	Start  Clock
	Stop   *Clock
	Scenes Scenes
	Room   string
	Note   string
	Row    int
}

var ErrStopBeforeStart = errors.New("stop time before start time")

// NewOccasion builds an immutable Occasion and computes its identity.
func NewOccasion(s OccasionSpec) (*Occasion, error) {
	if s.Stop != nil && *s.Stop < s.Start {
		return nil, fmt.Errorf("%w: %s-%s", ErrStopBeforeStart, s.Start, *s.Stop)
	}
	o := &Occasion{
		Date:   s.Date,
		Start:  s.Start,
		Scenes: s.Scenes,
		Room:   s.Room,
		Note:   s.Note,
		Row:    s.Row,
	}
	if s.Stop != nil {
		stop := *s.Stop
		o.Stop = &stop
	}
	o.ID = OccasionID(o.Date, o.Start, o.Stop, o.Scenes, o.Room, o.Note)
	return o, nil
}

// HasDate reports whether the occasion carries a resolved date.
func (o *Occasion) HasDate() bool {
	return !o.Date.IsZero()
}

// TimeRange renders "HH:MM" or "HH:MM-HH:MM".
func (o *Occasion) TimeRange() string {
	if o.Stop == nil {
		return o.Start.String()
	}
	return o.Start.String() + "-" + o.Stop.String()
}

// CastEntry is a person's participation record for one role. Scenes and
// Silent are index-aligned.
type CastEntry struct {
	Role   string
	Person string
	Scenes []Scene
	Silent []bool
}

// NewCastEntry checks the index alignment of scenes and silent flags.
func NewCastEntry(role, person string, scenes []Scene, silent []bool) (*CastEntry, error) {
	if len(scenes) != len(silent) {
		return nil, fmt.Errorf("cast entry %q/%q: %d scenes but %d silent-play flags", role, person, len(scenes), len(silent))
	}
	return &CastEntry{
		Role:   role,
		Person: person,
		Scenes: append([]Scene(nil), scenes...),
		Silent: append([]bool(nil), silent...),
	}, nil
}

// SilentPlay returns the silent-play flag of the first entry named scene.
// known is false when the person is not involved in that scene.
func (c *CastEntry) SilentPlay(scene Scene) (silent, known bool) {
	for i, s := range c.Scenes {
		if s == scene {
			return c.Silent[i], true
		}
	}
	return false, false
}

// Involved reports whether any of scenes is part of this entry.
func (c *CastEntry) Involved(scenes []Scene) bool {
	for _, s := range scenes {
		if _, ok := c.SilentPlay(s); ok {
			return true
		}
	}
	return false
}

// SheetFacts are the header-row facts of the schedule sheet.
type SheetFacts struct {
	DefaultLocation string
	// Cutoff is the mandatory silent-play date; nil disables the rule.
	Cutoff *time.Time
}

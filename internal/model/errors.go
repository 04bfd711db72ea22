package model

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so callers can branch without
// inspecting message text.
type Kind string

const (
	KindUnknown     Kind = "unknown"
	KindStructural  Kind = "structural"
	KindTokenParse  Kind = "token_parse"
	KindReferential Kind = "referential"
	KindEmission    Kind = "emission"
	KindIO          Kind = "io"
)

type kinded interface {
	Kind() Kind
}

// KindOf returns the Kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// Location pins an error to a cell. Row and Column are 1-based
// spreadsheet coordinates; Column 0 means the whole row.
type Location struct {
	File  string
	Sheet string
	Row   int
	Col   int
}

func (l Location) String() string {
	if l.Col == 0 {
		return fmt.Sprintf("file '%s', sheet '%s', row %d", l.File, l.Sheet, l.Row)
	}
	return fmt.Sprintf("file '%s', sheet '%s', row %d, column %d", l.File, l.Sheet, l.Row, l.Col)
}

// StructuralError reports a wrong table shape: too few cells, a missing
// required header field or a cell of the wrong type.
type StructuralError struct {
	Location
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error in %s: %s", e.Location, e.Reason)
}

func (e *StructuralError) Kind() Kind { return KindStructural }

// TokenParseError reports cell content violating the date, time or scene
// grammar. Expected and Token are reported verbatim.
type TokenParseError struct {
	Location
	Expected string
	Token    string
}

func (e *TokenParseError) Error() string {
	return fmt.Sprintf("parse error in %s: expected %s, unexpected token '%s'", e.Location, e.Expected, e.Token)
}

func (e *TokenParseError) Kind() Kind { return KindTokenParse }

// ReferentialError reports a carry-forward date with no prior date.
type ReferentialError struct {
	Location
	Reason string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("referential error in %s: %s", e.Location, e.Reason)
}

func (e *ReferentialError) Kind() Kind { return KindReferential }

// EmissionError reports a failure writing one person's calendar.
type EmissionError struct {
	Person string
	Path   string
	Err    error
}

func (e *EmissionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("emitting calendar for '%s': %v", e.Person, e.Err)
	}
	return fmt.Sprintf("emitting calendar for '%s' to %s: %v", e.Person, e.Path, e.Err)
}

func (e *EmissionError) Unwrap() error { return e.Err }

func (e *EmissionError) Kind() Kind { return KindEmission }

// IOError wraps failures of the grid source or other collaborators.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Kind() Kind { return KindIO }

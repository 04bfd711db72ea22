package model

import (
	"strings"
	"unicode"
)

// Scene is a scene label as written in the workbook. Labels are not
// required to be unique.
type Scene = string

// AllScenesLabel renders an empty scene list, which means "every scene".
const AllScenesLabel = "Alle Szenen"

// Scenes is either an enumerable scene list (Normal) or a free-text
// designation such as a run-through or a performance (Special).
type Scenes struct {
	list    []Scene
	label   string
	special bool
}

func Normal(scenes ...Scene) Scenes {
	return Scenes{list: append([]Scene(nil), scenes...)}
}

func Special(label string) Scenes {
	return Scenes{label: label, special: true}
}

// ParseScenes interprets a scenes cell. Empty text is an empty Normal
// list, digit-led text a list separated by '/' or ',', anything else a
// Special label.
func ParseScenes(text string) Scenes {
	text = strings.TrimSpace(text)
	if text == "" {
		return Normal()
	}
	if r := []rune(text)[0]; !unicode.IsDigit(r) {
		return Special(text)
	}
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == '/' || r == ',' })
	list := make([]Scene, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			list = append(list, f)
		}
	}
	return Normal(list...)
}

func (s Scenes) IsSpecial() bool { return s.special }

// Label is the Special designation; empty for Normal lists.
func (s Scenes) Label() string { return s.label }

// List returns a copy of the Normal scene list; nil for Special.
func (s Scenes) List() []Scene {
	if s.special {
		return nil
	}
	return append([]Scene(nil), s.list...)
}

func (s Scenes) Len() int { return len(s.list) }

// Unconditional occasions apply to every cast member.
func (s Scenes) Unconditional() bool {
	return s.special || len(s.list) == 0
}

// Render is the human-readable form used in event descriptions.
func (s Scenes) Render() string {
	switch {
	case s.special:
		return s.label
	case len(s.list) == 0:
		return AllScenesLabel
	default:
		return strings.Join(s.list, "/")
	}
}

func (s Scenes) String() string {
	if s.special {
		return "Special(" + s.label + ")"
	}
	return "Normal[" + strings.Join(s.list, ",") + "]"
}

// Package match pairs schedule occasions with cast entries, applies the
// silent-play cutoff and groups the result per person.
package match

import (
	"sort"
	"time"

	appLog "rehearsalcal/internal/log"
	"rehearsalcal/internal/model"
)

// Pair links an occasion to one cast entry. Cast is nil for unconditional
// occasions, which concern everybody.
type Pair struct {
	Occasion *model.Occasion
	Cast     *model.CastEntry
}

// Unconditional reports whether the pair applies to every person.
func (p Pair) Unconditional() bool {
	return p.Cast == nil
}

// PersonGroup is the ordered list of pairs that end up in one person's
// calendar.
type PersonGroup struct {
	Person string
	Pairs  []Pair
}

// Match produces one unconditional pair for every Special or empty-Normal
// occasion and one pair per intersecting cast entry otherwise, in schedule
// order then cast order.
func Match(occasions []*model.Occasion, cast []*model.CastEntry) []Pair {
	var pairs []Pair
	for _, o := range occasions {
		if o.Scenes.Unconditional() {
			pairs = append(pairs, Pair{Occasion: o})
			continue
		}
		scenes := o.Scenes.List()
		for _, c := range cast {
			if !c.Involved(scenes) {
				appLog.Debug("match: no scene overlap",
					"row", o.Row,
					"scenes", o.Scenes.Render(),
					"role", c.Role,
					"person", c.Person,
				)
				continue
			}
			pairs = append(pairs, Pair{Occasion: o, Cast: c})
		}
	}
	return pairs
}

// FilterByCutoff drops pairs in which the person only plays silently in
// every listed scene and the occasion lies before cutoff. Unconditional
// occasions and pairs without a cast entry are always kept. A nil cutoff
// keeps everything.
func FilterByCutoff(pairs []Pair, cutoff *time.Time) []Pair {
	if cutoff == nil {
		return pairs
	}
	kept := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if dropForCutoff(p, *cutoff) {
			appLog.Debug("match: silent play before cutoff, dropped",
				"row", p.Occasion.Row,
				"date", p.Occasion.Date.Format("2006-01-02"),
				"person", p.Cast.Person,
				"role", p.Cast.Role,
			)
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func dropForCutoff(p Pair, cutoff time.Time) bool {
	if p.Occasion.Scenes.Unconditional() || p.Cast == nil {
		return false
	}
	for _, s := range p.Occasion.Scenes.List() {
		if silent, known := p.Cast.SilentPlay(s); known && !silent {
			return false
		}
	}
	return p.Occasion.Date.Before(cutoff)
}

// FilterResolvedDate drops pairs whose occasion carries no date.
func FilterResolvedDate(pairs []Pair) []Pair {
	kept := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if !p.Occasion.HasDate() {
			appLog.Warn("match: occasion without date dropped", "row", p.Occasion.Row)
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// GroupByPerson returns one group per person named by any cast-linked
// pair, sorted by person. Each group lists that person's pairs and every
// unconditional pair, in input order.
func GroupByPerson(pairs []Pair) []PersonGroup {
	seen := make(map[string]bool)
	var persons []string
	for _, p := range pairs {
		if p.Cast == nil || seen[p.Cast.Person] {
			continue
		}
		seen[p.Cast.Person] = true
		persons = append(persons, p.Cast.Person)
	}
	sort.Strings(persons)

	groups := make([]PersonGroup, 0, len(persons))
	for _, person := range persons {
		g := PersonGroup{Person: person}
		for _, p := range pairs {
			if p.Cast == nil || p.Cast.Person == person {
				g.Pairs = append(g.Pairs, p)
			}
		}
		groups = append(groups, g)
	}
	return groups
}

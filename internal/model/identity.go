package model

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// identityNamespace scopes occasion UUIDs. Changing it changes every
// generated UID and makes calendar clients see all events as new.
var identityNamespace = uuid.MustParse("6f1c2a0e-4f7b-4d59-9a43-2b8e0c1d5e77")

const (
	noneSentinel = "None"
	fieldSep     = "\x1f"
)

// OccasionID fingerprints an occasion as a name-based (MD5) UUID over its
// normalized fields. Scene order does not matter; every other field does.
func OccasionID(date time.Time, start Clock, stop *Clock, scenes Scenes, room, note string) string {
	dateStr := noneSentinel
	if !date.IsZero() {
		dateStr = date.Format("2006-01-02")
	}

	timeStr := start.String()
	if stop != nil {
		timeStr += "-" + stop.String()
	}

	var sceneStr string
	if scenes.IsSpecial() {
		sceneStr = "special:" + scenes.Label()
	} else {
		sorted := scenes.List()
		sort.Strings(sorted)
		sceneStr = strings.Join(sorted, "/")
	}

	parts := []string{dateStr, timeStr, sceneStr, orNone(room), orNone(note)}
	return uuid.NewMD5(identityNamespace, []byte(strings.Join(parts, fieldSep))).String()
}

func orNone(s string) string {
	if s == "" {
		return noneSentinel
	}
	return s
}

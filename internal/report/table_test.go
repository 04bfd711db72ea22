package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rehearsalcal/internal/match"
	"rehearsalcal/internal/model"
)

func groups(t *testing.T) []match.PersonGroup {
	t.Helper()
	stop := model.MustClock(12, 0)
	o1, err := model.NewOccasion(model.OccasionSpec{
		Date: model.Date(2022, time.January, 3), Start: model.MustClock(10, 0), Stop: &stop,
		Scenes: model.Normal("1", "2"), Room: "Probebühne",
	})
	require.NoError(t, err)
	o2, err := model.NewOccasion(model.OccasionSpec{
		Date: model.Date(2022, time.January, 4), Start: model.MustClock(19, 0),
		Scenes: model.Special("Durchlauf"),
	})
	require.NoError(t, err)
	c, err := model.NewCastEntry("Hamlet", "Anna", []model.Scene{"1"}, []bool{false})
	require.NoError(t, err)

	return []match.PersonGroup{
		{Person: "Anna", Pairs: []match.Pair{{Occasion: o1, Cast: c}, {Occasion: o2}}},
		{Person: "Ben", Pairs: []match.Pair{{Occasion: o2}}},
	}
}

func TestRows(t *testing.T) {
	rows := Rows(groups(t)[0], "Aula")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"03.01.2022", "10:00-12:00", "1/2", "Probebühne", "Hamlet"}, rows[0])
	assert.Equal(t, []string{"04.01.2022", "19:00", "Durchlauf", "Aula", "-"}, rows[1])
}

func TestTable_AlignsByDisplayWidth(t *testing.T) {
	lines := Table([]string{"Ort", "x"}, [][]string{{"Bühne", "1"}, {"舞台", "2"}})
	require.Len(t, lines, 4)

	width := runewidth.StringWidth(lines[0])
	for _, l := range lines {
		assert.Equal(t, width, runewidth.StringWidth(l), l)
	}
	assert.Equal(t, "| ----- | --- |", lines[1])
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, groups(t), "Aula", ""))
	out := buf.String()
	assert.Contains(t, out, "## Anna (2)")
	assert.Contains(t, out, "## Ben (1)")
	assert.Equal(t, 2, strings.Count(out, "| Datum"))
}

func TestWrite_SinglePerson(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, groups(t), "Aula", "Ben"))
	assert.NotContains(t, buf.String(), "Anna")

	err := Write(&buf, groups(t), "Aula", "Carla")
	require.Error(t, err)
}

func TestSummary(t *testing.T) {
	g := groups(t)
	occasions := []*model.Occasion{g[0].Pairs[0].Occasion, g[0].Pairs[1].Occasion}
	assert.Equal(t, "2 occasions (1 for everybody), 2 persons", Summary(occasions, g))
}

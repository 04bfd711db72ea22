package cast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rehearsalcal/internal/grid"
	"rehearsalcal/internal/model"
)

var (
	T = grid.Text
	E = grid.Empty
	N = grid.Number
)

func castSheet(rows ...[]grid.Cell) *grid.Sheet {
	all := append([][]grid.Cell{{T("Rolle"), T("Wer"), N(1), N(2), T("3a"), N(4)}}, rows...)
	return grid.NewSheet("plan.xlsx", 1, "Besetzung", all)
}

func TestParse_Entries(t *testing.T) {
	entries, err := Parse(castSheet(
		[]grid.Cell{T("Hamlet"), T("Anna"), T("x"), T("-"), E(), T("X")},
		[]grid.Cell{T("Ophelia"), T("Ben"), E(), T("x"), T(" - "), E()},
		[]grid.Cell{T("Geist"), T("Anna"), T("?"), E(), E(), E()},
	), DefaultMarks)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	hamlet := entries[0]
	assert.Equal(t, "Hamlet", hamlet.Role)
	assert.Equal(t, "Anna", hamlet.Person)
	assert.Equal(t, []model.Scene{"1", "2", "4"}, hamlet.Scenes)
	assert.Equal(t, []bool{false, true, false}, hamlet.Silent)

	ophelia := entries[1]
	assert.Equal(t, []model.Scene{"2", "3a"}, ophelia.Scenes)
	assert.Equal(t, []bool{false, true}, ophelia.Silent)

	geist := entries[2]
	assert.Empty(t, geist.Scenes)
	assert.Empty(t, geist.Silent)
}

func TestParse_StopsAtBlankRow(t *testing.T) {
	entries, err := Parse(castSheet(
		[]grid.Cell{T("Hamlet"), T("Anna"), T("x")},
		[]grid.Cell{E(), T(" "), T("x")},
		[]grid.Cell{T("Notizen"), grid.Number(42)},
	), DefaultMarks)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestParse_CustomMarks(t *testing.T) {
	entries, err := Parse(castSheet(
		[]grid.Cell{T("Hamlet"), T("Anna"), T("•"), T("x"), T("o")},
	), Marks{Performs: "•", SilentPlay: "o"})
	require.NoError(t, err)
	assert.Equal(t, []model.Scene{"1", "3a"}, entries[0].Scenes)
	assert.Equal(t, []bool{false, true}, entries[0].Silent)
}

func TestParse_PerformsWinsOverSilent(t *testing.T) {
	entries, err := Parse(castSheet(
		[]grid.Cell{T("Hamlet"), T("Anna"), T("x-")},
	), DefaultMarks)
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, entries[0].Silent)
}

func TestParse_DefaultSilentMark(t *testing.T) {
	entries, err := Parse(castSheet(
		[]grid.Cell{T("Hamlet"), T("Anna"), T("-"), T("s"), T("x")},
	), DefaultMarks)
	require.NoError(t, err)
	assert.Equal(t, []model.Scene{"1", "3a"}, entries[0].Scenes)
	assert.Equal(t, []bool{true, false}, entries[0].Silent)
}

func TestParse_InvalidHeaderCell(t *testing.T) {
	s := grid.NewSheet("plan.xlsx", 1, "Besetzung", [][]grid.Cell{
		{T("Rolle"), T("Wer"), N(1), grid.Bool(true), N(3)},
	})
	_, err := Parse(s, DefaultMarks)
	var se *model.StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Row)
	assert.Equal(t, 4, se.Col)
}

func TestParse_InnerEmptyHeaderCell(t *testing.T) {
	s := grid.NewSheet("plan.xlsx", 1, "Besetzung", [][]grid.Cell{
		{T("Rolle"), T("Wer"), N(1), E(), N(3)},
	})
	_, err := Parse(s, DefaultMarks)
	assert.Equal(t, model.KindStructural, model.KindOf(err))
}

func TestParse_TrailingEmptyHeaderCells(t *testing.T) {
	s := grid.NewSheet("plan.xlsx", 1, "Besetzung", [][]grid.Cell{
		{T("Rolle"), T("Wer"), N(1), E(), E()},
		{T("Hamlet"), T("Anna"), T("x"), E(), T("Kommentar")},
	})
	entries, err := Parse(s, DefaultMarks)
	require.NoError(t, err)
	assert.Equal(t, []model.Scene{"1"}, entries[0].Scenes)
}

func TestParse_RoleTypeMismatch(t *testing.T) {
	_, err := Parse(castSheet(
		[]grid.Cell{N(7), T("Anna"), T("x")},
	), DefaultMarks)
	var se *model.StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Row)
	assert.Equal(t, 1, se.Col)
}

func TestParse_MissingPerson(t *testing.T) {
	_, err := Parse(castSheet(
		[]grid.Cell{T("Hamlet"), E(), T("x")},
	), DefaultMarks)
	var se *model.StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Col)
}

func TestParse_EmptySheet(t *testing.T) {
	_, err := Parse(grid.NewSheet("plan.xlsx", 1, "Besetzung", nil), DefaultMarks)
	assert.Equal(t, model.KindStructural, model.KindOf(err))
}

func TestParse_EmptyMarks(t *testing.T) {
	_, err := Parse(castSheet(), Marks{})
	require.Error(t, err)
}

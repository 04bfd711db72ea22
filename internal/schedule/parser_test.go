package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rehearsalcal/internal/grid"
	"rehearsalcal/internal/model"
)

var (
	T = grid.Text
	E = grid.Empty
)

func header() []grid.Cell {
	return []grid.Cell{T("Ort:"), T("Aula"), T("Stellprobe Pflicht ab:"), T("1.6.22"), E()}
}

func marker() []grid.Cell {
	return []grid.Cell{T("Datum"), T("Zeit"), T("Szenen"), T("Raum"), T("Notiz")}
}

func sheet(rows ...[]grid.Cell) *grid.Sheet {
	all := append([][]grid.Cell{header(), {E()}, marker()}, rows...)
	return grid.NewSheet("plan.xlsx", 0, "Probenplan", all)
}

func parse(t *testing.T, rows ...[]grid.Cell) *Table {
	t.Helper()
	tbl, err := Parse(sheet(rows...))
	require.NoError(t, err)
	return tbl
}

func TestParse_HeaderFacts(t *testing.T) {
	tbl := parse(t)
	assert.Equal(t, "Aula", tbl.Facts.DefaultLocation)
	require.NotNil(t, tbl.Facts.Cutoff)
	assert.Equal(t, model.Date(2022, time.June, 1), *tbl.Facts.Cutoff)
	assert.Empty(t, tbl.Occasions)
}

func TestParse_HeaderNativeCutoff(t *testing.T) {
	s := grid.NewSheet("plan.xlsx", 0, "Probenplan", [][]grid.Cell{
		{T("Ort:"), T("Aula"), T("ab:"), grid.DateTime(time.Date(2022, 6, 1, 14, 0, 0, 0, time.UTC))},
	})
	tbl, err := Parse(s)
	require.NoError(t, err)
	require.NotNil(t, tbl.Facts.Cutoff)
	assert.Equal(t, model.Date(2022, time.June, 1), *tbl.Facts.Cutoff)
}

func TestParse_HeaderWithoutCutoff(t *testing.T) {
	s := grid.NewSheet("plan.xlsx", 0, "Probenplan", [][]grid.Cell{
		{T("Ort:"), T("Aula")},
		marker(),
		{T("Mo. 3.1.22"), T("18:00"), E(), E(), E()},
	})
	tbl, err := Parse(s)
	require.NoError(t, err)
	assert.Nil(t, tbl.Facts.Cutoff)
	assert.Len(t, tbl.Occasions, 1)
}

func TestParse_MissingLocation(t *testing.T) {
	s := grid.NewSheet("plan.xlsx", 0, "Probenplan", [][]grid.Cell{
		{T("Ort:"), E(), T("ab:"), T("1.6.22")},
		marker(),
	})
	_, err := Parse(s)
	var se *model.StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Row)
	assert.Equal(t, 2, se.Col)
}

func TestParse_InvalidCutoffText(t *testing.T) {
	s := grid.NewSheet("plan.xlsx", 0, "Probenplan", [][]grid.Cell{
		{T("Ort:"), T("Aula"), T("ab:"), T("bald")},
	})
	_, err := Parse(s)
	var te *model.TokenParseError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "bald", te.Token)
	assert.Equal(t, 4, te.Col)
}

func TestParse_SkipsRowsBeforeMarker(t *testing.T) {
	s := grid.NewSheet("plan.xlsx", 0, "Probenplan", [][]grid.Cell{
		header(),
		{T("Probenplan Sommer"), T("nicht parsen"), E(), E(), E()},
		{T("x"), T("kein Datum")},
		marker(),
		{T("Mo. 3.1.22"), T("18:00-21:00"), T("1/2"), E(), E()},
	})
	tbl, err := Parse(s)
	require.NoError(t, err)
	require.Len(t, tbl.Occasions, 1)
	assert.Equal(t, 5, tbl.Occasions[0].Row)
}

func TestParse_CarryForward(t *testing.T) {
	tbl := parse(t,
		[]grid.Cell{T("01.01.22"), T("10:00"), E(), E(), E()},
		[]grid.Cell{E(), T("11:00"), E(), E(), E()},
	)
	require.Len(t, tbl.Occasions, 2)
	for _, o := range tbl.Occasions {
		assert.Equal(t, model.Date(2022, time.January, 1), o.Date)
	}
}

func TestParse_CarryForwardFromWeekdayOnlyText(t *testing.T) {
	tbl := parse(t,
		[]grid.Cell{T("Sa. 8.1.22"), T("10:00"), E(), E(), E()},
		[]grid.Cell{T("Sa."), T("14:00"), E(), E(), E()},
		[]grid.Cell{T("So. 9.1.22"), T("14:00"), E(), E(), E()},
	)
	require.Len(t, tbl.Occasions, 3)
	assert.Equal(t, model.Date(2022, time.January, 8), tbl.Occasions[1].Date)
	assert.Equal(t, model.Date(2022, time.January, 9), tbl.Occasions[2].Date)
}

func TestParse_NativeDateAndTime(t *testing.T) {
	tbl := parse(t,
		[]grid.Cell{grid.Date(2022, time.February, 14), grid.Clock(19, 30), grid.Number(4), E(), E()},
	)
	require.Len(t, tbl.Occasions, 1)
	o := tbl.Occasions[0]
	assert.Equal(t, model.Date(2022, time.February, 14), o.Date)
	assert.Equal(t, model.MustClock(19, 30), o.Start)
	assert.Nil(t, o.Stop)
	assert.Equal(t, []model.Scene{"4"}, o.Scenes.List())
}

func TestParse_NativeDateTimeInTimeColumn(t *testing.T) {
	tbl := parse(t,
		[]grid.Cell{T("Mo. 14.2.22"), grid.DateTime(time.Date(2022, 2, 14, 18, 45, 0, 0, time.UTC)), E(), E(), E()},
	)
	require.Len(t, tbl.Occasions, 1)
	assert.Equal(t, model.MustClock(18, 45), tbl.Occasions[0].Start)

	_, err := Parse(sheet(
		[]grid.Cell{T("Mo. 14.2.22"), grid.Date(2022, time.February, 14), E(), E(), E()},
	))
	assert.Equal(t, model.KindTokenParse, model.KindOf(err))
}

func TestParse_NoDateWithoutPrevious(t *testing.T) {
	_, err := Parse(sheet(
		[]grid.Cell{T("Mo."), T("10:00"), E(), E(), E()},
	))
	var re *model.ReferentialError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 4, re.Row)
	assert.Equal(t, 1, re.Col)
	assert.Equal(t, model.KindReferential, model.KindOf(err))
}

func TestParse_InvalidCalendarDate(t *testing.T) {
	_, err := Parse(sheet(
		[]grid.Cell{T("Mo. 31.2.22"), T("10:00"), E(), E(), E()},
	))
	var te *model.TokenParseError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Mo. 31.2.22", te.Token)
}

func TestParse_TimeGrammar(t *testing.T) {
	tests := []struct {
		in    string
		start string
		stop  string
		ok    bool
	}{
		{"10:00", "10:00", "", true},
		{"9:30", "09:30", "", true},
		{"10:00-12:30", "10:00", "12:30", true},
		{"10:00 – 12:30", "10:00", "12:30", true},
		{" 18:00–21:00 ", "18:00", "21:00", true},
		{"10 Uhr", "", "", false},
		{"25:00", "", "", false},
		{"10:75", "", "", false},
		{"12:00-10:00", "", "", false},
		{"10:00-", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tbl, err := Parse(sheet([]grid.Cell{T("Mo. 3.1.22"), T(tt.in), E(), E(), E()}))
			if !tt.ok {
				var te *model.TokenParseError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, 2, te.Col)
				assert.Equal(t, tt.in, te.Token)
				return
			}
			require.NoError(t, err)
			o := tbl.Occasions[0]
			assert.Equal(t, tt.start, o.Start.String())
			if tt.stop == "" {
				assert.Nil(t, o.Stop)
			} else {
				require.NotNil(t, o.Stop)
				assert.Equal(t, tt.stop, o.Stop.String())
			}
		})
	}
}

func TestParse_NumberInTimeColumn(t *testing.T) {
	_, err := Parse(sheet([]grid.Cell{T("Mo. 3.1.22"), grid.Number(10), E(), E(), E()}))
	assert.Equal(t, model.KindTokenParse, model.KindOf(err))
}

func TestParse_ScenesRoomNote(t *testing.T) {
	tbl := parse(t,
		[]grid.Cell{T("Mo. 3.1.22"), T("10:00"), T("3/5"), T(" Probebühne "), T(" Kostüme ")},
		[]grid.Cell{E(), T("12:00"), T("Durchlauf"), E(), E()},
		[]grid.Cell{E(), T("14:00"), E(), T("  "), E()},
	)
	require.Len(t, tbl.Occasions, 3)

	a := tbl.Occasions[0]
	assert.Equal(t, []model.Scene{"3", "5"}, a.Scenes.List())
	assert.Equal(t, "Probebühne", a.Room)
	assert.Equal(t, "Kostüme", a.Note)

	b := tbl.Occasions[1]
	assert.True(t, b.Scenes.IsSpecial())
	assert.Equal(t, "Durchlauf", b.Scenes.Label())
	assert.Empty(t, b.Room)
	assert.Empty(t, b.Note)

	c := tbl.Occasions[2]
	assert.True(t, c.Scenes.Unconditional())
	assert.Empty(t, c.Room)
}

func TestParse_InvalidScenesCell(t *testing.T) {
	_, err := Parse(sheet([]grid.Cell{T("Mo. 3.1.22"), T("10:00"), grid.Bool(true), E(), E()}))
	var te *model.TokenParseError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 3, te.Col)
}

func TestParse_StopTimeBackfill(t *testing.T) {
	tbl := parse(t,
		[]grid.Cell{T("Mo. 3.1.22"), T("10:00"), T("1"), E(), E()},
		[]grid.Cell{E(), T("12:00"), T("2"), E(), E()},
		[]grid.Cell{T("Di. 4.1.22"), T("18:00"), T("3"), E(), E()},
		[]grid.Cell{E(), T("19:00-20:00"), T("4"), E(), E()},
		[]grid.Cell{E(), T("20:30"), T("5"), E(), E()},
	)
	require.Len(t, tbl.Occasions, 5)
	stops := make([]string, len(tbl.Occasions))
	for i, o := range tbl.Occasions {
		if o.Stop != nil {
			stops[i] = o.Stop.String()
		}
	}
	assert.Equal(t, []string{"12:00", "", "19:00", "20:00", ""}, stops)
}

func TestParse_BackfillKeepsStartBeforeStop(t *testing.T) {
	tbl := parse(t,
		[]grid.Cell{T("Mo. 3.1.22"), T("14:00"), E(), E(), E()},
		[]grid.Cell{E(), T("10:00"), E(), E(), E()},
	)
	assert.Nil(t, tbl.Occasions[0].Stop)
}

func TestParse_IdentityReflectsBackfill(t *testing.T) {
	tbl := parse(t,
		[]grid.Cell{T("Mo. 3.1.22"), T("10:00"), T("1"), E(), E()},
		[]grid.Cell{E(), T("12:00"), T("2"), E(), E()},
	)
	first := tbl.Occasions[0]
	want := model.OccasionID(first.Date, first.Start, first.Stop, first.Scenes, "", "")
	assert.Equal(t, want, first.ID)

	again := parse(t,
		[]grid.Cell{T("Mo. 3.1.22"), T("10:00"), T("1"), E(), E()},
		[]grid.Cell{E(), T("12:00"), T("2"), E(), E()},
	)
	assert.Equal(t, first.ID, again.Occasions[0].ID)
}

func TestParse_MalformedRow(t *testing.T) {
	s := grid.NewSheet("plan.xlsx", 0, "Probenplan", [][]grid.Cell{
		header(),
		marker(),
		{T("Mo. 3.1.22"), T("10:00"), E(), E(), E()},
		{T("Di. 4.1.22"), T("10:00"), E()},
	})
	tbl, err := Parse(s)
	assert.Nil(t, tbl)

	var se *model.StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 4, se.Row)
	assert.Equal(t, 0, se.Col)
	assert.Contains(t, err.Error(), "row 4")
}

func TestParse_SkipsBlankDataRows(t *testing.T) {
	tbl := parse(t,
		[]grid.Cell{T("Mo. 3.1.22"), T("10:00"), E(), E(), E()},
		[]grid.Cell{E(), T(" "), E(), E(), E()},
		[]grid.Cell{E(), T("11:00"), E(), E(), E()},
	)
	assert.Len(t, tbl.Occasions, 2)
}

func TestParse_SkipsMissingRows(t *testing.T) {
	tbl := parse(t,
		[]grid.Cell{T("Mo. 3.1.22"), T("10:00"), E(), E(), E()},
		nil,
		[]grid.Cell{E(), T("11:00"), E(), E(), E()},
	)
	assert.Len(t, tbl.Occasions, 2)
}

func TestParse_FourDigitYearRejected(t *testing.T) {
	_, err := Parse(sheet(
		[]grid.Cell{T("Mo. 3.1.22"), T("10:00"), E(), E(), E()},
		[]grid.Cell{T("Di. 4.1.2022"), T("10:00"), E(), E(), E()},
	))
	var te *model.TokenParseError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 5, te.Row)
	assert.Equal(t, 1, te.Col)
	assert.Equal(t, "Di. 4.1.2022", te.Token)
}

func TestParse_EmptySheet(t *testing.T) {
	_, err := Parse(grid.NewSheet("plan.xlsx", 0, "Probenplan", nil))
	require.Error(t, err)
	assert.Equal(t, model.KindStructural, model.KindOf(err))
}

func TestScanDate(t *testing.T) {
	tests := []struct {
		in    string
		want  time.Time
		found bool
		err   bool
	}{
		{"Mo. 3.1.22", model.Date(2022, 1, 3), true, false},
		{"Mo.3.1.22", model.Date(2022, 1, 3), true, false},
		{"Fr. 14.10.22 (Probe)", model.Date(2022, 10, 14), true, false},
		{"1.1.22 und 2.1.22", model.Date(2022, 1, 1), true, false},
		{"Mo.", time.Time{}, false, false},
		{"", time.Time{}, false, false},
		{"30.2.22", time.Time{}, true, true},
		{"Mo. 3.1.2022", time.Time{}, true, true},
	}
	for _, tt := range tests {
		got, found, err := scanDate(tt.in)
		assert.Equal(t, tt.found, found, tt.in)
		assert.Equal(t, tt.err, err != nil, tt.in)
		if !tt.err {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestParse_ErrorsAreStructured(t *testing.T) {
	_, err := Parse(sheet([]grid.Cell{T("Mo. 3.1.22"), T("abends"), E(), E(), E()}))
	var te *model.TokenParseError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "plan.xlsx", te.File)
	assert.Equal(t, "Probenplan", te.Sheet)
	assert.Equal(t, 4, te.Row)
	assert.Equal(t, "abends", te.Token)
}

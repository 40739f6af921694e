package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var enrolled = time.Date(2026, time.January, 5, 9, 30, 0, 0, time.UTC)

func daysAfter(n int) time.Time {
	return enrolled.Add(time.Duration(n) * 24 * time.Hour)
}

func TestPositionBoundaries(t *testing.T) {
	p := DefaultPattern()

	cases := []struct {
		name string
		now  time.Time
		want Position
	}{
		{"enrollment instant", enrolled, Position{Term: 1, Week: 1}},
		{"before enrollment", enrolled.Add(-72 * time.Hour), Position{Term: 1, Week: 1}},
		{"end of first week", daysAfter(6), Position{Term: 1, Week: 1}},
		{"second week", daysAfter(7), Position{Term: 1, Week: 2}},
		{"last term 1 week", daysAfter(41), Position{Term: 1, Week: 6}},
		{"entering break 1", daysAfter(42), Position{Term: 1, Week: 6, IsBreak: true}},
		{"inside break 1", daysAfter(55), Position{Term: 1, Week: 6, IsBreak: true}},
		{"term 2 starts", daysAfter(56), Position{Term: 2, Week: 1}},
		{"entering break 2", daysAfter(98), Position{Term: 2, Week: 6, IsBreak: true}},
		{"term 3 starts", daysAfter(112), Position{Term: 3, Week: 1}},
		{"last week", daysAfter(153), Position{Term: 3, Week: 6}},
		{"completed", daysAfter(154), Position{Term: 3, Week: 6, Completed: true}},
		{"past 28 weeks", daysAfter(197), Position{Term: 3, Week: 6, Completed: true}},
		{"long after", daysAfter(400), Position{Term: 3, Week: 6, Completed: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.Position(enrolled, tc.now))
		})
	}
}

func TestAvailabilityDateInverse(t *testing.T) {
	p := DefaultPattern()
	zones := []*time.Location{time.UTC, time.FixedZone("IST", 5*3600+1800)}
	if ny, err := time.LoadLocation("America/New_York"); err == nil {
		zones = append(zones, ny)
	}

	for _, loc := range zones {
		start := time.Date(2026, time.February, 20, 23, 15, 0, 0, loc)
		for term := 1; term <= p.Terms(); term++ {
			for week := 1; week <= p.WeeksInTerm(term); week++ {
				at, err := p.AvailabilityDate(start, term, week)
				require.NoError(t, err)
				assert.Equal(t, Position{Term: term, Week: week}, p.Position(start, at), "%s t%d w%d", loc, term, week)
				assert.Equal(t, Position{Term: term, Week: week}, p.Position(start, at.Add(6*24*time.Hour)), "%s t%d w%d end of week", loc, term, week)
			}
		}
	}
}

func TestAvailabilityDateOffsets(t *testing.T) {
	p := DefaultPattern()

	at, err := p.AvailabilityDate(enrolled, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, enrolled, at)

	at, err = p.AvailabilityDate(enrolled, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, daysAfter(56), at)

	at, err = p.AvailabilityDate(enrolled, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, daysAfter(112+21), at)

	_, err = p.AvailabilityDate(enrolled, 4, 1)
	assert.ErrorIs(t, err, ErrInvalidPosition)
	_, err = p.AvailabilityDate(enrolled, 1, 7)
	assert.ErrorIs(t, err, ErrInvalidPosition)
	_, err = p.AvailabilityDate(enrolled, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("term:4, break:1, term:4")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Terms())
	assert.Equal(t, 9, p.TotalWeeks())
	assert.Equal(t, "term:4,break:1,term:4", p.String())
	assert.Equal(t, Position{Term: 1, Week: 4, IsBreak: true}, p.Position(enrolled, daysAfter(28)))
	assert.Equal(t, Position{Term: 2, Week: 1}, p.Position(enrolled, daysAfter(35)))

	def, err := ParsePattern("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPattern().String(), def.String())

	for _, raw := range []string{"break:2,term:6", "term:6,break:2", "term:0", "term:6,holiday:2,term:6", "term6", "term:6,break:1,break:1,term:6"} {
		_, err := ParsePattern(raw)
		assert.Error(t, err, raw)
	}
}

func TestPositionReached(t *testing.T) {
	pos := Position{Term: 2, Week: 3}
	assert.True(t, pos.Reached(1, 6))
	assert.True(t, pos.Reached(2, 3))
	assert.False(t, pos.Reached(2, 4))
	assert.False(t, pos.Reached(3, 1))
}

func TestWindows(t *testing.T) {
	p := DefaultPattern()
	windows := p.Windows(enrolled)
	require.Len(t, windows, 5)
	assert.Equal(t, PhaseTerm, windows[0].Kind)
	assert.Equal(t, enrolled, windows[0].Start)
	assert.Equal(t, daysAfter(42), windows[0].End)
	assert.Equal(t, PhaseBreak, windows[1].Kind)
	assert.Equal(t, 1, windows[1].Index)
	assert.Equal(t, 3, windows[4].Index)
	assert.Equal(t, daysAfter(154), windows[4].End)
	assert.Equal(t, p.EndDate(enrolled), windows[4].End)
}

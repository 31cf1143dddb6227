package season

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence(t *testing.T) {
	t.Parallel()

	var s Sequence
	assert.Equal(t, Preseason, s.Min())
	assert.Equal(t, Preseason, s.Current())
	assert.Equal(t, RegularSeason, s.Next())
	assert.Equal(t, Postseason, s.Next())
	assert.Equal(t, Preseason, s.Next())

	require.NoError(t, s.Set(Postseason))
	assert.Equal(t, Postseason, s.Current())

	err := s.Set("offseason")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSeasonType)
	// Position is untouched on invalid input.
	assert.Equal(t, Postseason, s.Current())
}

func TestNextWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		last *Window
		want Window
	}{
		{
			name: "cold start",
			last: nil,
			want: Window{Season: 2017, Type: Preseason, Week: 0},
		},
		{
			name: "intraweek increment",
			last: &Window{Season: 2019, Type: RegularSeason, Week: 6},
			want: Window{Season: 2019, Type: RegularSeason, Week: 7},
		},
		{
			name: "preseason week increment",
			last: &Window{Season: 2019, Type: Preseason, Week: 2},
			want: Window{Season: 2019, Type: Preseason, Week: 3},
		},
		{
			name: "preseason rolls into regular season",
			last: &Window{Season: 2019, Type: Preseason, Week: 4},
			want: Window{Season: 2019, Type: RegularSeason, Week: 1},
		},
		{
			name: "regular season rolls into postseason",
			last: &Window{Season: 2019, Type: RegularSeason, Week: 17},
			want: Window{Season: 2019, Type: Postseason, Week: 1},
		},
		{
			name: "postseason week increment",
			last: &Window{Season: 2019, Type: Postseason, Week: 19},
			want: Window{Season: 2019, Type: Postseason, Week: 20},
		},
		{
			name: "postseason wraps to next season",
			last: &Window{Season: 2019, Type: Postseason, Week: 22},
			want: Window{Season: 2020, Type: Preseason, Week: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NextWindow(tt.last))
		})
	}
}

func TestSeasonOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2019, SeasonOf(time.Date(2019, time.September, 8, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2019, SeasonOf(time.Date(2020, time.January, 12, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2019, SeasonOf(time.Date(2020, time.February, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2020, SeasonOf(time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

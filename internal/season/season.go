package season

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Type is one of the three season phases in their calendar order.
type Type string

const (
	Preseason     Type = "preseason"
	RegularSeason Type = "regular_season"
	Postseason    Type = "postseason"
)

// MinSeason is the floor for cold-start synchronization.
const MinSeason = 2017

// ErrUnknownSeasonType is returned when a label outside the three known
// phases reaches the sequence.
var ErrUnknownSeasonType = errors.New("unknown season type")

var order = []Type{Preseason, RegularSeason, Postseason}

// Sequence is a cyclic cursor over the season phases.
type Sequence struct {
	idx int
}

// Min returns the first phase of the progression.
func (s *Sequence) Min() Type {
	return order[0]
}

// Current returns the phase the sequence is positioned on.
func (s *Sequence) Current() Type {
	return order[s.idx]
}

// Set positions the sequence on the given phase. Unknown labels are an
// error, never silently defaulted.
func (s *Sequence) Set(t Type) error {
	for i, st := range order {
		if st == t {
			s.idx = i
			return nil
		}
	}
	return errors.Wrapf(ErrUnknownSeasonType, "%q", t)
}

// Next advances to the following phase, wrapping past postseason back to
// preseason.
func (s *Sequence) Next() Type {
	s.idx++
	if s.idx == len(order) {
		s.idx = 0
	}
	return order[s.idx]
}

// SeasonOf maps a calendar date to its NFL season year. January and February
// belong to the prior season; the boundary is March 1.
func SeasonOf(t time.Time) int {
	if t.Month() < time.March {
		return t.Year() - 1
	}
	return t.Year()
}

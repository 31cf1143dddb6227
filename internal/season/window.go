package season

import "fmt"

// Week bounds within each phase. Postseason weeks are also externally
// addressable as 18-22 (skipping 21); 22 is the final postseason week.
const (
	lastPreseasonWeek     = 4
	lastRegularSeasonWeek = 17
	lastPostseasonWeek    = 22
)

// Window is one fetchable (season, season_type, week) position.
type Window struct {
	Season int
	Type   Type
	Week   int
}

func (w Window) String() string {
	return fmt.Sprintf("%d/%s/%d", w.Season, w.Type, w.Week)
}

// NextWindow computes the first unfetched window after the last successfully
// processed one. A nil last window is a cold start and yields the floor of
// the progression. Requesting past the final postseason week wraps to the
// next season's preseason, never fails.
func NextWindow(last *Window) Window {
	if last == nil {
		return Window{Season: MinSeason, Type: Preseason, Week: 0}
	}

	next := *last
	switch {
	case last.Week == lastPostseasonWeek:
		next.Season++
		next.Type = Preseason
		next.Week = 0
	case last.Week == lastPreseasonWeek && last.Type == Preseason:
		next.Type = RegularSeason
		next.Week = 1
	case last.Week == lastRegularSeasonWeek:
		next.Type = Postseason
		next.Week = 1
	default:
		next.Week++
	}
	return next
}

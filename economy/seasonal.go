// economy/seasonal.go
package economy

import (
	"math"
	"time"
)

// Season is a recurring gifting window with an XP multiplier.
type Season struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	StartMonth time.Month `json:"-"`
	StartDay   int        `json:"-"`
	EndMonth   time.Month `json:"-"`
	EndDay     int        `json:"-"`
	Multiplier float64    `json:"multiplier"`
}

// Seasons never overlap and never wrap the year end.
var Seasons = []Season{
	{Code: "valentines", Name: "Valentine's Rush", StartMonth: time.February, StartDay: 1, EndMonth: time.February, EndDay: 14, Multiplier: 1.5},
	{Code: "mothers-day", Name: "Mother's Day", StartMonth: time.May, StartDay: 1, EndMonth: time.May, EndDay: 14, Multiplier: 1.25},
	{Code: "fathers-day", Name: "Father's Day", StartMonth: time.June, StartDay: 1, EndMonth: time.June, EndDay: 21, Multiplier: 1.25},
	{Code: "holiday", Name: "Holiday Season", StartMonth: time.November, StartDay: 15, EndMonth: time.December, EndDay: 31, Multiplier: 2.0},
}

func monthDay(m time.Month, d int) int { return int(m)*100 + d }

func (s Season) contains(t time.Time) bool {
	md := monthDay(t.Month(), t.Day())
	return md >= monthDay(s.StartMonth, s.StartDay) && md <= monthDay(s.EndMonth, s.EndDay)
}

// ActiveSeason returns the season running at t (UTC calendar), if any.
func ActiveSeason(t time.Time) (Season, bool) {
	t = t.UTC()
	for _, s := range Seasons {
		if s.contains(t) {
			return s, true
		}
	}
	return Season{}, false
}

// MultiplierAt returns the XP multiplier in effect at t; 1 outside seasons.
func MultiplierAt(t time.Time) float64 {
	if s, ok := ActiveSeason(t); ok {
		return s.Multiplier
	}
	return 1
}

// ApplyMultiplier scales xp by the multiplier active at t, rounding down.
func ApplyMultiplier(xp int64, t time.Time) int64 {
	if xp <= 0 {
		return 0
	}
	return int64(math.Floor(float64(xp) * MultiplierAt(t)))
}

// Package streak derives consecutive-day study streaks from sessions.
package streak

import (
	"time"

	"github.com/verte-zerg/nextstep/internal/model"
)

// ActiveDays returns the set of calendar days (in loc) with at least one session.
func ActiveDays(sessions []model.Session, loc *time.Location) map[model.Date]struct{} {
	days := make(map[model.Date]struct{}, len(sessions))
	for _, s := range sessions {
		days[model.DateOf(s.Timestamp.In(loc))] = struct{}{}
	}
	return days
}

// Current counts consecutive studied days ending today, or ending yesterday
// when nothing has been logged yet today. Days are taken in now's location.
func Current(sessions []model.Session, now time.Time) int {
	days := ActiveDays(sessions, now.Location())
	day := model.DateOf(now)
	if _, ok := days[day]; !ok {
		day = day.AddDays(-1)
		if _, ok := days[day]; !ok {
			return 0
		}
	}
	count := 0
	for {
		if _, ok := days[day]; !ok {
			return count
		}
		count++
		day = day.AddDays(-1)
	}
}

// Longest returns the longest run of consecutive studied days.
func Longest(sessions []model.Session, loc *time.Location) int {
	days := ActiveDays(sessions, loc)
	best := 0
	for day := range days {
		// Only start counting at the first day of a run.
		if _, ok := days[day.AddDays(-1)]; ok {
			continue
		}
		n := 0
		for d := day; ; d = d.AddDays(1) {
			if _, ok := days[d]; !ok {
				break
			}
			n++
		}
		if n > best {
			best = n
		}
	}
	return best
}

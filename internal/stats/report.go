package stats

import (
	"time"

	"github.com/verte-zerg/nextstep/internal/model"
)

// Source is the read side of the tracker used for reporting.
type Source interface {
	Sessions(f model.SessionFilter) []model.Session
	Subjects() []model.Subject
	CurrentStreak(now time.Time) int
	LongestStreak(loc *time.Location) int
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Summary Summary
	Window  int
}

// defaultDays is the daily chart span when no day filter is given.
const defaultDays = 14

// BuildReport filters sessions per cfg and summarizes them. Streaks always
// cover the full log.
func BuildReport(src Source, cfg model.StatsConfig, now time.Time) Report {
	filter := model.SessionFilter{Subject: cfg.Subject}
	if cfg.LastDays > 0 {
		since := model.DateOf(now).AddDays(-(cfg.LastDays - 1))
		start := time.Date(since.Year, since.Month, since.Day, 0, 0, 0, 0, now.Location())
		filter.Since = &start
	}
	subjects := src.Subjects()
	if cfg.Subject != "" {
		filtered := subjects[:0]
		for _, s := range subjects {
			if s.Name == cfg.Subject {
				filtered = append(filtered, s)
			}
		}
		subjects = filtered
	}
	days := cfg.Days
	if days <= 0 {
		days = cfg.LastDays
	}
	if days <= 0 {
		days = defaultDays
	}
	sum := Summarize(src.Sessions(filter), subjects, now, days)
	sum.CurrentStreak = src.CurrentStreak(now)
	sum.LongestStreak = src.LongestStreak(now.Location())
	return Report{Summary: sum, Window: 3}
}

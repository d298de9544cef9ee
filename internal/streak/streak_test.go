package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/nextstep/internal/model"
)

var now = time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC)

func daysAgo(days ...int) []model.Session {
	out := make([]model.Session, 0, len(days))
	for _, d := range days {
		out = append(out, model.Session{Subject: "Maths", Timestamp: now.AddDate(0, 0, -d)})
	}
	return out
}

func TestCurrent(t *testing.T) {
	tests := []struct {
		name     string
		sessions []model.Session
		want     int
	}{
		{name: "empty", sessions: nil, want: 0},
		{name: "only older days", sessions: daysAgo(2, 3, 4), want: 0},
		{name: "today only", sessions: daysAgo(0), want: 1},
		{name: "run ending today", sessions: daysAgo(0, 1, 2, 3), want: 4},
		{name: "run ending yesterday", sessions: daysAgo(1, 2, 3), want: 3},
		{name: "same day twice", sessions: daysAgo(0, 0, 1), want: 2},
		{name: "gap ends the run", sessions: daysAgo(0, 1, 2, 4, 5, 6, 7), want: 3},
		{name: "unordered input", sessions: daysAgo(2, 0, 1), want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Current(tt.sessions, now))
		})
	}
}

func TestCurrentUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 22:30 UTC on 9 June is already 10 June at UTC+3.
	sessions := []model.Session{{Timestamp: time.Date(2025, 6, 9, 22, 30, 0, 0, time.UTC)}}

	require.Equal(t, 1, Current(sessions, time.Date(2025, 6, 10, 12, 0, 0, 0, loc)))
	require.Equal(t, 1, Current(sessions, time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)))
	require.Equal(t, 0, Current(sessions, time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)))
}

func TestLongest(t *testing.T) {
	require.Equal(t, 0, Longest(nil, time.UTC))
	require.Equal(t, 4, Longest(daysAgo(0, 1, 5, 6, 7, 8, 10, 10), time.UTC))
	require.Len(t, ActiveDays(daysAgo(0, 0, 1), time.UTC), 2)
}

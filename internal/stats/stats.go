package stats

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/nextstep/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SubjectSummary aggregates sessions for one subject.
type SubjectSummary struct {
	Name             string
	Sessions         int
	Minutes          int
	AvgEffectiveness float64
	Confidence       int
	DaysUntilExam    *int
	// Registered is false for subjects that only appear in the log.
	Registered bool
}

// TaskSummary aggregates sessions for one task type.
type TaskSummary struct {
	Task             model.TaskType
	Sessions         int
	Minutes          int
	AvgEffectiveness float64
}

// DailyTotal is the study time logged on one calendar day.
type DailyTotal struct {
	Day      model.Date
	Minutes  int
	Sessions int
}

// Summary holds totals over a set of sessions.
type Summary struct {
	Sessions         int
	Minutes          int
	AvgEffectiveness float64
	Subjects         []SubjectSummary
	Tasks            []TaskSummary
	Daily            []DailyTotal
	CurrentStreak    int
	LongestStreak    int
}

type tally struct {
	sessions      int
	minutes       int
	effectiveness int
}

func (t *tally) add(s model.Session) {
	t.sessions++
	t.minutes += s.DurationMinutes
	t.effectiveness += s.Effectiveness
}

func (t *tally) avg() float64 {
	if t.sessions == 0 {
		return 0
	}
	return float64(t.effectiveness) / float64(t.sessions)
}

// Summarize aggregates sessions per subject and per task, and lays out daily
// totals for the last days calendar days ending at now. Registered subjects
// without sessions are still listed.
func Summarize(sessions []model.Session, subjects []model.Subject, now time.Time, days int) Summary {
	var total tally
	bySubject := map[string]*tally{}
	byTask := map[model.TaskType]*tally{}
	for _, s := range sessions {
		total.add(s)
		if bySubject[s.Subject] == nil {
			bySubject[s.Subject] = &tally{}
		}
		bySubject[s.Subject].add(s)
		if byTask[s.Task] == nil {
			byTask[s.Task] = &tally{}
		}
		byTask[s.Task].add(s)
	}

	today := model.DateOf(now)
	known := map[string]model.Subject{}
	for _, s := range subjects {
		known[s.Name] = s
		if bySubject[s.Name] == nil {
			bySubject[s.Name] = &tally{}
		}
	}

	sum := Summary{
		Sessions:         total.sessions,
		Minutes:          total.minutes,
		AvgEffectiveness: total.avg(),
	}
	for name, t := range bySubject {
		row := SubjectSummary{
			Name:             name,
			Sessions:         t.sessions,
			Minutes:          t.minutes,
			AvgEffectiveness: t.avg(),
		}
		if s, ok := known[name]; ok {
			row.Registered = true
			row.Confidence = s.Confidence
			if s.ExamDate != nil {
				d := today.DaysUntil(*s.ExamDate)
				row.DaysUntilExam = &d
			}
		}
		sum.Subjects = append(sum.Subjects, row)
	}
	sort.Slice(sum.Subjects, func(i, j int) bool {
		return sum.Subjects[i].Name < sum.Subjects[j].Name
	})

	for _, spec := range model.TaskSpecs() {
		t, ok := byTask[spec.Type]
		if !ok {
			continue
		}
		sum.Tasks = append(sum.Tasks, TaskSummary{
			Task:             spec.Type,
			Sessions:         t.sessions,
			Minutes:          t.minutes,
			AvgEffectiveness: t.avg(),
		})
	}

	sum.Daily = DailyTotals(sessions, now, days)
	return sum
}

// DailyTotals returns one entry per calendar day (in now's location) for the
// last days days ending today, oldest first. Days without sessions are zero.
func DailyTotals(sessions []model.Session, now time.Time, days int) []DailyTotal {
	if days <= 0 {
		return nil
	}
	today := model.DateOf(now)
	first := today.AddDays(-(days - 1))
	out := make([]DailyTotal, days)
	for i := range out {
		out[i].Day = first.AddDays(i)
	}
	for _, s := range sessions {
		day := model.DateOf(s.Timestamp.In(now.Location()))
		idx := first.DaysUntil(day)
		if idx < 0 || idx >= days {
			continue
		}
		out[idx].Minutes += s.DurationMinutes
		out[idx].Sessions++
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i := range values {
		sum += values[i]
		den := float64(i + 1)
		if i >= window {
			sum -= values[i-window]
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[max(0, min(idx, len(sparkChars)-1))])
	}
	return b.String()
}

// WeakestSubjects returns up to n registered subjects with sessions, lowest
// average effectiveness first.
func WeakestSubjects(rows []SubjectSummary, n int) []SubjectSummary {
	candidates := make([]SubjectSummary, 0, len(rows))
	for _, r := range rows {
		if r.Registered && r.Sessions > 0 {
			candidates = append(candidates, r)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].AvgEffectiveness == candidates[j].AvgEffectiveness {
			return candidates[i].Name < candidates[j].Name
		}
		return candidates[i].AvgEffectiveness < candidates[j].AvgEffectiveness
	})
	if n > 0 && n < len(candidates) {
		candidates = candidates[:n]
	}
	return candidates
}

// TopSubjectsByMinutes returns the names of the n most studied subjects.
func TopSubjectsByMinutes(rows []SubjectSummary, n int) []string {
	if n <= 0 || len(rows) == 0 {
		return nil
	}
	sorted := append([]SubjectSummary(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Minutes == sorted[j].Minutes {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Minutes > sorted[j].Minutes
	})
	n = min(n, len(sorted))
	out := make([]string, 0, n)
	for _, r := range sorted[:n] {
		out = append(out, r.Name)
	}
	return out
}

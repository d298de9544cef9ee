package stats

import (
	"fmt"
	"io"
	"strings"
)

// RenderSummary prints overall totals and the streak.
func RenderSummary(w io.Writer, sum Summary) error {
	if sum.Sessions == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", sum.Sessions),
		fmt.Sprintf("Total time: %s", FormatMinutes(sum.Minutes)),
		fmt.Sprintf("Avg effectiveness: %.1f", sum.AvgEffectiveness),
		fmt.Sprintf("Current streak: %s", pluralDays(sum.CurrentStreak)),
		fmt.Sprintf("Longest streak: %s", pluralDays(sum.LongestStreak)),
		"",
	}
	return writeLines(w, lines)
}

// RenderSubjectTable prints per-subject aggregates.
func RenderSubjectTable(w io.Writer, rows []SubjectSummary) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No subjects found.")
		return err
	}
	cols := []column{
		{title: "Subject"},
		{title: "Confidence", right: true},
		{title: "Exam"},
		{title: "Sessions", right: true},
		{title: "Time", right: true},
		{title: "Avg Eff.", right: true},
	}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		conf := "-"
		if r.Registered {
			conf = fmt.Sprintf("%d", r.Confidence)
		}
		tableRows = append(tableRows, []string{
			r.Name,
			conf,
			ExamLabel(r.DaysUntilExam),
			fmt.Sprintf("%d", r.Sessions),
			FormatMinutes(r.Minutes),
			avgLabel(r.Sessions, r.AvgEffectiveness),
		})
	}
	lines := append([]string{"Per Subject"}, renderTable(cols, tableRows)...)
	return writeLines(w, append(lines, ""))
}

// RenderTaskTable prints per-task aggregates.
func RenderTaskTable(w io.Writer, rows []TaskSummary) error {
	if len(rows) == 0 {
		return nil
	}
	cols := []column{
		{title: "Task"},
		{title: "Sessions", right: true},
		{title: "Time", right: true},
		{title: "Avg Eff.", right: true},
	}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			r.Task.Label(),
			fmt.Sprintf("%d", r.Sessions),
			FormatMinutes(r.Minutes),
			avgLabel(r.Sessions, r.AvgEffectiveness),
		})
	}
	lines := append([]string{"Per Task"}, renderTable(cols, tableRows)...)
	return writeLines(w, append(lines, ""))
}

// RenderDaily prints a sparkline of minutes per day with a moving average.
func RenderDaily(w io.Writer, daily []DailyTotal, window int) error {
	if len(daily) == 0 {
		return nil
	}
	values := make([]float64, len(daily))
	for i, d := range daily {
		values[i] = float64(d.Minutes)
	}
	lines := []string{
		fmt.Sprintf("Daily minutes (%s to %s)", daily[0].Day, daily[len(daily)-1].Day),
		"  raw: " + Sparkline(values),
	}
	if window > 1 {
		lines = append(lines, fmt.Sprintf("  avg: %s (window %d)", Sparkline(MovingAverage(values, window)), window))
	}
	return writeLines(w, append(lines, ""))
}

// RenderReport prints every section of a report.
func RenderReport(w io.Writer, r Report) error {
	if err := RenderSummary(w, r.Summary); err != nil {
		return err
	}
	if err := RenderSubjectTable(w, r.Summary.Subjects); err != nil {
		return err
	}
	if r.Summary.Sessions == 0 {
		return nil
	}
	if err := RenderTaskTable(w, r.Summary.Tasks); err != nil {
		return err
	}
	if top := TopSubjectsByMinutes(r.Summary.Subjects, 3); len(top) > 0 {
		if _, err := fmt.Fprintf(w, "Most studied: %s\n", strings.Join(top, ", ")); err != nil {
			return err
		}
	}
	if weak := WeakestSubjects(r.Summary.Subjects, 1); len(weak) == 1 {
		if _, err := fmt.Fprintf(w, "Least effective: %s (%.1f)\n", weak[0].Name, weak[0].AvgEffectiveness); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return RenderDaily(w, r.Summary.Daily, r.Window)
}

// FormatMinutes renders a duration as "1h 05m" or "45m".
func FormatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}

// ExamLabel renders the days until an exam.
func ExamLabel(days *int) string {
	switch {
	case days == nil:
		return "-"
	case *days < 0:
		return "done"
	case *days == 0:
		return "today"
	default:
		return fmt.Sprintf("%dd", *days)
	}
}

func avgLabel(n int, avg float64) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", avg)
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func writeLines(w io.Writer, lines []string) error {
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/nextstep/internal/config"
	"github.com/verte-zerg/nextstep/internal/engine"
	"github.com/verte-zerg/nextstep/internal/export"
	"github.com/verte-zerg/nextstep/internal/legacy"
	"github.com/verte-zerg/nextstep/internal/model"
	"github.com/verte-zerg/nextstep/internal/stats"
	"github.com/verte-zerg/nextstep/internal/statsui"
	"github.com/verte-zerg/nextstep/internal/tracker"
)

var (
	suggestEnergy  string
	suggestMinutes int
	suggestTop     int

	logSubject       string
	logTask          string
	logMinutes       int
	logEffectiveness int
	logConfidence    int
	logAt            string

	addConfidence int
	addExam       string
	addExclude    []string

	sessionsSubject  string
	sessionsLastDays int
	sessionsLast     int

	statsPlain    bool
	statsSubject  string
	statsLastDays int
	statsDays     int

	exportOut string
)

func newSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Print ranked study suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyStringConfig(cmd, "energy", &suggestEnergy, fileCfg.Suggest.Energy)
			applyIntConfig(cmd, "minutes", &suggestMinutes, fileCfg.Suggest.Minutes)
			applyIntConfig(cmd, "top", &suggestTop, fileCfg.Suggest.Top)
			if suggestTop <= 0 {
				return fmt.Errorf("--top must be > 0")
			}
			req, err := parseRequest(suggestEnergy, suggestMinutes)
			if err != nil {
				return err
			}
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				return printSuggestions(cmd.OutOrStdout(), tr, req, suggestTop)
			})
		},
	}
	cmd.Flags().StringVar(&suggestEnergy, "energy", defaultEnergy, "energy level (low, medium, high)")
	cmd.Flags().IntVar(&suggestMinutes, "minutes", defaultMinutes, "minutes available (0 for no limit)")
	cmd.Flags().IntVar(&suggestTop, "top", defaultTop, "number of ranked candidates to list")
	return cmd
}

func printSuggestions(w io.Writer, tr *tracker.Tracker, req engine.Request, top int) error {
	rec, err := tr.Recommend(nowFunc(), req)
	if err != nil {
		if errors.Is(err, model.ErrNoEligibleSubjects) {
			if len(tr.Subjects()) == 0 {
				return printf(w, "Nothing to suggest right now (%v).\nAdd subjects with: nextstep subjects add <name>\n", err)
			}
			return printf(w, "Nothing to suggest right now (%v).\nEverything was studied recently or needs more time. Try again later or allow more --minutes.\n", err)
		}
		return err
	}
	best := rec.Best
	if err := printf(w, "Study %s: %s\n", best.Subject, best.Task.Label()); err != nil {
		return err
	}
	for _, reason := range engine.Rationale(best) {
		if err := printf(w, "  - %s\n", reason); err != nil {
			return err
		}
	}
	if top <= 1 {
		return nil
	}
	if err := printf(w, "\n"); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSUBJECT\tTASK\tSCORE\tEXAM\tNOTE")
	for i, c := range rec.Ranked {
		if i >= top {
			break
		}
		note := ""
		if c.Overshoot {
			note = "needs more energy"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\t%s\t%s\n", i+1, c.Subject, c.Task.Label(), c.Score, stats.ExamLabel(c.DaysUntilExam), note)
	}
	return tw.Flush()
}

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log a completed study session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			task, err := model.ParseTaskType(logTask)
			if err != nil {
				return fmt.Errorf("--task: %w", err)
			}
			at := nowFunc()
			if logAt != "" {
				at, err = parseTimestamp(logAt)
				if err != nil {
					return err
				}
			}
			var confidence *int
			if cmd.Flags().Changed("confidence") {
				confidence = &logConfidence
			}
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				s, err := tr.LogSession(cmd.Context(), model.Session{
					Subject:         strings.TrimSpace(logSubject),
					Task:            task,
					DurationMinutes: logMinutes,
					Effectiveness:   logEffectiveness,
					Timestamp:       at,
				}, confidence)
				if err != nil {
					return err
				}
				return printf(cmd.OutOrStdout(), "Logged %s %s for %s. Streak: %d day(s).\n",
					s.Subject, s.Task.Label(), stats.FormatMinutes(s.DurationMinutes), tr.CurrentStreak(nowFunc()))
			})
		},
	}
	cmd.Flags().StringVarP(&logSubject, "subject", "s", "", "subject studied")
	cmd.Flags().StringVarP(&logTask, "task", "t", "", fmt.Sprintf("task type (%s)", strings.Join(model.TaskNames(), ", ")))
	cmd.Flags().IntVarP(&logMinutes, "minutes", "m", 0, "minutes studied")
	cmd.Flags().IntVarP(&logEffectiveness, "effectiveness", "e", 0, "how effective the session was")
	cmd.Flags().IntVarP(&logConfidence, "confidence", "c", 0, "new confidence for the subject")
	cmd.Flags().StringVar(&logAt, "at", "", "session time (YYYY-MM-DD HH:MM, default now)")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("minutes")
	_ = cmd.MarkFlagRequired("effectiveness")
	return cmd
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --at value %q (expected YYYY-MM-DD HH:MM)", s)
}

func newConfidenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confidence <subject> <value>",
		Short: "Set a subject's confidence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid confidence %q", args[1])
			}
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				if err := tr.UpdateConfidence(cmd.Context(), args[0], value); err != nil {
					return err
				}
				return printf(cmd.OutOrStdout(), "%s confidence set to %d.\n", args[0], value)
			})
		},
	}
}

func newSubjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "Manage subjects",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				return printSubjects(cmd.OutOrStdout(), tr.Subjects(), nowFunc())
			})
		},
	}
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exam, err := parseExamDate(addExam)
			if err != nil {
				return err
			}
			excluded, err := parseTasks(addExclude)
			if err != nil {
				return err
			}
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				confidence := addConfidence
				if !cmd.Flags().Changed("confidence") {
					confidence = tr.Bounds().Confidence.Mid()
				}
				sub := model.Subject{
					Name:          strings.TrimSpace(args[0]),
					Confidence:    confidence,
					ExamDate:      exam,
					ExcludedTasks: excluded,
				}
				if err := tr.AddSubject(cmd.Context(), sub); err != nil {
					return err
				}
				return printf(cmd.OutOrStdout(), "Added %s.\n", sub.Name)
			})
		},
	}
	add.Flags().IntVarP(&addConfidence, "confidence", "c", 0, "confidence (default: middle of the scale)")
	add.Flags().StringVar(&addExam, "exam", "", "exam date (YYYY-MM-DD)")
	add.Flags().StringSliceVar(&addExclude, "exclude", nil, "task types never to suggest")

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a subject (its sessions are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				if err := tr.RemoveSubject(cmd.Context(), args[0]); err != nil {
					return err
				}
				return printf(cmd.OutOrStdout(), "Removed %s.\n", args[0])
			})
		},
	}
	exam := &cobra.Command{
		Use:   "exam <name> <YYYY-MM-DD|none>",
		Short: "Set or clear a subject's exam date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseExamDate(args[1])
			if err != nil {
				return err
			}
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				if err := tr.SetExamDate(cmd.Context(), args[0], date); err != nil {
					return err
				}
				if date == nil {
					return printf(cmd.OutOrStdout(), "Cleared exam date for %s.\n", args[0])
				}
				return printf(cmd.OutOrStdout(), "%s exam set to %s.\n", args[0], date)
			})
		},
	}
	exclude := &cobra.Command{
		Use:   "exclude <name> [task...]",
		Short: "Replace the task types never suggested for a subject",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := parseTasks(args[1:])
			if err != nil {
				return err
			}
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				if err := tr.SetExcludedTasks(cmd.Context(), args[0], tasks); err != nil {
					return err
				}
				return printf(cmd.OutOrStdout(), "%s now excludes %d task type(s).\n", args[0], len(tasks))
			})
		},
	}
	cmd.AddCommand(list, add, remove, exam, exclude)
	return cmd
}

func parseExamDate(s string) (*model.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseTasks(names []string) ([]model.TaskType, error) {
	var out []model.TaskType
	for _, name := range names {
		t, err := model.ParseTaskType(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func printSubjects(w io.Writer, subjects []model.Subject, now time.Time) error {
	if len(subjects) == 0 {
		return printf(w, "No subjects. Run: nextstep init\n")
	}
	today := model.DateOf(now)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBJECT\tCONFIDENCE\tEXAM\tSESSIONS\tLAST STUDIED\tEXCLUDED")
	for _, s := range subjects {
		exam := "-"
		if s.ExamDate != nil {
			d := today.DaysUntil(*s.ExamDate)
			exam = fmt.Sprintf("%s (%s)", s.ExamDate, stats.ExamLabel(&d))
		}
		last := "never"
		if s.LastStudiedAt != nil {
			last = s.LastStudiedAt.Local().Format("2006-01-02 15:04")
		}
		excluded := make([]string, 0, len(s.ExcludedTasks))
		for _, t := range s.ExcludedTasks {
			excluded = append(excluded, string(t))
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\n", s.Name, s.Confidence, exam, s.StudyCount, last, strings.Join(excluded, ","))
	}
	return tw.Flush()
}

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List logged sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := model.SessionFilter{Subject: sessionsSubject, Last: sessionsLast}
			if sessionsLastDays > 0 {
				since := nowFunc().AddDate(0, 0, -sessionsLastDays)
				filter.Since = &since
			}
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				sessions := tr.Sessions(filter)
				w := cmd.OutOrStdout()
				if len(sessions) == 0 {
					return printf(w, "No sessions found.\n")
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "WHEN\tSUBJECT\tTASK\tTIME\tEFFECTIVENESS")
				for _, s := range sessions {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", s.Timestamp.Local().Format("2006-01-02 15:04"),
						s.Subject, s.Task.Label(), stats.FormatMinutes(s.DurationMinutes), s.Effectiveness)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&sessionsSubject, "subject", "", "only this subject")
	cmd.Flags().IntVar(&sessionsLastDays, "last-days", 0, "only sessions from the last N days")
	cmd.Flags().IntVar(&sessionsLast, "last", 0, "only the newest N sessions")
	return cmd
}

func newStreakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show the current and longest study streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				now := nowFunc()
				return printf(cmd.OutOrStdout(), "Current streak: %d day(s)\nLongest streak: %d day(s)\n",
					tr.CurrentStreak(now), tr.LongestStreak(now.Location()))
			})
		},
	}
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if statsLastDays < 0 || statsDays < 0 {
				return fmt.Errorf("--last-days and --days must be >= 0")
			}
			cfg := model.StatsConfig{Subject: statsSubject, LastDays: statsLastDays, Days: statsDays}
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				if statsPlain || !isTerminal() {
					return stats.RenderReport(cmd.OutOrStdout(), stats.BuildReport(tr, cfg, nowFunc()))
				}
				program := tea.NewProgram(statsui.NewModel(tr, cfg, nowFunc), tea.WithAltScreen())
				if _, err := program.Run(); err != nil {
					return fmt.Errorf("failed to run stats TUI: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the dashboard")
	cmd.Flags().StringVar(&statsSubject, "subject", "", "only this subject")
	cmd.Flags().IntVar(&statsLastDays, "last-days", 0, "only sessions from the last N days")
	cmd.Flags().IntVar(&statsDays, "days", 0, "days shown in the daily chart")
	return cmd
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Add the default subjects when none exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				if len(tr.Subjects()) > 0 {
					return printf(cmd.OutOrStdout(), "Subjects already exist; nothing to do.\n")
				}
				mid := tr.Bounds().Confidence.Mid()
				for _, name := range defaultSubjects {
					if err := tr.AddSubject(cmd.Context(), model.Subject{Name: name, Confidence: mid}); err != nil {
						return err
					}
				}
				return printf(cmd.OutOrStdout(), "Added %s.\nSet exam dates with: nextstep subjects exam <name> <YYYY-MM-DD>\n",
					strings.Join(defaultSubjects, ", "))
			})
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Import a YAML snapshot or legacy subjects.json/log.json",
		Long: `Import merges subjects and sessions into the database. The path may be a
YAML snapshot written by "nextstep export", a directory holding the legacy
subjects.json and log.json files, or one of those JSON files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				subjects, sessions, err := readImport(args[0], tr.Bounds())
				if err != nil {
					return err
				}
				res, err := tr.Merge(cmd.Context(), subjects, sessions)
				if err != nil {
					return err
				}
				return printf(cmd.OutOrStdout(), "Subjects: %d added, %d updated. Sessions: %d added, %d already present.\n",
					res.SubjectsAdded, res.SubjectsUpdated, res.SessionsAdded, res.SessionsSkipped)
			})
		},
	}
}

func readImport(path string, bounds model.Bounds) ([]model.Subject, []model.Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	opts := legacy.Options{Bounds: bounds}
	if info.IsDir() {
		data, err := legacy.ReadDir(path, opts)
		return data.Subjects, data.Sessions, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := legacy.ReadFile(path, opts)
		return data.Subjects, data.Sessions, err
	case ".yaml", ".yml":
		snap, err := export.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return snap.Model()
	}
	return nil, nil, fmt.Errorf("unsupported import file %s (use .yaml, .json or a directory)", path)
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a YAML snapshot of subjects and sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
				snap := export.Build(tr.Subjects(), tr.Sessions(model.SessionFilter{}), nowFunc())
				if exportOut == "-" {
					return export.Write(cmd.OutOrStdout(), snap)
				}
				if err := export.WriteFile(exportOut, snap); err != nil {
					return err
				}
				return printf(cmd.OutOrStdout(), "Wrote %s\n", exportOut)
			})
		},
	}
	cmd.Flags().StringVarP(&exportOut, "out", "o", config.DefaultExportPath(), "output file, or - for stdout")
	return cmd
}

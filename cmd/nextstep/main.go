// Package main provides the CLI entrypoint for nextstep.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/nextstep/internal/config"
	"github.com/verte-zerg/nextstep/internal/engine"
	"github.com/verte-zerg/nextstep/internal/logging"
	"github.com/verte-zerg/nextstep/internal/model"
	"github.com/verte-zerg/nextstep/internal/store"
	"github.com/verte-zerg/nextstep/internal/tracker"
	"github.com/verte-zerg/nextstep/internal/tui"
)

const (
	defaultEnergy  = "medium"
	defaultMinutes = 30
	defaultTop     = 5
)

var defaultSubjects = []string{"Science", "Irish", "Maths", "English"}

var (
	configPath string
	dbPath     string
	verbose    bool

	fileCfg config.FileConfig
	logger  = zap.NewNop()

	// nowFunc is the clock used by every command.
	nowFunc = time.Now
	// isTerminal reports whether the session can run the interactive UI.
	isTerminal = func() bool {
		return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	}

	instantEnergy  string
	instantMinutes int
	instantPlain   bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nextstep",
		Short: "Decide what to study next",
		Long: `nextstep suggests which subject and task to study right now from your
confidence, exam dates, energy and what you studied recently, then logs the
session and keeps track of your streak.`,
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: setup,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			// Sync on stderr returns EINVAL on some terminals.
			_ = logger.Sync()
		},
		RunE: runInstantCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: $XDG_DATA_HOME/nextstep/nextstep.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().StringVar(&instantEnergy, "energy", defaultEnergy, "energy level (low, medium, high)")
	rootCmd.Flags().IntVar(&instantMinutes, "minutes", defaultMinutes, "minutes available")
	rootCmd.Flags().BoolVar(&instantPlain, "plain", false, "print a suggestion instead of starting the interactive UI")

	rootCmd.AddCommand(newSuggestCmd())
	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newConfidenceCmd())
	rootCmd.AddCommand(newSubjectsCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newStreakCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	fileCfg, err = config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err = logging.New(cmd.ErrOrStderr(), fileCfg.LogLevel("warn"), verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if dbPath == "" {
		dbPath = fileCfg.DBPath()
	}
	return nil
}

// withTracker opens the store and tracker, runs fn, then closes the store.
func withTracker(ctx context.Context, fn func(*tracker.Tracker) error) error {
	bounds, err := fileCfg.BoundsSettings()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Warn("failed to close db", zap.Error(cerr))
		}
	}()
	tr, err := tracker.Open(ctx, st, tracker.Options{
		Bounds: bounds,
		Engine: fileCfg.EngineSettings(),
		Logger: logger,
	})
	if err != nil {
		return err
	}
	logger.Debug("tracker opened", zap.String("db", dbPath))
	if err := fn(tr); err != nil {
		return err
	}
	return tr.Flush(ctx)
}

func runInstantCmd(cmd *cobra.Command, _ []string) error {
	applyStringConfig(cmd, "energy", &instantEnergy, fileCfg.Suggest.Energy)
	applyIntConfig(cmd, "minutes", &instantMinutes, fileCfg.Suggest.Minutes)
	req, err := parseRequest(instantEnergy, instantMinutes)
	if err != nil {
		return err
	}
	return withTracker(cmd.Context(), func(tr *tracker.Tracker) error {
		if instantPlain || !isTerminal() {
			return printSuggestions(cmd.OutOrStdout(), tr, req, 1)
		}
		m := tui.NewModel(tr, tui.Options{
			Energy:  req.Energy,
			Minutes: req.Minutes,
			Now:     nowFunc,
			Logger:  logger,
		})
		program := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
		return nil
	})
}

func parseRequest(energy string, minutes int) (engine.Request, error) {
	e, err := model.ParseEnergy(energy)
	if err != nil {
		return engine.Request{}, fmt.Errorf("--energy: %w", err)
	}
	if minutes < 0 {
		return engine.Request{}, fmt.Errorf("--minutes must be >= 0")
	}
	return engine.Request{Energy: e, Minutes: minutes}, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	if err := writeConfigTemplate(configPath); err != nil {
		return err
	}
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	ed := exec.Command(parts[0], append(parts[1:], configPath)...)
	ed.Stdin = cmd.InOrStdin()
	ed.Stdout = cmd.OutOrStdout()
	ed.Stderr = cmd.ErrOrStderr()
	if err := ed.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeConfigTemplate creates the commented template unless a file exists.
func writeConfigTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	eng := model.DefaultEngineConfig()
	b := model.DefaultBounds()
	return fmt.Sprintf(`# nextstep configuration
# Uncomment a value to enable it. CLI flags override config values.

[suggest]
# energy = %q             # low, medium or high
# minutes = %d               # Minutes available
# top = %d                   # Suggestions listed by "nextstep suggest"

[engine]
# urgency-weight = %.2f
# confidence-weight = %.2f
# energy-weight = %.2f
# repetition-weight = %.2f
# horizon-days = %d          # Exams further away add no urgency
# cooldown-hours = %.0f        # Repetition penalty window
# pressure-days = %d          # Exams this close override the cooldown
# undershoot-step = %.2f     # Energy fit lost per level of unused energy
# decay-per-week = %d         # Confidence lost per week without study
# max-decay = %d

[bounds]
# confidence-min = %d
# confidence-max = %d
# effectiveness-min = %d
# effectiveness-max = %d

[log]
# level = "warn"             # debug, info, warn, error

[store]
# path = %q
`,
		defaultEnergy, defaultMinutes, defaultTop,
		eng.UrgencyWeight, eng.ConfidenceWeight, eng.EnergyWeight, eng.RepetitionWeight,
		eng.HorizonDays, eng.Cooldown.Hours(), eng.PressureDays, eng.UndershootStep,
		eng.DecayPerWeek, eng.MaxDecay,
		b.Confidence.Min, b.Confidence.Max, b.Effectiveness.Min, b.Effectiveness.Max,
		config.DefaultDBPath(),
	)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func printf(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Package tracker ties the subject registry, session log, store and
// recommendation engine together behind the calls the CLI and UIs use.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/nextstep/internal/engine"
	"github.com/verte-zerg/nextstep/internal/model"
	"github.com/verte-zerg/nextstep/internal/registry"
	"github.com/verte-zerg/nextstep/internal/sessionlog"
	"github.com/verte-zerg/nextstep/internal/streak"
)

// Persister saves and loads the full tracker state.
type Persister interface {
	Load(ctx context.Context) ([]model.Subject, []model.Session, error)
	Save(ctx context.Context, subjects []model.Subject, sessions []model.Session) error
}

// Tracker is the single owner of subject and session state.
type Tracker struct {
	bounds   model.Bounds
	registry *registry.Registry
	log      *sessionlog.Log
	engine   *engine.Engine
	store    Persister
	logger   *zap.Logger
	dirty    bool
}

// Options configure a Tracker.
type Options struct {
	Bounds model.Bounds
	Engine model.EngineConfig
	Logger *zap.Logger
}

// Open loads state from store. Values that violate the configured bounds
// are reported as model.ErrCorruptStore.
func Open(ctx context.Context, store Persister, opts Options) (*Tracker, error) {
	if err := engine.Validate(opts.Engine); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	t := newTracker(store, opts, logger)
	if store == nil {
		return t, nil
	}
	subjects, sessions, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	for _, s := range subjects {
		if err := t.registry.Add(s); err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrCorruptStore, err)
		}
	}
	for _, s := range sessions {
		if err := t.log.Restore(s); err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrCorruptStore, err)
		}
	}
	logger.Debug("state loaded",
		zap.Int("subjects", t.registry.Len()),
		zap.Int("sessions", t.log.Len()))
	return t, nil
}

func newTracker(store Persister, opts Options, logger *zap.Logger) *Tracker {
	reg := registry.New(opts.Bounds.Confidence)
	return &Tracker{
		bounds:   opts.Bounds,
		registry: reg,
		log:      sessionlog.New(reg, opts.Bounds.Effectiveness),
		engine:   engine.New(opts.Engine, opts.Bounds.Confidence),
		store:    store,
		logger:   logger,
	}
}

// Bounds returns the rating scales.
func (t *Tracker) Bounds() model.Bounds {
	return t.bounds
}

// Recommend scores the current state at now. It never mutates state.
func (t *Tracker) Recommend(now time.Time, req engine.Request) (model.Recommendation, error) {
	return t.engine.Recommend(t.registry.List(), now, req)
}

// LogSession appends a session, touches its subject and optionally updates
// the subject's confidence, then persists. A missing ID is generated.
func (t *Tracker) LogSession(ctx context.Context, s model.Session, confidence *int) (model.Session, error) {
	if err := t.log.Validate(s); err != nil {
		return model.Session{}, err
	}
	if confidence != nil && !t.bounds.Confidence.Contains(*confidence) {
		return model.Session{}, fmt.Errorf("%w: confidence %d (allowed %d-%d)", model.ErrOutOfRange,
			*confidence, t.bounds.Confidence.Min, t.bounds.Confidence.Max)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if err := t.log.Append(s); err != nil {
		return model.Session{}, err
	}
	if err := t.registry.Touch(s.Subject, s.Timestamp); err != nil {
		return model.Session{}, err
	}
	if confidence != nil {
		if err := t.registry.UpdateConfidence(s.Subject, *confidence); err != nil {
			return model.Session{}, err
		}
	}
	t.logger.Debug("session logged",
		zap.String("id", s.ID),
		zap.String("subject", s.Subject),
		zap.String("task", string(s.Task)),
		zap.Int("minutes", s.DurationMinutes))
	return s, t.persist(ctx)
}

// UpdateConfidence changes a subject's confidence.
func (t *Tracker) UpdateConfidence(ctx context.Context, name string, value int) error {
	if err := t.registry.UpdateConfidence(name, value); err != nil {
		return err
	}
	return t.persist(ctx)
}

// CurrentStreak returns the consecutive-day streak as of now.
func (t *Tracker) CurrentStreak(now time.Time) int {
	return streak.Current(t.log.All(), now)
}

// LongestStreak returns the longest streak ever recorded.
func (t *Tracker) LongestStreak(loc *time.Location) int {
	return streak.Longest(t.log.All(), loc)
}

// AddSubject registers a subject. Study count and last-studied time are
// rebuilt from any sessions already logged under the same name.
func (t *Tracker) AddSubject(ctx context.Context, s model.Subject) error {
	s.StudyCount = t.log.CountFor(s.Name)
	s.LastStudiedAt = nil
	if last, ok := t.log.MostRecent(s.Name); ok {
		ts := last.Timestamp
		s.LastStudiedAt = &ts
	}
	if err := t.registry.Add(s); err != nil {
		return err
	}
	t.logger.Debug("subject added", zap.String("subject", s.Name))
	return t.persist(ctx)
}

// RemoveSubject deletes a subject. Its sessions stay in the log.
func (t *Tracker) RemoveSubject(ctx context.Context, name string) error {
	if err := t.registry.Remove(name); err != nil {
		return err
	}
	t.logger.Debug("subject removed", zap.String("subject", name))
	return t.persist(ctx)
}

// SetExamDate sets or clears a subject's exam date.
func (t *Tracker) SetExamDate(ctx context.Context, name string, date *model.Date) error {
	if err := t.registry.SetExamDate(name, date); err != nil {
		return err
	}
	return t.persist(ctx)
}

// SetExcludedTasks replaces the tasks never suggested for a subject.
func (t *Tracker) SetExcludedTasks(ctx context.Context, name string, tasks []model.TaskType) error {
	if err := t.registry.SetExcludedTasks(name, tasks); err != nil {
		return err
	}
	return t.persist(ctx)
}

// Subject returns one subject.
func (t *Tracker) Subject(name string) (model.Subject, error) {
	return t.registry.Get(name)
}

// Subjects returns all subjects ordered by name.
func (t *Tracker) Subjects() []model.Subject {
	return t.registry.List()
}

// Sessions returns sessions matching f in chronological order.
func (t *Tracker) Sessions(f model.SessionFilter) []model.Session {
	return t.log.Filter(f)
}

// Dirty reports whether in-memory state has not been persisted yet.
func (t *Tracker) Dirty() bool {
	return t.dirty
}

// Flush persists pending state. It is a no-op when nothing is pending.
func (t *Tracker) Flush(ctx context.Context) error {
	if !t.dirty {
		return nil
	}
	return t.persist(ctx)
}

// persist saves state; on failure the in-memory state is kept and marked
// dirty so a later Flush can retry.
func (t *Tracker) persist(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	if err := t.store.Save(ctx, t.registry.List(), t.log.All()); err != nil {
		t.dirty = true
		t.logger.Warn("failed to persist state", zap.Error(err))
		return fmt.Errorf("failed to save state: %w", err)
	}
	t.dirty = false
	return nil
}

// MergeResult summarizes an import.
type MergeResult struct {
	SubjectsAdded   int
	SubjectsUpdated int
	SessionsAdded   int
	SessionsSkipped int
}

// Merge folds imported subjects and sessions into the current state.
// Existing subjects take the imported confidence, exam date and excluded
// tasks; sessions already present (by ID) are skipped. Everything is
// validated before anything is applied.
func (t *Tracker) Merge(ctx context.Context, subjects []model.Subject, sessions []model.Session) (MergeResult, error) {
	var res MergeResult
	importing := make(map[string]struct{}, len(subjects))
	normalized := make([]model.Subject, 0, len(subjects))
	for _, s := range subjects {
		s.Name = strings.TrimSpace(s.Name)
		if _, dup := importing[s.Name]; dup {
			return res, fmt.Errorf("%w: %s appears twice in the import", model.ErrDuplicateSubject, s.Name)
		}
		if err := t.registry.Validate(s); err != nil {
			return res, err
		}
		importing[s.Name] = struct{}{}
		normalized = append(normalized, s)
	}
	subjects = normalized
	known := map[string]struct{}{}
	for _, s := range t.log.All() {
		known[s.ID] = struct{}{}
	}
	pending := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if _, ok := known[s.ID]; ok {
			res.SessionsSkipped++
			continue
		}
		if _, ok := importing[s.Subject]; !ok && !t.registry.Has(s.Subject) {
			return res, fmt.Errorf("%w: %q in session %s", model.ErrUnknownSubject, s.Subject, s.ID)
		}
		if s.DurationMinutes <= 0 || !s.Task.Valid() || s.Timestamp.IsZero() {
			return res, fmt.Errorf("%w: session %s", model.ErrInvalidSession, s.ID)
		}
		if !t.bounds.Effectiveness.Contains(s.Effectiveness) {
			return res, fmt.Errorf("%w: %w: session %s effectiveness %d", model.ErrInvalidSession, model.ErrOutOfRange, s.ID, s.Effectiveness)
		}
		known[s.ID] = struct{}{}
		pending = append(pending, s)
	}

	for _, s := range subjects {
		if t.registry.Has(s.Name) {
			if err := t.registry.UpdateConfidence(s.Name, s.Confidence); err != nil {
				return res, err
			}
			if err := t.registry.SetExamDate(s.Name, s.ExamDate); err != nil {
				return res, err
			}
			if err := t.registry.SetExcludedTasks(s.Name, s.ExcludedTasks); err != nil {
				return res, err
			}
			res.SubjectsUpdated++
			continue
		}
		s.StudyCount = t.log.CountFor(s.Name)
		s.LastStudiedAt = nil
		if last, ok := t.log.MostRecent(s.Name); ok {
			ts := last.Timestamp
			s.LastStudiedAt = &ts
		}
		if err := t.registry.Add(s); err != nil {
			return res, err
		}
		res.SubjectsAdded++
	}
	for _, s := range pending {
		if err := t.log.Append(s); err != nil {
			return res, fmt.Errorf("session %s: %w", s.ID, err)
		}
		if err := t.registry.Touch(s.Subject, s.Timestamp); err != nil {
			return res, err
		}
		res.SessionsAdded++
	}
	t.logger.Info("import merged",
		zap.Int("subjects_added", res.SubjectsAdded),
		zap.Int("subjects_updated", res.SubjectsUpdated),
		zap.Int("sessions_added", res.SessionsAdded),
		zap.Int("sessions_skipped", res.SessionsSkipped))
	return res, t.persist(ctx)
}

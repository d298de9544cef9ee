package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/nextstep/internal/engine"
	"github.com/verte-zerg/nextstep/internal/model"
	"github.com/verte-zerg/nextstep/internal/store"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type memStore struct {
	subjects []model.Subject
	sessions []model.Session
	saveErr  error
	saves    int
}

func (m *memStore) Load(context.Context) ([]model.Subject, []model.Session, error) {
	return m.subjects, m.sessions, nil
}

func (m *memStore) Save(_ context.Context, subjects []model.Subject, sessions []model.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.subjects = subjects
	m.sessions = sessions
	return nil
}

func defaultOptions() Options {
	return Options{Bounds: model.DefaultBounds(), Engine: model.DefaultEngineConfig()}
}

func openTracker(t *testing.T, st Persister, names ...string) *Tracker {
	t.Helper()
	tr, err := Open(context.Background(), st, defaultOptions())
	require.NoError(t, err)
	for _, name := range names {
		require.NoError(t, tr.AddSubject(context.Background(), model.Subject{Name: name, Confidence: 5}))
	}
	return tr
}

func session(subject string, at time.Time) model.Session {
	return model.Session{Subject: subject, Task: model.TaskFlashcards, DurationMinutes: 15, Effectiveness: 7, Timestamp: at}
}

func TestStudyCountMatchesLoggedSessions(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t, &memStore{}, "Maths", "Irish")

	for i := 0; i < 7; i++ {
		s, err := tr.LogSession(ctx, session("Maths", now.Add(time.Duration(i)*time.Hour)), nil)
		require.NoError(t, err)
		require.NotEmpty(t, s.ID)
	}
	maths, err := tr.Subject("Maths")
	require.NoError(t, err)
	require.Equal(t, 7, maths.StudyCount)
	require.True(t, maths.LastStudiedAt.Equal(now.Add(6*time.Hour)))

	irish, err := tr.Subject("Irish")
	require.NoError(t, err)
	require.Zero(t, irish.StudyCount)
	require.Nil(t, irish.LastStudiedAt)
}

func TestLogSessionUpdatesConfidence(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t, &memStore{}, "Maths")

	bad := 11
	_, err := tr.LogSession(ctx, session("Maths", now), &bad)
	require.ErrorIs(t, err, model.ErrOutOfRange)
	require.Empty(t, tr.Sessions(model.SessionFilter{}), "rejected sessions are not logged")

	good := 8
	_, err = tr.LogSession(ctx, session("Maths", now), &good)
	require.NoError(t, err)
	maths, err := tr.Subject("Maths")
	require.NoError(t, err)
	require.Equal(t, 8, maths.Confidence)

	_, err = tr.LogSession(ctx, session("Physics", now), nil)
	require.ErrorIs(t, err, model.ErrUnknownSubject)
}

func TestPersistFailureKeepsStateDirty(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	tr := openTracker(t, st, "Maths")

	st.saveErr = errors.New("disk full")
	_, err := tr.LogSession(ctx, session("Maths", now), nil)
	require.Error(t, err)
	require.True(t, tr.Dirty())
	require.Len(t, tr.Sessions(model.SessionFilter{}), 1, "in-memory state survives the failed save")
	require.Empty(t, st.sessions)

	require.Error(t, tr.Flush(ctx))
	require.True(t, tr.Dirty())

	st.saveErr = nil
	require.NoError(t, tr.Flush(ctx))
	require.False(t, tr.Dirty())
	require.Len(t, st.sessions, 1)

	saves := st.saves
	require.NoError(t, tr.Flush(ctx))
	require.Equal(t, saves, st.saves, "flush without pending changes does not write")
}

func TestOpenRejectsOutOfBoundsState(t *testing.T) {
	st := &memStore{subjects: []model.Subject{{Name: "Maths", Confidence: 42}}}
	_, err := Open(context.Background(), st, defaultOptions())
	require.ErrorIs(t, err, model.ErrCorruptStore)

	st = &memStore{
		subjects: []model.Subject{{Name: "Maths", Confidence: 4}},
		sessions: []model.Session{{ID: "x", Subject: "Maths", Task: model.TaskEssay, DurationMinutes: 0, Effectiveness: 5, Timestamp: now}},
	}
	_, err = Open(context.Background(), st, defaultOptions())
	require.ErrorIs(t, err, model.ErrCorruptStore)

	opts := defaultOptions()
	opts.Engine.Cooldown = 0
	_, err = Open(context.Background(), &memStore{}, opts)
	require.Error(t, err)
}

func TestReAddedSubjectRebuildsHistory(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t, &memStore{}, "Maths")
	_, err := tr.LogSession(ctx, session("Maths", now.Add(-time.Hour)), nil)
	require.NoError(t, err)
	_, err = tr.LogSession(ctx, session("Maths", now), nil)
	require.NoError(t, err)

	require.NoError(t, tr.RemoveSubject(ctx, "Maths"))
	require.Len(t, tr.Sessions(model.SessionFilter{Subject: "Maths"}), 2)

	require.NoError(t, tr.AddSubject(ctx, model.Subject{Name: "Maths", Confidence: 2, StudyCount: 99}))
	maths, err := tr.Subject("Maths")
	require.NoError(t, err)
	require.Equal(t, 2, maths.StudyCount)
	require.True(t, maths.LastStudiedAt.Equal(now))
}

func TestRecommendDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t, &memStore{}, "Maths", "Irish")
	exam := model.DateOf(now).AddDays(5)
	require.NoError(t, tr.SetExamDate(ctx, "Irish", &exam))
	before := tr.Subjects()

	first, err := tr.Recommend(now, engine.Request{Energy: model.EnergyMedium})
	require.NoError(t, err)
	require.Equal(t, "Irish", first.Best.Subject)
	second, err := tr.Recommend(now, engine.Request{Energy: model.EnergyMedium})
	require.NoError(t, err)

	require.Empty(t, cmp.Diff(first, second))
	require.Empty(t, cmp.Diff(before, tr.Subjects()))
	require.Empty(t, tr.Sessions(model.SessionFilter{}))
}

func TestStreaks(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t, &memStore{}, "Maths")
	for _, d := range []int{1, 2, 3, 6} {
		_, err := tr.LogSession(ctx, session("Maths", now.AddDate(0, 0, -d)), nil)
		require.NoError(t, err)
	}
	require.Equal(t, 3, tr.CurrentStreak(now))
	require.Equal(t, 3, tr.LongestStreak(time.UTC))
	require.Equal(t, 0, tr.CurrentStreak(now.AddDate(0, 0, 2)))
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t, &memStore{}, "Maths")
	existing, err := tr.LogSession(ctx, session("Maths", now.Add(-time.Hour)), nil)
	require.NoError(t, err)

	exam := model.NewDate(2025, time.June, 12)
	imported := []model.Subject{
		{Name: "Maths", Confidence: 3, ExamDate: &exam},
		{Name: "Irish", Confidence: 6},
	}
	sessions := []model.Session{
		existing,
		{ID: "irish-1", Subject: "Irish", Task: model.TaskEssay, DurationMinutes: 40, Effectiveness: 5, Timestamp: now.Add(-48 * time.Hour)},
	}

	res, err := tr.Merge(ctx, imported, sessions)
	require.NoError(t, err)
	require.Equal(t, MergeResult{SubjectsAdded: 1, SubjectsUpdated: 1, SessionsAdded: 1, SessionsSkipped: 1}, res)

	maths, err := tr.Subject("Maths")
	require.NoError(t, err)
	require.Equal(t, 3, maths.Confidence)
	require.Equal(t, "2025-06-12", maths.ExamDate.String())
	require.Equal(t, 1, maths.StudyCount)

	irish, err := tr.Subject("Irish")
	require.NoError(t, err)
	require.Equal(t, 1, irish.StudyCount)

	// Nothing is applied when any record is invalid.
	_, err = tr.Merge(ctx, nil, []model.Session{{ID: "bad", Subject: "Latin", Task: model.TaskEssay, DurationMinutes: 10, Effectiveness: 5, Timestamp: now}})
	require.ErrorIs(t, err, model.ErrUnknownSubject)
	_, err = tr.Merge(ctx, []model.Subject{{Name: "Latin", Confidence: 0}}, nil)
	require.ErrorIs(t, err, model.ErrOutOfRange)
	require.Len(t, tr.Subjects(), 2)
	require.Len(t, tr.Sessions(model.SessionFilter{}), 2)
}

func TestMergeRejectsBadSubjectWithoutApplyingEarlierOnes(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	tr := openTracker(t, st, "Maths")
	saves := st.saves

	cases := map[string][]model.Subject{
		"blank name": {
			{Name: "Maths", Confidence: 9},
			{Name: "Art", Confidence: 4},
			{Name: "   ", Confidence: 5},
		},
		"unknown excluded task": {
			{Name: "Maths", Confidence: 9},
			{Name: "Art", Confidence: 4, ExcludedTasks: []model.TaskType{"nap"}},
		},
		"name repeated in import": {
			{Name: "Art", Confidence: 4},
			{Name: " Art", Confidence: 6},
		},
		"bad confidence on existing subject": {
			{Name: "Art", Confidence: 4},
			{Name: "Maths", Confidence: 42},
		},
	}
	for name, subjects := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tr.Merge(ctx, subjects, nil)
			require.Error(t, err)

			maths, err := tr.Subject("Maths")
			require.NoError(t, err)
			require.Equal(t, 5, maths.Confidence)
			require.Len(t, tr.Subjects(), 1)
			require.False(t, tr.Dirty())
			require.Equal(t, saves, st.saves)
		})
	}

	_, err := tr.Merge(ctx, []model.Subject{{Name: "Art", Confidence: 4}, {Name: "Art", Confidence: 4}}, nil)
	require.ErrorIs(t, err, model.ErrDuplicateSubject)
}

func TestPersistsThroughSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/nextstep.db"
	st, err := store.Open(ctx, path)
	require.NoError(t, err)
	tr := openTracker(t, st, "Maths")
	_, err = tr.LogSession(ctx, session("Maths", now), nil)
	require.NoError(t, err)
	require.NoError(t, tr.UpdateConfidence(ctx, "Maths", 9))
	require.NoError(t, tr.SetExcludedTasks(ctx, "Maths", []model.TaskType{model.TaskPastPaper}))
	want := tr.Subjects()
	require.NoError(t, st.Close())

	st, err = store.Open(ctx, path)
	require.NoError(t, err)
	defer func() {
		if cerr := st.Close(); cerr != nil {
			t.Errorf("close store: %v", cerr)
		}
	}()
	reloaded := openTracker(t, st)
	require.Empty(t, cmp.Diff(want, reloaded.Subjects()))
	require.Len(t, reloaded.Sessions(model.SessionFilter{}), 1)
}

package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/nextstep/internal/model"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newEngine() *Engine {
	return New(model.DefaultEngineConfig(), model.DefaultBounds().Confidence)
}

func examIn(days int) *model.Date {
	d := model.DateOf(now).AddDays(days)
	return &d
}

func ago(d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func TestUrgency(t *testing.T) {
	e := newEngine()
	days := func(n int) *int { return &n }

	require.Equal(t, 0.0, e.Urgency(nil))
	require.Equal(t, 0.0, e.Urgency(days(-1)))
	require.Equal(t, 1.0, e.Urgency(days(0)))
	require.Equal(t, 1.0, e.Urgency(days(1)))
	require.Equal(t, 0.0, e.Urgency(days(60)))
	require.Equal(t, 0.0, e.Urgency(days(90)))
	require.InDelta(t, 0.4915, e.Urgency(days(2)), 1e-4)

	prev := 1.0
	for d := 2; d < 60; d++ {
		u := e.Urgency(days(d))
		require.Less(t, u, prev, "urgency must fall as the exam moves away (day %d)", d)
		prev = u
	}
}

func TestRepetitionPenalty(t *testing.T) {
	e := newEngine()
	cooldown := e.Config().Cooldown

	require.Equal(t, 0.0, e.RepetitionPenalty(nil, now))
	require.Equal(t, 1.0, e.RepetitionPenalty(ago(0), now))
	require.InDelta(t, 0.5, e.RepetitionPenalty(ago(cooldown/2), now), 1e-9)
	require.Equal(t, 0.0, e.RepetitionPenalty(ago(cooldown), now))
	require.Equal(t, 0.0, e.RepetitionPenalty(ago(cooldown+time.Minute), now))
	require.Greater(t, e.RepetitionPenalty(ago(time.Hour), now), e.RepetitionPenalty(ago(2*time.Hour), now))

	future := now.Add(time.Hour)
	require.Equal(t, 1.0, e.RepetitionPenalty(&future, now))
}

func TestEnergyFit(t *testing.T) {
	e := newEngine()
	require.Equal(t, 1.0, e.EnergyFit(model.EnergyMedium, model.EnergyMedium))
	require.Equal(t, 0.75, e.EnergyFit(model.EnergyMedium, model.EnergyLow))
	require.Equal(t, 0.5, e.EnergyFit(model.EnergyHigh, model.EnergyLow))
	require.Equal(t, 0.0, e.EnergyFit(model.EnergyLow, model.EnergyHigh))
}

func TestConfidenceGapDecay(t *testing.T) {
	e := newEngine()
	require.InDelta(t, 5.0/9, e.ConfidenceGap(5, nil, now), 1e-9)
	require.InDelta(t, 5.0/9, e.ConfidenceGap(5, ago(6*24*time.Hour), now), 1e-9)
	require.InDelta(t, 7.0/9, e.ConfidenceGap(5, ago(15*24*time.Hour), now), 1e-9)
	// Decay is capped.
	require.InDelta(t, 8.0/9, e.ConfidenceGap(5, ago(100*24*time.Hour), now), 1e-9)
	// Never below the scale minimum.
	require.Equal(t, 1.0, e.ConfidenceGap(2, ago(100*24*time.Hour), now))
}

func TestRecommendPrefersUrgentWeakSubject(t *testing.T) {
	subjects := []model.Subject{
		{Name: "History", Confidence: 5, ExamDate: examIn(60), LastStudiedAt: ago(time.Hour), StudyCount: 3},
		{Name: "Maths", Confidence: 2, ExamDate: examIn(3)},
	}
	rec, err := newEngine().Recommend(subjects, now, Request{Energy: model.EnergyHigh})
	require.NoError(t, err)
	require.Equal(t, "Maths", rec.Best.Subject)
	require.Equal(t, model.TaskEssay, rec.Best.Task)
	require.False(t, rec.Best.Overshoot)
	for _, c := range rec.Ranked {
		require.NotEqual(t, "History", c.Subject, "a cooling subject far from its exam is not eligible")
	}
}

func TestRecommendPenalizesRecentSubjectUnderExamPressure(t *testing.T) {
	subjects := []model.Subject{
		{Name: "History", Confidence: 5, ExamDate: examIn(2), LastStudiedAt: ago(time.Hour), StudyCount: 3},
		{Name: "Maths", Confidence: 2, ExamDate: examIn(3)},
	}
	rec, err := newEngine().Recommend(subjects, now, Request{Energy: model.EnergyHigh})
	require.NoError(t, err)
	require.Equal(t, "Maths", rec.Best.Subject)
	require.Equal(t, model.TaskEssay, rec.Best.Task)

	var history *model.Candidate
	for i := range rec.Ranked {
		if rec.Ranked[i].Subject == "History" {
			history = &rec.Ranked[i]
			break
		}
	}
	require.NotNil(t, history, "exam pressure keeps History in the ranking")
	require.Greater(t, history.Factors.Urgency, rec.Best.Factors.Urgency)
	require.Greater(t, history.Factors.Repetition, 0.95)
	require.Less(t, history.Score, rec.Best.Score)
}

func TestSortCandidatesUsesExactScores(t *testing.T) {
	c := []model.Candidate{
		{Subject: "A", Task: model.TaskEssay, Score: 0.5},
		{Subject: "B", Task: model.TaskEssay, Score: 0.5 + 6e-10},
		{Subject: "C", Task: model.TaskEssay, Score: 0.5 + 1.2e-9},
		{Subject: "A", Task: model.TaskDiagrams, Score: 0.5},
	}
	sortCandidates(c)
	got := make([]string, 0, len(c))
	for _, x := range c {
		got = append(got, x.Subject+"/"+string(x.Task))
	}
	require.Equal(t, []string{"C/essay", "B/essay", "A/diagrams", "A/essay"}, got)
}

func TestRecommendRepetitionOverridesUrgency(t *testing.T) {
	subjects := []model.Subject{
		{Name: "Irish", Confidence: 1, ExamDate: examIn(2), LastStudiedAt: ago(10 * time.Minute), StudyCount: 4},
		{Name: "English", Confidence: 5, ExamDate: examIn(20), LastStudiedAt: ago(30 * 24 * time.Hour), StudyCount: 2},
	}
	rec, err := newEngine().Recommend(subjects, now, Request{Energy: model.EnergyHigh})
	require.NoError(t, err)
	require.Equal(t, "English", rec.Best.Subject)

	var irish *model.Candidate
	for i := range rec.Ranked {
		if rec.Ranked[i].Subject == "Irish" {
			irish = &rec.Ranked[i]
			break
		}
	}
	require.NotNil(t, irish, "exam pressure keeps Irish in the ranking")
	require.Greater(t, irish.Factors.Urgency, rec.Best.Factors.Urgency)
	require.Greater(t, irish.Factors.ConfidenceGap, rec.Best.Factors.ConfidenceGap)
	require.Greater(t, irish.Factors.Repetition, 0.99)
}

func TestRecommendAvoidsOvershoot(t *testing.T) {
	subjects := []model.Subject{
		{Name: "Maths", Confidence: 1, ExamDate: examIn(1)},
		{Name: "Irish", Confidence: 9},
	}
	for _, energy := range []model.Energy{model.EnergyLow, model.EnergyMedium, model.EnergyHigh} {
		rec, err := newEngine().Recommend(subjects, now, Request{Energy: energy})
		require.NoError(t, err)
		spec, ok := rec.Best.Task.Spec()
		require.True(t, ok)
		require.LessOrEqual(t, spec.Energy, energy, "energy %s", energy)
		require.False(t, rec.Best.Overshoot)
	}
}

func TestRecommendFallsBackWhenEveryTaskOvershoots(t *testing.T) {
	subjects := []model.Subject{{
		Name:          "Maths",
		Confidence:    3,
		ExcludedTasks: []model.TaskType{model.TaskFlashcards, model.TaskNotesReview},
	}}
	rec, err := newEngine().Recommend(subjects, now, Request{Energy: model.EnergyLow})
	require.NoError(t, err)
	require.True(t, rec.Best.Overshoot)
	require.Equal(t, rec.Ranked[0], rec.Best)
}

func TestRecommendIsDeterministic(t *testing.T) {
	subjects := []model.Subject{
		{Name: "Science", Confidence: 4, ExamDate: examIn(9), LastStudiedAt: ago(30 * time.Hour)},
		{Name: "Irish", Confidence: 4, ExamDate: examIn(9), LastStudiedAt: ago(30 * time.Hour)},
		{Name: "English", Confidence: 7},
	}
	e := newEngine()
	first, err := e.Recommend(subjects, now, Request{Energy: model.EnergyMedium, Minutes: 45})
	require.NoError(t, err)
	second, err := e.Recommend(subjects, now, Request{Energy: model.EnergyMedium, Minutes: 45})
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("recommendations differ (-first +second):\n%s", diff)
	}
	// Irish and Science tie; the name breaks it.
	require.Equal(t, "Irish", first.Best.Subject)
}

func TestRecommendTieBreaksByTaskName(t *testing.T) {
	subjects := []model.Subject{{Name: "Maths", Confidence: 5}}
	rec, err := newEngine().Recommend(subjects, now, Request{Energy: model.EnergyLow})
	require.NoError(t, err)
	require.Equal(t, model.TaskFlashcards, rec.Ranked[0].Task)
	require.Equal(t, model.TaskNotesReview, rec.Ranked[1].Task)
}

func TestRecommendFiltersByMinutesAndExclusions(t *testing.T) {
	subjects := []model.Subject{
		{Name: "Maths", Confidence: 5, ExcludedTasks: []model.TaskType{model.TaskNotesReview}},
	}
	rec, err := newEngine().Recommend(subjects, now, Request{Energy: model.EnergyHigh, Minutes: 10})
	require.NoError(t, err)
	require.Len(t, rec.Ranked, 1)
	require.Equal(t, model.TaskFlashcards, rec.Best.Task)

	_, err = newEngine().Recommend(subjects, now, Request{Energy: model.EnergyHigh, Minutes: 4})
	require.True(t, errors.Is(err, model.ErrNoEligibleSubjects))
}

func TestRecommendNoEligibleSubjects(t *testing.T) {
	e := newEngine()
	_, err := e.Recommend(nil, now, Request{Energy: model.EnergyLow})
	require.ErrorIs(t, err, model.ErrNoEligibleSubjects)

	cooling := []model.Subject{
		{Name: "Maths", Confidence: 3, LastStudiedAt: ago(time.Hour)},
		{Name: "Irish", Confidence: 3, ExamDate: examIn(10), LastStudiedAt: ago(2 * time.Hour)},
	}
	_, err = e.Recommend(cooling, now, Request{Energy: model.EnergyLow})
	require.ErrorIs(t, err, model.ErrNoEligibleSubjects)

	// Once the cooldown has passed the subject is back.
	rec, err := e.Recommend(cooling, now.Add(24*time.Hour), Request{Energy: model.EnergyLow})
	require.NoError(t, err)
	require.Equal(t, "Irish", rec.Best.Subject)

	_, err = e.Recommend(cooling, now, Request{})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(model.DefaultEngineConfig()))

	bad := model.DefaultEngineConfig()
	bad.RepetitionWeight = -1
	require.Error(t, Validate(bad))

	bad = model.DefaultEngineConfig()
	bad.Cooldown = 0
	require.Error(t, Validate(bad))

	bad = model.DefaultEngineConfig()
	bad.HorizonDays = 1
	require.Error(t, Validate(bad))

	bad = model.DefaultEngineConfig()
	bad.UndershootStep = 0.75
	require.Error(t, Validate(bad))
}

func TestRationale(t *testing.T) {
	days := 2
	c := model.Candidate{
		Subject:       "Maths",
		Task:          model.TaskEssay,
		DaysUntilExam: &days,
		Factors:       model.Factors{Urgency: 0.5, ConfidenceGap: 0.25, EnergyFit: 1},
	}
	require.Equal(t, []string{
		"exam in 2 day(s) (urgency 0.50)",
		"confidence gap 0.25",
		"energy fit 1.00",
		"not studied recently",
	}, Rationale(c))

	c.DaysUntilExam = nil
	c.Overshoot = true
	c.Factors.Repetition = 0.4
	require.Equal(t, []string{
		"no exam scheduled",
		"confidence gap 0.25",
		"Essay needs more energy than you have",
		"studied recently (penalty 0.40)",
	}, Rationale(c))
}

// Package engine scores (subject, task) candidates and picks what to study next.
//
// The engine holds no state besides its configuration. Recommend is a pure
// function of the subjects passed in, the supplied time and the request, so
// the same inputs always produce the same result.
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/verte-zerg/nextstep/internal/model"
)

// Request carries the student's current state.
type Request struct {
	Energy model.Energy
	// Minutes available; 0 means no limit.
	Minutes int
}

// Engine ranks study candidates.
type Engine struct {
	cfg        model.EngineConfig
	confidence model.Range
	tasks      []model.TaskSpec
}

// New returns an engine using cfg weights and the confidence scale.
func New(cfg model.EngineConfig, confidence model.Range) *Engine {
	return &Engine{
		cfg:        cfg,
		confidence: confidence,
		tasks:      model.TaskSpecs(),
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() model.EngineConfig {
	return e.cfg
}

// Validate checks that the configuration is usable.
func Validate(cfg model.EngineConfig) error {
	if cfg.UrgencyWeight < 0 || cfg.ConfidenceWeight < 0 || cfg.EnergyWeight < 0 || cfg.RepetitionWeight < 0 {
		return fmt.Errorf("engine weights must be >= 0")
	}
	if cfg.HorizonDays < 2 {
		return fmt.Errorf("horizon-days must be >= 2")
	}
	if cfg.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be > 0")
	}
	if cfg.PressureDays < 0 {
		return fmt.Errorf("pressure-days must be >= 0")
	}
	if cfg.UndershootStep < 0 || cfg.UndershootStep > 0.5 {
		return fmt.Errorf("undershoot-step must be between 0 and 0.5")
	}
	if cfg.DecayPerWeek < 0 || cfg.MaxDecay < 0 {
		return fmt.Errorf("confidence decay must be >= 0")
	}
	return nil
}

// Recommend scores every eligible candidate and returns the best one along
// with the full ranking. It returns model.ErrNoEligibleSubjects when there is
// nothing to suggest.
func (e *Engine) Recommend(subjects []model.Subject, now time.Time, req Request) (model.Recommendation, error) {
	if !req.Energy.Valid() {
		return model.Recommendation{}, fmt.Errorf("invalid energy level %d", int(req.Energy))
	}
	if len(subjects) == 0 {
		return model.Recommendation{}, fmt.Errorf("%w: no subjects registered", model.ErrNoEligibleSubjects)
	}

	today := model.DateOf(now)
	var ranked []model.Candidate
	for _, s := range subjects {
		days := daysUntilExam(s, today)
		repetition := e.RepetitionPenalty(s.LastStudiedAt, now)
		if !e.eligible(repetition, days) {
			continue
		}
		urgency := e.Urgency(days)
		gap := e.ConfidenceGap(s.Confidence, s.LastStudiedAt, now)
		for _, task := range e.tasks {
			if s.Excludes(task.Type) {
				continue
			}
			if req.Minutes > 0 && task.MinMinutes > req.Minutes {
				continue
			}
			fit := e.EnergyFit(req.Energy, task.Energy)
			f := model.Factors{
				Urgency:       urgency,
				ConfidenceGap: gap,
				EnergyFit:     fit,
				Repetition:    repetition,
			}
			ranked = append(ranked, model.Candidate{
				Subject:       s.Name,
				Task:          task.Type,
				Score:         e.Score(f),
				Factors:       f,
				DaysUntilExam: days,
				Overshoot:     task.Energy > req.Energy,
			})
		}
	}
	if len(ranked) == 0 {
		return model.Recommendation{}, fmt.Errorf("%w: no candidate left after filtering", model.ErrNoEligibleSubjects)
	}

	sortCandidates(ranked)
	return model.Recommendation{
		Best:   selectBest(ranked),
		Ranked: ranked,
	}, nil
}

// Score combines factors into a single value.
func (e *Engine) Score(f model.Factors) float64 {
	return e.cfg.UrgencyWeight*f.Urgency +
		e.cfg.ConfidenceWeight*f.ConfidenceGap +
		e.cfg.EnergyWeight*f.EnergyFit -
		e.cfg.RepetitionWeight*f.Repetition
}

// Urgency maps days until the exam to [0, 1]. It is 1 on the exam day and
// the day before, falls off as 1/days and reaches 0 at the far horizon. A
// missing or already passed exam has no urgency.
func (e *Engine) Urgency(days *int) float64 {
	if days == nil || *days < 0 {
		return 0
	}
	d := *days
	h := e.cfg.HorizonDays
	if d <= 1 {
		return 1
	}
	if d >= h {
		return 0
	}
	inv := 1 / float64(h)
	return (1/float64(d) - inv) / (1 - inv)
}

// ConfidenceGap maps confidence to [0, 1], higher for weaker subjects.
// Confidence decays by DecayPerWeek for each full week since the subject was
// last studied, capped at MaxDecay.
func (e *Engine) ConfidenceGap(confidence int, lastStudied *time.Time, now time.Time) float64 {
	span := e.confidence.Max - e.confidence.Min
	if span <= 0 {
		return 0
	}
	adjusted := confidence - e.decay(lastStudied, now)
	if adjusted < e.confidence.Min {
		adjusted = e.confidence.Min
	}
	if adjusted > e.confidence.Max {
		adjusted = e.confidence.Max
	}
	return float64(e.confidence.Max-adjusted) / float64(span)
}

func (e *Engine) decay(lastStudied *time.Time, now time.Time) int {
	if lastStudied == nil || e.cfg.DecayPerWeek == 0 {
		return 0
	}
	elapsed := now.Sub(*lastStudied)
	if elapsed <= 0 {
		return 0
	}
	weeks := int(elapsed / (7 * 24 * time.Hour))
	d := weeks * e.cfg.DecayPerWeek
	if d > e.cfg.MaxDecay {
		d = e.cfg.MaxDecay
	}
	return d
}

// EnergyFit rewards tasks at or below the available energy and gives nothing
// to tasks that demand more than the student has.
func (e *Engine) EnergyFit(available, required model.Energy) float64 {
	diff := int(available) - int(required)
	if diff < 0 {
		return 0
	}
	return 1 - e.cfg.UndershootStep*float64(diff)
}

// RepetitionPenalty decays linearly from 1 at the moment of study to exactly
// 0 once the cooldown window has elapsed.
func (e *Engine) RepetitionPenalty(lastStudied *time.Time, now time.Time) float64 {
	if lastStudied == nil {
		return 0
	}
	elapsed := now.Sub(*lastStudied)
	if elapsed >= e.cfg.Cooldown {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return 1 - float64(elapsed)/float64(e.cfg.Cooldown)
}

// eligible keeps subjects outside their cooldown, plus cooling subjects whose
// exam is close enough to override it.
func (e *Engine) eligible(repetition float64, days *int) bool {
	if repetition == 0 {
		return true
	}
	return days != nil && *days >= 0 && *days <= e.cfg.PressureDays
}

func daysUntilExam(s model.Subject, today model.Date) *int {
	if s.ExamDate == nil {
		return nil
	}
	d := today.DaysUntil(*s.ExamDate)
	return &d
}

// sortCandidates orders by exact score, then subject and task name. Equal
// inputs produce bit-identical scores, so ties fall through to the names.
func sortCandidates(c []model.Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Score != c[j].Score {
			return c[i].Score > c[j].Score
		}
		if c[i].Subject != c[j].Subject {
			return c[i].Subject < c[j].Subject
		}
		return c[i].Task < c[j].Task
	})
}

func selectBest(ranked []model.Candidate) model.Candidate {
	for _, c := range ranked {
		if !c.Overshoot && c.Score > 0 {
			return c
		}
	}
	return ranked[0]
}

// Package model defines shared data structures.
package model

import "time"

// Range is an inclusive integer interval.
type Range struct {
	Min int
	Max int
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Mid returns the integer midpoint of the range.
func (r Range) Mid() int {
	return r.Min + (r.Max-r.Min)/2
}

// Bounds declares the rating scales used by subjects and sessions.
type Bounds struct {
	Confidence    Range
	Effectiveness Range
}

// DefaultBounds returns the 1-10 scales used for both ratings.
func DefaultBounds() Bounds {
	return Bounds{
		Confidence:    Range{Min: 1, Max: 10},
		Effectiveness: Range{Min: 1, Max: 10},
	}
}

// Subject holds the per-subject state that drives recommendations.
type Subject struct {
	Name          string
	ExamDate      *Date
	Confidence    int
	LastStudiedAt *time.Time
	StudyCount    int
	ExcludedTasks []TaskType
}

// Excludes reports whether the subject never wants the given task suggested.
func (s Subject) Excludes(task TaskType) bool {
	for _, t := range s.ExcludedTasks {
		if t == task {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the subject.
func (s Subject) Clone() Subject {
	out := s
	if s.ExamDate != nil {
		d := *s.ExamDate
		out.ExamDate = &d
	}
	if s.LastStudiedAt != nil {
		t := *s.LastStudiedAt
		out.LastStudiedAt = &t
	}
	if s.ExcludedTasks != nil {
		out.ExcludedTasks = append([]TaskType(nil), s.ExcludedTasks...)
	}
	return out
}

// Session captures a completed study session.
type Session struct {
	ID              string
	Subject         string
	Task            TaskType
	DurationMinutes int
	Effectiveness   int
	Timestamp       time.Time
}

// EngineConfig holds the scoring weights and windows of the recommender.
type EngineConfig struct {
	UrgencyWeight    float64
	ConfidenceWeight float64
	EnergyWeight     float64
	RepetitionWeight float64
	HorizonDays      int
	Cooldown         time.Duration
	PressureDays     int
	UndershootStep   float64
	DecayPerWeek     int
	MaxDecay         int
}

// DefaultEngineConfig returns the tuned default weights.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		UrgencyWeight:    0.35,
		ConfidenceWeight: 0.30,
		EnergyWeight:     0.20,
		RepetitionWeight: 0.50,
		HorizonDays:      60,
		Cooldown:         24 * time.Hour,
		PressureDays:     3,
		UndershootStep:   0.25,
		DecayPerWeek:     1,
		MaxDecay:         3,
	}
}

// Factors are the normalized score components of a candidate.
type Factors struct {
	Urgency       float64
	ConfidenceGap float64
	EnergyFit     float64
	Repetition    float64
}

// Candidate is a scored (subject, task) pair.
type Candidate struct {
	Subject       string
	Task          TaskType
	Score         float64
	Factors       Factors
	DaysUntilExam *int
	Overshoot     bool
}

// Recommendation is the outcome of a scoring run.
type Recommendation struct {
	Best   Candidate
	Ranked []Candidate
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	Subject string
	Since   *time.Time
	Last    int
}

// StatsConfig defines filters for stats output.
type StatsConfig struct {
	Subject  string
	LastDays int
	Days     int
}

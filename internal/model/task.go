package model

import (
	"fmt"
	"strings"
)

// Energy is the student's current energy level.
type Energy int

// Energy levels, ordered.
const (
	EnergyLow Energy = iota + 1
	EnergyMedium
	EnergyHigh
)

// String returns the lowercase name of the level.
func (e Energy) String() string {
	switch e {
	case EnergyLow:
		return "low"
	case EnergyMedium:
		return "medium"
	case EnergyHigh:
		return "high"
	default:
		return fmt.Sprintf("energy(%d)", int(e))
	}
}

// Valid reports whether e is one of the declared levels.
func (e Energy) Valid() bool {
	return e >= EnergyLow && e <= EnergyHigh
}

// ParseEnergy parses low/medium/high (also l/m/h).
func ParseEnergy(s string) (Energy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "l":
		return EnergyLow, nil
	case "medium", "med", "m":
		return EnergyMedium, nil
	case "high", "h":
		return EnergyHigh, nil
	}
	return 0, fmt.Errorf("invalid energy %q (use low, medium or high)", s)
}

// TaskType identifies a kind of study activity.
type TaskType string

// Task types.
const (
	TaskFlashcards        TaskType = "flashcards"
	TaskNotesReview       TaskType = "notes-review"
	TaskPracticeQuestions TaskType = "practice-questions"
	TaskDiagrams          TaskType = "diagrams"
	TaskEssay             TaskType = "essay"
	TaskPastPaper         TaskType = "past-paper"
)

// TaskSpec describes what a task type demands.
type TaskSpec struct {
	Type       TaskType
	Energy     Energy
	MinMinutes int
	Label      string
}

var taskSpecs = []TaskSpec{
	{Type: TaskFlashcards, Energy: EnergyLow, MinMinutes: 5, Label: "Flashcards"},
	{Type: TaskNotesReview, Energy: EnergyLow, MinMinutes: 10, Label: "Light notes review"},
	{Type: TaskPracticeQuestions, Energy: EnergyMedium, MinMinutes: 15, Label: "Practice questions"},
	{Type: TaskDiagrams, Energy: EnergyMedium, MinMinutes: 15, Label: "Diagrams"},
	{Type: TaskEssay, Energy: EnergyHigh, MinMinutes: 30, Label: "Essay"},
	{Type: TaskPastPaper, Energy: EnergyHigh, MinMinutes: 40, Label: "Past paper section"},
}

// TaskSpecs returns all task types in declaration order.
func TaskSpecs() []TaskSpec {
	return append([]TaskSpec(nil), taskSpecs...)
}

// Spec returns the energy and minimum minutes for t.
func (t TaskType) Spec() (TaskSpec, bool) {
	for _, s := range taskSpecs {
		if s.Type == t {
			return s, true
		}
	}
	return TaskSpec{}, false
}

// Valid reports whether t is a declared task type.
func (t TaskType) Valid() bool {
	_, ok := t.Spec()
	return ok
}

// Label returns a display name.
func (t TaskType) Label() string {
	if s, ok := t.Spec(); ok {
		return s.Label
	}
	return string(t)
}

// ParseTaskType parses a task name, accepting spaces and underscores for dashes.
func ParseTaskType(s string) (TaskType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "-", "_", "-").Replace(norm)
	t := TaskType(norm)
	if !t.Valid() {
		return "", fmt.Errorf("invalid task type %q (use one of: %s)", s, strings.Join(TaskNames(), ", "))
	}
	return t, nil
}

// TaskNames lists declared task names.
func TaskNames() []string {
	out := make([]string, 0, len(taskSpecs))
	for _, s := range taskSpecs {
		out = append(out, string(s.Type))
	}
	return out
}

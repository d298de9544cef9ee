// Package registry holds the subject registry.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/nextstep/internal/model"
)

// Registry stores subjects keyed by name. It is not safe for concurrent use.
type Registry struct {
	bounds   model.Range
	subjects map[string]*model.Subject
}

// New returns an empty registry validating confidence against bounds.
func New(bounds model.Range) *Registry {
	return &Registry{
		bounds:   bounds,
		subjects: map[string]*model.Subject{},
	}
}

// Bounds returns the confidence bounds.
func (r *Registry) Bounds() model.Range {
	return r.bounds
}

// Add registers a new subject.
func (r *Registry) Add(s model.Subject) error {
	if err := r.Validate(s); err != nil {
		return err
	}
	name := strings.TrimSpace(s.Name)
	if _, ok := r.subjects[name]; ok {
		return fmt.Errorf("%w: %s", model.ErrDuplicateSubject, name)
	}
	c := s.Clone()
	c.Name = name
	r.subjects[name] = &c
	return nil
}

// Validate checks a subject's fields against the registry's bounds. It does
// not check whether the name is already registered.
func (r *Registry) Validate(s model.Subject) error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Errorf("subject name must not be empty")
	}
	if !r.bounds.Contains(s.Confidence) {
		return fmt.Errorf("%w: confidence %d for %s (allowed %d-%d)", model.ErrOutOfRange, s.Confidence, name, r.bounds.Min, r.bounds.Max)
	}
	if s.StudyCount < 0 {
		return fmt.Errorf("%w: negative study count for %s", model.ErrOutOfRange, name)
	}
	for _, t := range s.ExcludedTasks {
		if !t.Valid() {
			return fmt.Errorf("unknown excluded task %q for %s", t, name)
		}
	}
	return nil
}

// Remove deletes a subject.
func (r *Registry) Remove(name string) error {
	if _, ok := r.subjects[name]; !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, name)
	}
	delete(r.subjects, name)
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.subjects[name]
	return ok
}

// Len returns the number of subjects.
func (r *Registry) Len() int {
	return len(r.subjects)
}

// Get returns a copy of the named subject.
func (r *Registry) Get(name string) (model.Subject, error) {
	s, ok := r.subjects[name]
	if !ok {
		return model.Subject{}, fmt.Errorf("%w: %s", model.ErrNotFound, name)
	}
	return s.Clone(), nil
}

// List returns copies of all subjects ordered by name.
func (r *Registry) List() []model.Subject {
	names := make([]string, 0, len(r.subjects))
	for name := range r.subjects {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]model.Subject, 0, len(names))
	for _, name := range names {
		out = append(out, r.subjects[name].Clone())
	}
	return out
}

// UpdateConfidence sets a subject's confidence. Out-of-bounds values are rejected, never clamped.
func (r *Registry) UpdateConfidence(name string, value int) error {
	s, ok := r.subjects[name]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, name)
	}
	if !r.bounds.Contains(value) {
		return fmt.Errorf("%w: confidence %d (allowed %d-%d)", model.ErrOutOfRange, value, r.bounds.Min, r.bounds.Max)
	}
	s.Confidence = value
	return nil
}

// SetExamDate sets or clears (nil) a subject's exam date.
func (r *Registry) SetExamDate(name string, date *model.Date) error {
	s, ok := r.subjects[name]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, name)
	}
	if date == nil {
		s.ExamDate = nil
		return nil
	}
	d := *date
	s.ExamDate = &d
	return nil
}

// SetExcludedTasks replaces the subject's excluded task list.
func (r *Registry) SetExcludedTasks(name string, tasks []model.TaskType) error {
	s, ok := r.subjects[name]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, name)
	}
	for _, t := range tasks {
		if !t.Valid() {
			return fmt.Errorf("unknown task %q", t)
		}
	}
	s.ExcludedTasks = append([]model.TaskType(nil), tasks...)
	return nil
}

// Touch records a study session at ts: bumps the study count and moves
// LastStudiedAt forward (a backdated session never moves it back).
func (r *Registry) Touch(name string, ts time.Time) error {
	s, ok := r.subjects[name]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, name)
	}
	s.StudyCount++
	if s.LastStudiedAt == nil || ts.After(*s.LastStudiedAt) {
		t := ts
		s.LastStudiedAt = &t
	}
	return nil
}

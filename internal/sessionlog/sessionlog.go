// Package sessionlog provides the append-only study session log.
package sessionlog

import (
	"fmt"
	"sort"
	"time"

	"github.com/verte-zerg/nextstep/internal/model"
)

// SubjectChecker reports whether a subject is registered.
type SubjectChecker interface {
	Has(name string) bool
}

// Log keeps sessions in chronological order. Sessions with equal
// timestamps keep their append order.
type Log struct {
	subjects      SubjectChecker
	effectiveness model.Range
	entries       []model.Session
}

// New returns an empty log validating subjects against checker.
func New(checker SubjectChecker, effectiveness model.Range) *Log {
	return &Log{
		subjects:      checker,
		effectiveness: effectiveness,
	}
}

// Validate checks a session without appending it.
func (l *Log) Validate(s model.Session) error {
	if !l.subjects.Has(s.Subject) {
		return fmt.Errorf("%w: %q", model.ErrUnknownSubject, s.Subject)
	}
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be > 0 minutes, got %d", model.ErrInvalidSession, s.DurationMinutes)
	}
	if !s.Task.Valid() {
		return fmt.Errorf("%w: unknown task type %q", model.ErrInvalidSession, s.Task)
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", model.ErrInvalidSession)
	}
	if !l.effectiveness.Contains(s.Effectiveness) {
		return fmt.Errorf("%w: %w: effectiveness %d (allowed %d-%d)", model.ErrInvalidSession, model.ErrOutOfRange,
			s.Effectiveness, l.effectiveness.Min, l.effectiveness.Max)
	}
	return nil
}

// Append validates and records a session.
func (l *Log) Append(s model.Session) error {
	if err := l.Validate(s); err != nil {
		return err
	}
	l.insert(s)
	return nil
}

// Restore records a previously persisted session. Only structural checks
// apply: the subject may since have been removed from the registry.
func (l *Log) Restore(s model.Session) error {
	if s.DurationMinutes <= 0 || !s.Task.Valid() || s.Timestamp.IsZero() {
		return fmt.Errorf("%w: session %s", model.ErrInvalidSession, s.ID)
	}
	if !l.effectiveness.Contains(s.Effectiveness) {
		return fmt.Errorf("%w: session %s effectiveness %d", model.ErrOutOfRange, s.ID, s.Effectiveness)
	}
	l.insert(s)
	return nil
}

func (l *Log) insert(s model.Session) {
	idx := sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].Timestamp.After(s.Timestamp)
	})
	l.entries = append(l.entries, model.Session{})
	copy(l.entries[idx+1:], l.entries[idx:])
	l.entries[idx] = s
}

// Len returns the number of sessions.
func (l *Log) Len() int {
	return len(l.entries)
}

// All returns every session in chronological order.
func (l *Log) All() []model.Session {
	return append([]model.Session(nil), l.entries...)
}

// EntriesFor returns the sessions of one subject in chronological order.
func (l *Log) EntriesFor(subject string) []model.Session {
	var out []model.Session
	for _, s := range l.entries {
		if s.Subject == subject {
			out = append(out, s)
		}
	}
	return out
}

// CountFor returns how many sessions name the subject.
func (l *Log) CountFor(subject string) int {
	n := 0
	for _, s := range l.entries {
		if s.Subject == subject {
			n++
		}
	}
	return n
}

// MostRecent returns the latest session of a subject, if any.
func (l *Log) MostRecent(subject string) (model.Session, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Subject == subject {
			return l.entries[i], true
		}
	}
	return model.Session{}, false
}

// Since returns sessions at or after t.
func (l *Log) Since(t time.Time) []model.Session {
	idx := sort.Search(len(l.entries), func(i int) bool {
		return !l.entries[i].Timestamp.Before(t)
	})
	return append([]model.Session(nil), l.entries[idx:]...)
}

// Filter applies a session filter; Last keeps the newest N after other filters.
func (l *Log) Filter(f model.SessionFilter) []model.Session {
	var out []model.Session
	for _, s := range l.entries {
		if f.Subject != "" && s.Subject != f.Subject {
			continue
		}
		if f.Since != nil && s.Timestamp.Before(*f.Since) {
			continue
		}
		out = append(out, s)
	}
	if f.Last > 0 && len(out) > f.Last {
		out = out[len(out)-f.Last:]
	}
	return out
}

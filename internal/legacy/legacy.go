// Package legacy reads the JSON files written by the first version of the
// tool: subjects.json (name -> confidence, exam date) and log.json (a list of
// sessions with free-text task names).
package legacy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/nextstep/internal/model"
)

const (
	// SubjectsFile is the legacy subjects file name.
	SubjectsFile = "subjects.json"
	// LogFile is the legacy session log file name.
	LogFile = "log.json"
)

// sessionNamespace seeds deterministic session IDs so a repeated import of
// the same log is skipped instead of duplicated.
var sessionNamespace = uuid.MustParse("5f0c8a8e-4d0b-4c53-9a36-2f6f3f0f9a11")

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

type subjectEntry struct {
	Confidence *int    `json:"confidence"`
	ExamDate   *string `json:"exam_date"`
}

type logEntry struct {
	Subject       string `json:"subject"`
	Timestamp     string `json:"timestamp"`
	TaskType      string `json:"task_type"`
	DurationMins  int    `json:"duration_mins"`
	Effectiveness *int   `json:"effectiveness"`
}

// Data is the converted content of a legacy directory.
type Data struct {
	Subjects []model.Subject
	Sessions []model.Session
}

// Options control the conversion.
type Options struct {
	Bounds model.Bounds
	// Location interprets naive timestamps; nil means time.Local.
	Location *time.Location
	// Fallback is used for task names that match no known task.
	Fallback model.TaskType
}

// ReadDir reads subjects.json and log.json from dir. Either file may be
// missing, but not both.
func ReadDir(dir string, opts Options) (Data, error) {
	subjectsPath := filepath.Join(dir, SubjectsFile)
	logPath := filepath.Join(dir, LogFile)
	_, serr := os.Stat(subjectsPath)
	_, lerr := os.Stat(logPath)
	if os.IsNotExist(serr) && os.IsNotExist(lerr) {
		return Data{}, fmt.Errorf("no %s or %s in %s", SubjectsFile, LogFile, dir)
	}
	var subjects map[string]subjectEntry
	if serr == nil {
		if err := readJSON(subjectsPath, &subjects); err != nil {
			return Data{}, err
		}
	}
	var entries []logEntry
	if lerr == nil {
		if err := readJSON(logPath, &entries); err != nil {
			return Data{}, err
		}
	}
	return convert(subjects, entries, opts)
}

// ReadFile detects whether path holds a subjects map or a session list and
// converts it.
func ReadFile(path string, opts Options) (Data, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var entries []logEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return Data{}, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return convert(nil, entries, opts)
	}
	var subjects map[string]subjectEntry
	if err := json.Unmarshal(data, &subjects); err != nil {
		return Data{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return convert(subjects, nil, opts)
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// convert maps decoded legacy records onto the domain model. Subjects named
// only in the log are created with a mid-scale confidence, as are subjects
// whose confidence was never set.
func convert(subjects map[string]subjectEntry, entries []logEntry, opts Options) (Data, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	fallback := opts.Fallback
	if fallback == "" {
		fallback = model.TaskPracticeQuestions
	}
	mid := opts.Bounds.Confidence.Mid()

	byName := map[string]model.Subject{}
	for rawName, entry := range subjects {
		name := strings.TrimSpace(rawName)
		if name == "" {
			continue
		}
		sub := model.Subject{Name: name, Confidence: mid}
		if entry.Confidence != nil {
			if !opts.Bounds.Confidence.Contains(*entry.Confidence) {
				return Data{}, fmt.Errorf("%w: confidence %d for %s", model.ErrOutOfRange, *entry.Confidence, name)
			}
			sub.Confidence = *entry.Confidence
		}
		if entry.ExamDate != nil && *entry.ExamDate != "" {
			d, err := model.ParseDate(*entry.ExamDate)
			if err != nil {
				return Data{}, fmt.Errorf("subject %s: %w", name, err)
			}
			sub.ExamDate = &d
		}
		byName[name] = sub
	}

	sessions := make([]model.Session, 0, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Subject)
		if name == "" {
			return Data{}, fmt.Errorf("%w: entry %d has no subject", model.ErrInvalidSession, i)
		}
		ts, err := ParseTimestamp(e.Timestamp, loc)
		if err != nil {
			return Data{}, fmt.Errorf("entry %d: %w", i, err)
		}
		effectiveness := opts.Bounds.Effectiveness.Mid()
		if e.Effectiveness != nil {
			effectiveness = *e.Effectiveness
		}
		s := model.Session{
			Subject:         name,
			Task:            MapTask(e.TaskType, fallback),
			DurationMinutes: e.DurationMins,
			Effectiveness:   effectiveness,
			Timestamp:       ts,
		}
		s.ID = sessionID(s, e.TaskType)
		sessions = append(sessions, s)
		if _, ok := byName[name]; !ok {
			byName[name] = model.Subject{Name: name, Confidence: mid}
		}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Timestamp.Before(sessions[j].Timestamp)
	})

	out := Data{Sessions: sessions}
	for _, s := range byName {
		out.Subjects = append(out.Subjects, s)
	}
	sort.Slice(out.Subjects, func(i, j int) bool {
		return out.Subjects[i].Name < out.Subjects[j].Name
	})
	return out, nil
}

// ParseTimestamp parses the naive ISO timestamps written by the legacy tool,
// with a space or T separator and optional fraction, in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if layout == time.RFC3339Nano {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// MapTask maps a free-text task description onto a task type.
func MapTask(text string, fallback model.TaskType) model.TaskType {
	if t, err := model.ParseTaskType(text); err == nil {
		return t
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "past paper"), strings.Contains(lower, "exam paper"):
		return model.TaskPastPaper
	case strings.Contains(lower, "essay"):
		return model.TaskEssay
	case strings.Contains(lower, "flash"):
		return model.TaskFlashcards
	case strings.Contains(lower, "practice"), strings.Contains(lower, "question"):
		return model.TaskPracticeQuestions
	case strings.Contains(lower, "diagram"):
		return model.TaskDiagrams
	case strings.Contains(lower, "revision"), strings.Contains(lower, "review"), strings.Contains(lower, "notes"), strings.Contains(lower, "reading"):
		return model.TaskNotesReview
	}
	return fallback
}

func sessionID(s model.Session, rawTask string) string {
	key := fmt.Sprintf("%s|%d|%s|%d|%d", s.Subject, s.Timestamp.UnixNano(), rawTask, s.DurationMinutes, s.Effectiveness)
	return uuid.NewSHA1(sessionNamespace, []byte(key)).String()
}

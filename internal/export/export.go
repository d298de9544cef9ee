// Package export writes and reads YAML snapshots of subjects and sessions.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/nextstep/internal/model"
)

// Version is the snapshot format version.
const Version = 1

// Snapshot is the YAML document layout.
type Snapshot struct {
	Version    int       `yaml:"version"`
	ExportedAt time.Time `yaml:"exported_at"`
	Subjects   []Subject `yaml:"subjects"`
	Sessions   []Session `yaml:"sessions"`
}

// Subject is the YAML form of model.Subject.
type Subject struct {
	Name          string   `yaml:"name"`
	Confidence    int      `yaml:"confidence"`
	ExamDate      string   `yaml:"exam_date,omitempty"`
	ExcludedTasks []string `yaml:"excluded_tasks,omitempty"`
}

// Session is the YAML form of model.Session.
type Session struct {
	ID            string    `yaml:"id"`
	Subject       string    `yaml:"subject"`
	Task          string    `yaml:"task"`
	Minutes       int       `yaml:"minutes"`
	Effectiveness int       `yaml:"effectiveness"`
	At            time.Time `yaml:"at"`
}

// Build converts domain values into a snapshot. Derived subject fields
// (study count, last studied) are omitted; they are rebuilt from sessions.
func Build(subjects []model.Subject, sessions []model.Session, now time.Time) Snapshot {
	snap := Snapshot{Version: Version, ExportedAt: now.UTC()}
	for _, s := range subjects {
		out := Subject{Name: s.Name, Confidence: s.Confidence}
		if s.ExamDate != nil {
			out.ExamDate = s.ExamDate.String()
		}
		for _, t := range s.ExcludedTasks {
			out.ExcludedTasks = append(out.ExcludedTasks, string(t))
		}
		snap.Subjects = append(snap.Subjects, out)
	}
	for _, s := range sessions {
		snap.Sessions = append(snap.Sessions, Session{
			ID:            s.ID,
			Subject:       s.Subject,
			Task:          string(s.Task),
			Minutes:       s.DurationMinutes,
			Effectiveness: s.Effectiveness,
			At:            s.Timestamp.UTC(),
		})
	}
	return snap
}

// Write encodes snap as YAML.
func Write(w io.Writer, snap Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return enc.Close()
}

// WriteFile writes snap to path, creating parent directories.
func WriteFile(path string, snap Snapshot) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return Write(f, snap)
}

// Read decodes a snapshot.
func Read(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != Version {
		return Snapshot{}, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap, nil
}

// ReadFile decodes the snapshot stored at path.
func ReadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close for read-only file.
			_ = cerr
		}
	}()
	return Read(f)
}

// Model converts a snapshot back into domain values.
func (s Snapshot) Model() ([]model.Subject, []model.Session, error) {
	subjects := make([]model.Subject, 0, len(s.Subjects))
	for _, in := range s.Subjects {
		sub := model.Subject{Name: in.Name, Confidence: in.Confidence}
		if in.ExamDate != "" {
			d, err := model.ParseDate(in.ExamDate)
			if err != nil {
				return nil, nil, fmt.Errorf("subject %s: %w", in.Name, err)
			}
			sub.ExamDate = &d
		}
		for _, name := range in.ExcludedTasks {
			t, err := model.ParseTaskType(name)
			if err != nil {
				return nil, nil, fmt.Errorf("subject %s: %w", in.Name, err)
			}
			sub.ExcludedTasks = append(sub.ExcludedTasks, t)
		}
		subjects = append(subjects, sub)
	}
	sessions := make([]model.Session, 0, len(s.Sessions))
	for _, in := range s.Sessions {
		t, err := model.ParseTaskType(in.Task)
		if err != nil {
			return nil, nil, fmt.Errorf("session %s: %w", in.ID, err)
		}
		sessions = append(sessions, model.Session{
			ID:              in.ID,
			Subject:         in.Subject,
			Task:            t,
			DurationMinutes: in.Minutes,
			Effectiveness:   in.Effectiveness,
			Timestamp:       in.At,
		})
	}
	return subjects, sessions, nil
}

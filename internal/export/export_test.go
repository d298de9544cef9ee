package export

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/nextstep/internal/model"
)

func TestSnapshotRoundTrip(t *testing.T) {
	exam := model.NewDate(2025, time.June, 4)
	studied := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	subjects := []model.Subject{
		{Name: "Maths", Confidence: 4, ExamDate: &exam, ExcludedTasks: []model.TaskType{model.TaskEssay}},
		{Name: "Irish", Confidence: 6, StudyCount: 1, LastStudiedAt: &studied},
	}
	sessions := []model.Session{
		{ID: "a", Subject: "Irish", Task: model.TaskFlashcards, DurationMinutes: 10, Effectiveness: 7, Timestamp: studied},
	}

	path := filepath.Join(t.TempDir(), "out", "snap.yaml")
	require.NoError(t, WriteFile(path, Build(subjects, sessions, studied)))

	snap, err := ReadFile(path)
	require.NoError(t, err)
	gotSubjects, gotSessions, err := snap.Model()
	require.NoError(t, err)

	// Derived fields are rebuilt on import, not exported.
	subjects[1].StudyCount = 0
	subjects[1].LastStudiedAt = nil
	if diff := cmp.Diff(subjects, gotSubjects); diff != "" {
		t.Fatalf("subjects mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sessions, gotSessions); diff != "" {
		t.Fatalf("sessions mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteUsesSnakeCaseKeys(t *testing.T) {
	var buf bytes.Buffer
	exam := model.NewDate(2025, time.June, 4)
	snap := Build([]model.Subject{{Name: "Maths", Confidence: 4, ExamDate: &exam}}, nil, time.Unix(0, 0))
	require.NoError(t, Write(&buf, snap))
	require.Contains(t, buf.String(), "exam_date:")
	require.Contains(t, buf.String(), "2025-06-04")
	require.Contains(t, buf.String(), "version: 1")
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	_, err := Read(strings.NewReader("version: 9\nsubjects: []\nsessions: []\n"))
	require.Error(t, err)
}

func TestModelRejectsUnknownTask(t *testing.T) {
	snap := Snapshot{Version: Version, Sessions: []Session{{ID: "x", Subject: "Maths", Task: "juggling", Minutes: 5, Effectiveness: 5}}}
	_, _, err := snap.Model()
	require.Error(t, err)
}

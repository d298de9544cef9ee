package legacy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/nextstep/internal/model"
)

func writeFile(t *testing.T, dir, name, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SubjectsFile, `{
    "Maths": {"confidence": 4, "exam_date": "2025-06-04"},
    "Irish": {"confidence": null, "exam_date": null}
}`)
	writeFile(t, dir, LogFile, `[
 {"subject": "Maths", "timestamp": "2025-05-02 18:30:00.123456", "task_type": "Practice Questions or Diagrams", "duration_mins": 30, "effectiveness": 7},
 {"subject": "History", "timestamp": "2025-05-01T09:00:00", "task_type": "Essays or Full Past Paper Sections", "duration_mins": 45, "effectiveness": 6}
]`)

	data, err := ReadDir(dir, Options{Bounds: model.DefaultBounds(), Location: time.UTC})
	require.NoError(t, err)

	require.Len(t, data.Subjects, 3)
	require.Equal(t, "History", data.Subjects[0].Name)
	require.Equal(t, 5, data.Subjects[0].Confidence)
	require.Equal(t, "Irish", data.Subjects[1].Name)
	require.Nil(t, data.Subjects[1].ExamDate)
	require.Equal(t, "Maths", data.Subjects[2].Name)
	require.Equal(t, 4, data.Subjects[2].Confidence)
	require.Equal(t, "2025-06-04", data.Subjects[2].ExamDate.String())

	require.Len(t, data.Sessions, 2)
	require.Equal(t, "History", data.Sessions[0].Subject)
	require.Equal(t, model.TaskPastPaper, data.Sessions[0].Task)
	require.Equal(t, model.TaskPracticeQuestions, data.Sessions[1].Task)
	require.Equal(t, time.Date(2025, 5, 2, 18, 30, 0, 123456000, time.UTC), data.Sessions[1].Timestamp)
	require.NotEmpty(t, data.Sessions[0].ID)
}

func TestReadDirStableIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, LogFile, `[{"subject": "Maths", "timestamp": "2025-05-02 18:30:00", "task_type": "Flashcards", "duration_mins": 10, "effectiveness": 5}]`)
	opts := Options{Bounds: model.DefaultBounds(), Location: time.UTC}
	first, err := ReadDir(dir, opts)
	require.NoError(t, err)
	second, err := ReadDir(dir, opts)
	require.NoError(t, err)
	require.Equal(t, first.Sessions[0].ID, second.Sessions[0].ID)
}

func TestReadDirMissingFiles(t *testing.T) {
	_, err := ReadDir(t.TempDir(), Options{Bounds: model.DefaultBounds()})
	require.Error(t, err)
}

func TestReadDirConfidenceOutOfRange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SubjectsFile, `{"Maths": {"confidence": 12, "exam_date": null}}`)
	_, err := ReadDir(dir, Options{Bounds: model.DefaultBounds()})
	require.ErrorIs(t, err, model.ErrOutOfRange)
}

func TestReadFileDetectsLog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sessions.json", `  [{"subject": "Irish", "timestamp": "2025-05-02 18:30:00", "task_type": "flashcards", "duration_mins": 10, "effectiveness": 5}]`)
	data, err := ReadFile(filepath.Join(dir, "sessions.json"), Options{Bounds: model.DefaultBounds(), Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, data.Sessions, 1)
	require.Len(t, data.Subjects, 1)
}

func TestMapTask(t *testing.T) {
	cases := map[string]model.TaskType{
		"Flashcards or Light Revision":       model.TaskFlashcards,
		"Practice Questions or Diagrams":     model.TaskPracticeQuestions,
		"Essays or Full Past Paper Sections": model.TaskPastPaper,
		"Essay":                              model.TaskEssay,
		"diagrams":                           model.TaskDiagrams,
		"notes review":                       model.TaskNotesReview,
		"Reading":                            model.TaskNotesReview,
		"something else":                     model.TaskDiagrams,
	}
	for in, want := range cases {
		require.Equal(t, want, MapTask(in, model.TaskDiagrams), in)
	}
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("IST", 3600)
	got, err := ParseTimestamp("2025-05-02 18:30:00", loc)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 5, 2, 18, 30, 0, 0, loc).Unix(), got.Unix())

	got, err = ParseTimestamp("2025-05-02T18:30:00Z", loc)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 5, 2, 18, 30, 0, 0, time.UTC).Unix(), got.Unix())

	_, err = ParseTimestamp("yesterday", loc)
	require.Error(t, err)
}

// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/verte-zerg/nextstep/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store wraps SQLite access for subjects and sessions.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
// A file that cannot be migrated is reported as model.ErrCorruptStore.
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, errors.Wrapf(model.ErrCorruptStore, "apply migrations: %v", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "migrations sub-fs")
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return errors.Wrap(err, "create migration provider")
	}
	if _, err := provider.Up(ctx); err != nil {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

// Load reads every subject (ordered by name) and session (chronological).
// Unparseable rows are reported as model.ErrCorruptStore.
func (s *Store) Load(ctx context.Context) ([]model.Subject, []model.Session, error) {
	subjects, err := s.loadSubjects(ctx)
	if err != nil {
		return nil, nil, err
	}
	sessions, err := s.loadSessions(ctx)
	if err != nil {
		return nil, nil, err
	}
	return subjects, sessions, nil
}

func (s *Store) loadSubjects(ctx context.Context) ([]model.Subject, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, exam_date, confidence, last_studied_at, study_count
		 FROM subjects
		 ORDER BY name ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "query subjects")
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var subjects []model.Subject
	for rows.Next() {
		var sub model.Subject
		var examDate sql.NullString
		var lastStudied sql.NullInt64
		if err := rows.Scan(&sub.Name, &examDate, &sub.Confidence, &lastStudied, &sub.StudyCount); err != nil {
			return nil, errors.Wrapf(model.ErrCorruptStore, "scan subject: %v", err)
		}
		if examDate.Valid && examDate.String != "" {
			d, err := model.ParseDate(examDate.String)
			if err != nil {
				return nil, errors.Wrapf(model.ErrCorruptStore, "subject %s: %v", sub.Name, err)
			}
			sub.ExamDate = &d
		}
		if lastStudied.Valid {
			t := time.Unix(0, lastStudied.Int64)
			sub.LastStudiedAt = &t
		}
		subjects = append(subjects, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate subjects")
	}

	excluded, err := s.loadExcludedTasks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range subjects {
		subjects[i].ExcludedTasks = excluded[subjects[i].Name]
	}
	return subjects, nil
}

func (s *Store) loadExcludedTasks(ctx context.Context) (map[string][]model.TaskType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, task FROM subject_excluded_tasks ORDER BY subject, task`)
	if err != nil {
		return nil, errors.Wrap(err, "query excluded tasks")
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[string][]model.TaskType{}
	for rows.Next() {
		var subject, task string
		if err := rows.Scan(&subject, &task); err != nil {
			return nil, errors.Wrapf(model.ErrCorruptStore, "scan excluded task: %v", err)
		}
		t := model.TaskType(task)
		if !t.Valid() {
			return nil, errors.Wrapf(model.ErrCorruptStore, "subject %s: unknown excluded task %q", subject, task)
		}
		result[subject] = append(result[subject], t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate excluded tasks")
	}
	return result, nil
}

func (s *Store) loadSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject, task, duration_minutes, effectiveness, occurred_at
		 FROM sessions
		 ORDER BY occurred_at ASC, rowid ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "query sessions")
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var task string
		var occurredAt int64
		if err := rows.Scan(&sess.ID, &sess.Subject, &task, &sess.DurationMinutes, &sess.Effectiveness, &occurredAt); err != nil {
			return nil, errors.Wrapf(model.ErrCorruptStore, "scan session: %v", err)
		}
		sess.Task = model.TaskType(task)
		if !sess.Task.Valid() {
			return nil, errors.Wrapf(model.ErrCorruptStore, "session %s: unknown task %q", sess.ID, task)
		}
		sess.Timestamp = time.Unix(0, occurredAt)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate sessions")
	}
	return sessions, nil
}

// Save persists the full subject set and any sessions not yet stored in a
// single transaction. Subjects missing from the snapshot are deleted;
// stored sessions are never rewritten.
func (s *Store) Save(ctx context.Context, subjects []model.Subject, sessions []model.Session) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if err = saveSubjects(ctx, tx, subjects); err != nil {
		return err
	}
	if err = saveSessions(ctx, tx, sessions); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

func saveSubjects(ctx context.Context, tx *sql.Tx, subjects []model.Subject) error {
	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_subjects (name TEXT PRIMARY KEY)`); err != nil {
		return errors.Wrap(err, "create temp table")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keep_subjects`); err != nil {
		return errors.Wrap(err, "reset temp table")
	}

	upsert, err := tx.PrepareContext(ctx,
		`INSERT INTO subjects (name, exam_date, confidence, last_studied_at, study_count)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			exam_date = excluded.exam_date,
			confidence = excluded.confidence,
			last_studied_at = excluded.last_studied_at,
			study_count = excluded.study_count`)
	if err != nil {
		return errors.Wrap(err, "prepare subject upsert")
	}
	defer func() {
		if cerr := upsert.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	for _, sub := range subjects {
		var examDate sql.NullString
		if sub.ExamDate != nil {
			examDate = sql.NullString{String: sub.ExamDate.String(), Valid: true}
		}
		var lastStudied sql.NullInt64
		if sub.LastStudiedAt != nil {
			lastStudied = sql.NullInt64{Int64: sub.LastStudiedAt.UnixNano(), Valid: true}
		}
		if _, err := upsert.ExecContext(ctx, sub.Name, examDate, sub.Confidence, lastStudied, sub.StudyCount); err != nil {
			return errors.Wrapf(err, "upsert subject %s", sub.Name)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO keep_subjects (name) VALUES (?)`, sub.Name); err != nil {
			return errors.Wrap(err, "track subject")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM subject_excluded_tasks WHERE subject = ?`, sub.Name); err != nil {
			return errors.Wrapf(err, "clear excluded tasks for %s", sub.Name)
		}
		for _, task := range sub.ExcludedTasks {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO subject_excluded_tasks (subject, task) VALUES (?, ?)`, sub.Name, string(task)); err != nil {
				return errors.Wrapf(err, "insert excluded task for %s", sub.Name)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM subject_excluded_tasks WHERE subject NOT IN (SELECT name FROM keep_subjects)`); err != nil {
		return errors.Wrap(err, "delete stale excluded tasks")
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM subjects WHERE name NOT IN (SELECT name FROM keep_subjects)`); err != nil {
		return errors.Wrap(err, "delete removed subjects")
	}
	return nil
}

func saveSessions(ctx context.Context, tx *sql.Tx, sessions []model.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, subject, task, duration_minutes, effectiveness, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare session insert")
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, sess := range sessions {
		if sess.ID == "" {
			return errors.Errorf("session for %s has no id", sess.Subject)
		}
		if _, err := stmt.ExecContext(ctx, sess.ID, sess.Subject, string(sess.Task), sess.DurationMinutes, sess.Effectiveness, sess.Timestamp.UnixNano()); err != nil {
			return errors.Wrapf(err, "insert session %s", sess.ID)
		}
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/pkg/story"
	pstorage "github.com/jwebster45206/plotweaver/pkg/storage"
	_ "modernc.org/sqlite"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS finished_stories (
	id                 TEXT PRIMARY KEY,
	actions            INTEGER NOT NULL,
	iterations         INTEGER NOT NULL,
	missing_conditions INTEGER NOT NULL,
	irrelevant_actions INTEGER NOT NULL,
	illogical_actions  INTEGER NOT NULL,
	impasses           INTEGER NOT NULL,
	transcript         TEXT NOT NULL,
	finished_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS finished_stories_finished_at ON finished_stories (finished_at DESC);
`

// SQLiteArchive keeps the summary and transcript of finished stories.
type SQLiteArchive struct {
	sqlDB *sql.DB
}

var _ pstorage.Archive = (*SQLiteArchive)(nil)

// OpenArchive opens (or creates) the archive database at path.
func OpenArchive(path string) (*SQLiteArchive, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(archiveSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}
	return &SQLiteArchive{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (a *SQLiteArchive) Close() error {
	if a == nil || a.sqlDB == nil {
		return nil
	}
	return a.sqlDB.Close()
}

// ArchiveStory upserts the summary of st.
func (a *SQLiteArchive) ArchiveStory(ctx context.Context, st *story.Story) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st == nil {
		return errors.New("story cannot be nil")
	}
	row := pstorage.Summarize(st)
	finishedAt := row.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}
	_, err := a.sqlDB.ExecContext(ctx,
		`INSERT INTO finished_stories (
		   id, actions, iterations, missing_conditions, irrelevant_actions,
		   illogical_actions, impasses, transcript, finished_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   actions = excluded.actions,
		   iterations = excluded.iterations,
		   missing_conditions = excluded.missing_conditions,
		   irrelevant_actions = excluded.irrelevant_actions,
		   illogical_actions = excluded.illogical_actions,
		   impasses = excluded.impasses,
		   transcript = excluded.transcript,
		   finished_at = excluded.finished_at`,
		row.ID.String(),
		row.Actions,
		row.Iterations,
		row.MissingConditions,
		row.IrrelevantActions,
		row.IllogicalActions,
		row.Impasses,
		row.Transcript,
		finishedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("archive story %s: %w", st.ID, err)
	}
	return nil
}

const archiveColumns = `id, actions, iterations, missing_conditions, irrelevant_actions,
	illogical_actions, impasses, transcript, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArchived(r rowScanner) (pstorage.ArchivedStory, error) {
	var (
		row        pstorage.ArchivedStory
		id         string
		finishedAt int64
	)
	if err := r.Scan(&id, &row.Actions, &row.Iterations, &row.MissingConditions,
		&row.IrrelevantActions, &row.IllogicalActions, &row.Impasses,
		&row.Transcript, &finishedAt); err != nil {
		return row, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return row, fmt.Errorf("parse archived id %q: %w", id, err)
	}
	row.ID = parsed
	row.FinishedAt = time.UnixMilli(finishedAt).UTC()
	return row, nil
}

// GetArchived returns the summary of id, or nil if it was never archived.
func (a *SQLiteArchive) GetArchived(ctx context.Context, id uuid.UUID) (*pstorage.ArchivedStory, error) {
	row, err := scanArchived(a.sqlDB.QueryRowContext(ctx,
		`SELECT `+archiveColumns+` FROM finished_stories WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archived story %s: %w", id, err)
	}
	return &row, nil
}

// ListArchived returns the most recently finished stories first. A
// non-positive limit returns every row.
func (a *SQLiteArchive) ListArchived(ctx context.Context, limit int) ([]pstorage.ArchivedStory, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.sqlDB.QueryContext(ctx,
		`SELECT `+archiveColumns+` FROM finished_stories ORDER BY finished_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list archived stories: %w", err)
	}
	defer rows.Close()

	var out []pstorage.ArchivedStory
	for rows.Next() {
		row, err := scanArchived(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archived story: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list archived stories: %w", err)
	}
	return out, nil
}

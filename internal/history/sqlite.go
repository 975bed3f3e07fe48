package history

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"tidyup/internal/history/migrations"
)

// SQLiteStore keeps runs in a SQLite database. Appends and undo marks are
// single transactions, so readers never observe a half-written run.
type SQLiteStore struct {
	db   *sql.DB
	path string
	opts storeOptions
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// pending migrations. path may be ":memory:".
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, path: path, opts: buildOptions(opts)}, nil
}

// AppendRun inserts the run and its moves in one transaction.
func (s *SQLiteStore) AppendRun(moves []MoveRecord) (RunID, error) {
	id := RunID(s.opts.ids.New())
	ts := s.opts.clock.Now().UTC().Format(TimestampFormat)

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs (run_id, timestamp, undone) VALUES (?, ?, 0)`, string(id), ts); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO moves (run_id, position, from_path, to_path) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare move insert: %w", err)
	}
	defer stmt.Close()
	for i, m := range moves {
		if _, err := stmt.Exec(string(id), i, m.From, m.To); err != nil {
			return "", fmt.Errorf("failed to insert move %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	s.opts.logger.Info("recorded run",
		zap.String("run_id", string(id)),
		zap.Int("moves", len(moves)),
		zap.String("history", s.path),
	)
	return id, nil
}

// MostRecentUndoable returns the newest run not yet undone, or nil.
func (s *SQLiteStore) MostRecentUndoable() (*RunRecord, error) {
	row := s.db.QueryRow(`SELECT run_id, timestamp, undone FROM runs WHERE undone = 0 ORDER BY seq DESC LIMIT 1`)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := s.loadMoves(run); err != nil {
		return nil, err
	}
	return run, nil
}

// MarkUndone flips the undone flag of the run with the given id.
func (s *SQLiteStore) MarkUndone(id RunID) error {
	res, err := s.db.Exec(`UPDATE runs SET undone = 1 WHERE run_id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to mark run undone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark run undone: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// ListRuns returns every run with its moves, oldest first.
func (s *SQLiteStore) ListRuns() ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT run_id, timestamp, undone FROM runs ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		if err := s.loadMoves(&runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		id     string
		ts     string
		undone int
	)
	if err := row.Scan(&id, &ts, &undone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	t, err := ParseTimestamp(ts)
	if err != nil {
		return nil, err
	}
	return &RunRecord{RunID: RunID(id), Timestamp: t, Undone: undone != 0}, nil
}

func (s *SQLiteStore) loadMoves(run *RunRecord) error {
	rows, err := s.db.Query(`SELECT from_path, to_path FROM moves WHERE run_id = ? ORDER BY position ASC`, string(run.RunID))
	if err != nil {
		return fmt.Errorf("failed to load moves: %w", err)
	}
	defer rows.Close()

	run.Moves = []MoveRecord{}
	for rows.Next() {
		var m MoveRecord
		if err := rows.Scan(&m.From, &m.To); err != nil {
			return fmt.Errorf("failed to read move: %w", err)
		}
		run.Moves = append(run.Moves, m)
	}
	return rows.Err()
}

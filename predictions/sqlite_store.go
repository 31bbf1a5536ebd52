package predictions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/liamcoop/aquasens/migrations"
	"github.com/liamcoop/aquasens/scoring"
)

// SQLiteStore implements Store on a local SQLite file. JSON columns are
// stored as TEXT and timestamps as unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and applies the embedded schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time keeps busy errors out of concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrations.ApplySQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts r.
func (s *SQLiteStore) Create(ctx context.Context, r *Record) error {
	if err := checkRecord(r); err != nil {
		return err
	}
	input, path, recommendation, err := encodeColumns(r)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, owner_id, input, result, decision_path, recommendation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.OwnerID, input, string(r.Result), path, recommendation, toMillis(r.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// Get retrieves a prediction by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	var (
		r                           Record
		result                      string
		createdAt                   int64
		input, path, recommendation string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, input, result, decision_path, recommendation, created_at
		FROM predictions
		WHERE id = ?
	`, id).Scan(&r.ID, &r.OwnerID, &input, &result, &path, &recommendation, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prediction: %w", err)
	}

	r.Result = scoring.Level(result)
	r.CreatedAt = fromMillis(createdAt)
	if err := decodeColumns(&r, []byte(input), []byte(path), []byte(recommendation)); err != nil {
		return nil, fmt.Errorf("prediction %s: %w", id, err)
	}
	return &r, nil
}

// ListByOwner returns the owner's prediction summaries, newest first.
func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, json_extract(input, '$.Crop_Type'), json_extract(input, '$.Soil_Type'), result
		FROM predictions
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	list := make([]Summary, 0)
	for rows.Next() {
		var (
			sum        Summary
			createdAt  int64
			crop, soil sql.NullString
			result     string
		)
		if err := rows.Scan(&sum.ID, &createdAt, &crop, &soil, &result); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		sum.Date = fromMillis(createdAt)
		sum.Crop = crop.String
		sum.Soil = soil.String
		sum.Result = scoring.Level(result)
		list = append(list, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return list, nil
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
}

package predictions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/liamcoop/aquasens/scoring"
)

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// PostgresStore implements Store backed by PostgreSQL. JSON columns are
// stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed Store. The schema must
// already exist; see the migrations package.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts r in a single statement.
func (s *PostgresStore) Create(ctx context.Context, r *Record) error {
	if err := checkRecord(r); err != nil {
		return err
	}
	input, path, recommendation, err := encodeColumns(r)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, owner_id, input, result, decision_path, recommendation, created_at)
		VALUES ($1, $2, $3::jsonb, $4, $5::jsonb, $6::jsonb, $7)
	`, r.ID, r.OwnerID, input, string(r.Result), path, recommendation, r.CreatedAt.UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// Get retrieves a prediction by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	var (
		r                           Record
		result                      string
		input, path, recommendation []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, input, result, decision_path, recommendation, created_at
		FROM predictions
		WHERE id = $1
	`, id).Scan(&r.ID, &r.OwnerID, &input, &result, &path, &recommendation, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	r.Result = scoring.Level(result)
	r.CreatedAt = r.CreatedAt.UTC()
	if err := decodeColumns(&r, input, path, recommendation); err != nil {
		return nil, fmt.Errorf("prediction %s: %w", id, err)
	}
	return &r, nil
}

// ListByOwner returns the owner's prediction summaries, newest first.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, input->>'Crop_Type', input->>'Soil_Type', result
		FROM predictions
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	list := make([]Summary, 0)
	for rows.Next() {
		var (
			sum        Summary
			crop, soil sql.NullString
			result     string
		)
		if err := rows.Scan(&sum.ID, &sum.Date, &crop, &soil, &result); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		sum.Date = sum.Date.UTC()
		sum.Crop = crop.String
		sum.Soil = soil.String
		sum.Result = scoring.Level(result)
		list = append(list, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}
	return list, nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

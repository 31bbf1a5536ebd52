package predictions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/liamcoop/aquasens/scoring"
)

// Store persists prediction records. Implementations must make Create
// atomic: a record is either fully stored or not at all.
type Store interface {
	// Create stores a new record. It returns ErrDuplicateID if the id exists.
	Create(ctx context.Context, r *Record) error

	// Get returns the record with id or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// ListByOwner returns the owner's records newest first. Records
	// created in the same instant are ordered by id, descending.
	ListByOwner(ctx context.Context, ownerID string) ([]Summary, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// InMemoryStore implements Store using an in-memory map. Records are copied
// in and out so callers cannot mutate stored state.
type InMemoryStore struct {
	records map[string]*Record
	mu      sync.RWMutex
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*Record),
	}
}

// Create stores a copy of r.
func (s *InMemoryStore) Create(ctx context.Context, r *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkRecord(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
	}
	s.records[r.ID] = copyRecord(r)
	return nil
}

// Get returns a copy of the record with id.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.records[id]
	if !exists {
		return nil, ErrNotFound
	}
	return copyRecord(r), nil
}

// ListByOwner returns summaries of the owner's records, newest first.
func (s *InMemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]Summary, 0)
	for _, r := range s.records {
		if r.OwnerID == ownerID {
			out = append(out, Summarize(r))
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

// Ping always succeeds.
func (s *InMemoryStore) Ping(context.Context) error {
	return nil
}

func sortNewestFirst(list []Summary) {
	slices.SortFunc(list, func(a, b Summary) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}

func checkRecord(r *Record) error {
	switch {
	case r == nil:
		return fmt.Errorf("record is required")
	case strings.TrimSpace(r.ID) == "":
		return fmt.Errorf("record id is required")
	case strings.TrimSpace(r.OwnerID) == "":
		return ErrOwnerRequired
	case r.CreatedAt.IsZero():
		return fmt.Errorf("record created_at is required")
	}
	return nil
}

func copyRecord(r *Record) *Record {
	c := *r
	c.DecisionPath = slices.Clone(r.DecisionPath)
	c.Recommendation.Advice = slices.Clone(r.Recommendation.Advice)
	c.Input = r.Input.Clone()
	return &c
}

// Stored documents are decoded strictly: a field this version does not know
// about means the row was not written by it.

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON document")
	}
	return nil
}

// encodeColumns renders the JSON columns of r. Nil slices are stored as
// empty arrays.
func encodeColumns(r *Record) (input, path, recommendation string, err error) {
	if input, err = encodeJSON(r.Input); err != nil {
		return "", "", "", fmt.Errorf("encode input: %w", err)
	}
	decisionPath := r.DecisionPath
	if decisionPath == nil {
		decisionPath = []scoring.TraceEntry{}
	}
	if path, err = encodeJSON(decisionPath); err != nil {
		return "", "", "", fmt.Errorf("encode decision_path: %w", err)
	}
	rec := r.Recommendation
	if rec.Advice == nil {
		rec.Advice = []string{}
	}
	if recommendation, err = encodeJSON(rec); err != nil {
		return "", "", "", fmt.Errorf("encode recommendation: %w", err)
	}
	return input, path, recommendation, nil
}

// decodeColumns rebuilds the JSON columns of a stored row.
func decodeColumns(r *Record, input, path, recommendation []byte) error {
	if err := decodeStrict(input, &r.Input); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	if err := decodeStrict(path, &r.DecisionPath); err != nil {
		return fmt.Errorf("decode decision_path: %w", err)
	}
	if err := decodeStrict(recommendation, &r.Recommendation); err != nil {
		return fmt.Errorf("decode recommendation: %w", err)
	}
	if r.DecisionPath == nil {
		r.DecisionPath = []scoring.TraceEntry{}
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

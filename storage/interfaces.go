package storage

import (
	"context"

	"github.com/ragware/ragloop/core"
)

// Record is a stored document with its embedding vector and metadata.
// Metadata values are strings so records can be filtered without knowing
// their payload shape.
type Record struct {
	Id       string
	Document string
	Vector   []float32
	Metadata map[string]string
}

// Match pairs a record with its similarity score from a vector query.
type Match struct {
	Record *Record
	Score  float32
}

// Collection provides vector storage and similarity search over a named
// set of records. Implementations must be thread-safe and support
// concurrent access.
type Collection interface {
	// Add stores one or more records. Records with an existing Id are
	// overwritten (upsert semantics).
	Add(ctx context.Context, records ...*Record) error

	// Query finds records similar to the given vector.
	// Records must match every key/value pair in where (nil matches all).
	// Results are ordered by similarity score (highest first), up to limit.
	Query(ctx context.Context, vector []float32, limit int, where map[string]string) ([]*Match, error)

	// Get retrieves all records matching every key/value pair in where.
	// A nil where returns every record in the collection.
	Get(ctx context.Context, where map[string]string) ([]*Record, error)

	// GetByID retrieves a single record by its Id.
	// Returns ErrNotFound if the record doesn't exist.
	GetByID(ctx context.Context, id string) (*Record, error)

	// Modify applies fn to the stored record with the given Id and writes
	// the result back, all within one transaction.
	// Returns ErrNotFound if the record doesn't exist.
	Modify(ctx context.Context, id string, fn func(r *Record) error) error

	// Delete removes records by their Ids. Missing Ids are ignored.
	Delete(ctx context.Context, ids ...string) error

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the collection.
	Close() error
}

// SessionRepository stores reasoning session logs and supports lexical
// lookup of past sessions for replay.
type SessionRepository interface {
	// Save stores a session log. Saving an existing Id overwrites it, so
	// callers can persist the log after every step.
	Save(ctx context.Context, log *core.SessionLog) error

	// Get retrieves a session log by its Id.
	// Returns ErrNotFound if the session doesn't exist.
	Get(ctx context.Context, id string) (*core.SessionLog, error)

	// FindSimilar finds successful sessions whose query shares words with
	// the given query, ordered by overlap (highest first), up to limit.
	FindSimilar(ctx context.Context, query string, limit int) ([]*core.SessionLog, error)

	// Close releases resources held by the repository.
	Close() error
}

package vectorstores

import "context"

// Record is a vector plus its metadata payload. An empty ID lets the backing
// engine generate one; inserting an existing ID overwrites the stored record.
type Record struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// SearchResult is a record as returned by a query. Score is nil when the
// record was fetched by direct lookup rather than similarity search.
type SearchResult struct {
	ID      string
	Score   *float64
	Payload map[string]any
}

type DistanceMetric string

const (
	DistanceCosine     DistanceMetric = "cosine"
	DistanceL2         DistanceMetric = "l2"
	DistanceDotProduct DistanceMetric = "dot_product"
)

// Store is a typed facade over a remote vector index. Every operation is a
// single synchronous round trip; no retries are attempted here.
type Store interface {
	// Provision creates the index with the given dimensionality and metric.
	// It is idempotent: an already existing index is left untouched.
	Provision(ctx context.Context, dimensions int, metric DistanceMetric) error

	// InsertBatch writes all records in one bulk round trip. Any per-record
	// failure fails the whole call with a BulkWriteError naming each
	// offending id.
	InsertBatch(ctx context.Context, records []Record) error

	// Search runs a k-nearest-neighbor query. Filters are exact-match
	// payload constraints combined with logical AND. An empty result set
	// is not an error.
	Search(ctx context.Context, vector []float32, limit int, filters map[string]any) ([]SearchResult, error)

	Get(ctx context.Context, id string) (*SearchResult, error)

	// Update overwrites only the supplied fields; a nil vector or payload
	// leaves the stored value unchanged.
	Update(ctx context.Context, id string, vector []float32, payload map[string]any) error

	// Delete removes a record. Deleting an unknown id fails with ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List enumerates records with match-all semantics, optionally filtered
	// and capped. limit <= 0 leaves the engine's default page size in effect.
	List(ctx context.Context, filters map[string]any, limit int) ([]SearchResult, error)

	DeleteIndex(ctx context.Context) error
	IndexInfo(ctx context.Context) (map[string]any, error)
	ListIndices(ctx context.Context) ([]string, error)
}

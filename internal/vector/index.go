// Package vector implements the best-effort semantic index over task
// embeddings: a flat brute-force cosine index persisted next to the
// snapshot store. Every caller treats its errors as recoverable; a
// failed upsert or search never affects the task operation behind it.
package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"taskpilot/internal/capability"
)

// Index is a flat cosine-similarity index keyed by task id. Vectors are
// stored as JSON blobs in the shared database; a roaring bitmap of known
// ids avoids touching the database for deletes and re-upserts of absent
// ids.
type Index struct {
	db   *sql.DB
	dims int

	mu     sync.Mutex
	ids    *roaring64.Bitmap
	logger zerolog.Logger
}

// NewIndex opens the index over db, loading the set of already indexed
// task ids. dims is the expected embedding dimension; vectors of any
// other length are rejected at upsert and skipped at search.
func NewIndex(db *sql.DB, dims int, logger zerolog.Logger) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("vector: dimension must be positive, got %d", dims)
	}
	idx := &Index{db: db, dims: dims, ids: roaring64.New(), logger: logger}

	rows, err := db.Query(`SELECT task_id FROM task_vectors`)
	if err != nil {
		return nil, fmt.Errorf("vector: failed to load index ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("vector: failed to scan id: %w", err)
		}
		idx.ids.Add(uint64(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector: error iterating ids: %w", err)
	}

	logger.Debug().Uint64("indexed", idx.ids.GetCardinality()).Msg("vector index loaded")
	return idx, nil
}

// Len returns the number of indexed vectors.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return int(x.ids.GetCardinality())
}

// Has reports whether a vector is indexed for id.
func (x *Index) Has(id int64) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ids.Contains(uint64(id))
}

// Upsert stores or replaces the vector for a task.
func (x *Index) Upsert(ctx context.Context, id int64, vector []float32, metadata map[string]string) error {
	if len(vector) != x.dims {
		return fmt.Errorf("vector: dimension mismatch: expected %d, got %d", x.dims, len(vector))
	}
	blob, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("vector: failed to encode vector: %w", err)
	}
	var meta []byte
	if metadata != nil {
		if meta, err = json.Marshal(metadata); err != nil {
			return fmt.Errorf("vector: failed to encode metadata: %w", err)
		}
	}

	_, err = x.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO task_vectors (task_id, embedding, metadata) VALUES (?, ?, ?)`,
		id, blob, meta)
	if err != nil {
		return fmt.Errorf("vector: failed to upsert: %w", err)
	}

	x.mu.Lock()
	x.ids.Add(uint64(id))
	x.mu.Unlock()
	return nil
}

// Delete removes the vector for a task. Deleting an unindexed id is a
// no-op.
func (x *Index) Delete(ctx context.Context, id int64) error {
	x.mu.Lock()
	known := x.ids.Contains(uint64(id))
	x.mu.Unlock()
	if !known {
		return nil
	}

	if _, err := x.db.ExecContext(ctx, `DELETE FROM task_vectors WHERE task_id = ?`, id); err != nil {
		return fmt.Errorf("vector: failed to delete: %w", err)
	}

	x.mu.Lock()
	x.ids.Remove(uint64(id))
	x.mu.Unlock()
	return nil
}

// Search returns the k nearest indexed vectors by cosine similarity,
// highest score first. Stored vectors that fail to decode or carry the
// wrong dimension are skipped, not fatal.
func (x *Index) Search(ctx context.Context, vector []float32, k int) ([]capability.Match, error) {
	if len(vector) != x.dims {
		return nil, fmt.Errorf("vector: query dimension mismatch: expected %d, got %d", x.dims, len(vector))
	}
	if k <= 0 {
		return nil, nil
	}
	query := widen(vector)
	queryNorm := floats.Norm(query, 2)
	if queryNorm == 0 {
		return nil, nil
	}

	rows, err := x.db.QueryContext(ctx, `SELECT task_id, embedding, metadata FROM task_vectors`)
	if err != nil {
		return nil, fmt.Errorf("vector: failed to fetch vectors: %w", err)
	}
	defer rows.Close()

	var matches []capability.Match
	for rows.Next() {
		var (
			id       int64
			blob     []byte
			metaBlob []byte
		)
		if err := rows.Scan(&id, &blob, &metaBlob); err != nil {
			return nil, fmt.Errorf("vector: failed to scan row: %w", err)
		}
		var stored []float64
		if err := json.Unmarshal(blob, &stored); err != nil {
			x.logger.Debug().Int64("task_id", id).Msg("skipping undecodable vector")
			continue
		}
		if len(stored) != x.dims {
			continue
		}
		norm := floats.Norm(stored, 2)
		if norm == 0 {
			continue
		}
		var meta map[string]string
		if len(metaBlob) > 0 {
			_ = json.Unmarshal(metaBlob, &meta)
		}
		matches = append(matches, capability.Match{
			ID:       id,
			Score:    floats.Dot(query, stored) / (queryNorm * norm),
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector: error iterating rows: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

var _ capability.VectorIndex = (*Index)(nil)

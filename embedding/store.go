package embedding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/viant/cardindex/engine"
	"github.com/viant/cardindex/vector"
)

// ErrNotFound is returned by Nearest when the query id is not stored.
var ErrNotFound = errors.New("embedding: not found")

// Store persists embeddings per model in SQLite.
type Store struct {
	db *sql.DB
}

// Neighbor is a stored item and its cosine similarity to a query.
type Neighbor struct {
	ID    string
	Score float64
}

// NewStore ensures the schema exists and registers the SQL vector functions.
// Call it before the pool opens its first connection so vec_cosine is
// available on every connection.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("embedding: db is nil")
	}
	if err := engine.RegisterVectorFunctions(db); err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("embedding: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Upsert inserts or replaces the vectors of model in a single transaction.
func (s *Store) Upsert(ctx context.Context, model string, entries map[string][]float32) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO embeddings(model, id, dim, embedding)
VALUES (?, ?, ?, ?)
ON CONFLICT(model, id) DO UPDATE SET
  dim = excluded.dim,
  embedding = excluded.embedding,
  updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		vec := entries[id]
		if len(vec) == 0 {
			return fmt.Errorf("embedding: empty vector for %q", id)
		}
		blob, err := vector.EncodeEmbedding(vec)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, model, id, len(vec), blob); err != nil {
			return fmt.Errorf("embedding: upsert %q: %w", id, err)
		}
	}
	return tx.Commit()
}

// Load returns every stored vector of model keyed by id.
func (s *Store) Load(ctx context.Context, model string) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM embeddings WHERE model = ? ORDER BY id`, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		vec, err := vector.DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("embedding: %q: %w", id, err)
		}
		out[id] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of stored vectors for model.
func (s *Store) Count(ctx context.Context, model string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings WHERE model = ?`, model).Scan(&n)
	return n, err
}

// Nearest ranks the other stored vectors of model by cosine similarity to
// id inside SQLite, best first with ties broken by id.
func (s *Store) Nearest(ctx context.Context, model, id string, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings WHERE model = ? AND id = ?`, model, id).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT e.id, vec_cosine(e.embedding, q.embedding) AS score
FROM embeddings e
JOIN embeddings q ON q.model = e.model AND q.id = ?
WHERE e.model = ? AND e.id <> q.id
ORDER BY score DESC, e.id ASC
LIMIT ?`, id, model, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ID, &n.Score); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

package embedding

import (
	"context"
	"database/sql"
)

const embeddingsSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
    model TEXT NOT NULL,
    id TEXT NOT NULL,
    dim INTEGER NOT NULL,
    embedding BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (model, id)
);
`

// EnsureSchema creates the embeddings table if it does not already exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, embeddingsSchema)
	return err
}

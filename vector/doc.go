// Package vector holds the embedding primitives shared by the store, the
// similarity index and the SQL functions:
//   - BLOB encoding of float32 embeddings for SQLite
//   - dot product, magnitude and cosine similarity
//   - defensive validation and L2 normalization
//   - the degenerate-vector and dimension-mismatch error taxonomy
package vector

// Package embedding collects one L2-normalized vector per image.
//
// Vectors come from an external Embedder and are persisted in SQLite so a
// rerun only embeds images that are new or previously failed. The stored
// vectors are also queryable in SQL through the vec_cosine function.
package embedding

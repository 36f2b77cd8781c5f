// Package engine opens SQLite databases through the pure-Go modernc.org/sqlite
// driver and registers the vector scalar functions used by the embedding
// store. It keeps a thin surface so every package shares one driver instance.
package engine

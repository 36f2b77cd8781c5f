// Package pipeline wires the two index builds together: embeddings into the
// similarity index artifact, and palettes into the master record artifact.
// The two halves share no state and run concurrently.
package pipeline

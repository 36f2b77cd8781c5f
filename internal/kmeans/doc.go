// Package kmeans implements seeded, weighted Lloyd's k-means with restarts.
//
// Used by the palette extractor to cluster pixel colors. Given the same
// points, weights and seed it always returns the same centroids.
package kmeans

// Package palette extracts a dominant-color palette from an image.
//
// Pixels are reduced to a bounded sample, clustered with seeded k-means and
// reported as lowercase #rrggbb swatches whose ratios sum to 100.0. Identical
// images and options always produce identical palettes.
package palette

// Package bruteforce scores every pair of embeddings exactly by cosine
// similarity and selects top-K neighbors with a bounded heap. It is the
// computational kernel behind the similarity index build.
package bruteforce

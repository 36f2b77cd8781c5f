// Package index builds the "similar items" search index: for every item with
// a valid embedding, the ordered list of its top-K most similar items by
// cosine similarity. The build is exact (all pairs) and deterministic; ties
// are broken by identifier in ascending lexical order.
package index

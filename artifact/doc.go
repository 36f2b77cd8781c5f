// Package artifact writes the pipeline outputs as canonical JSON.
//
// Output is UTF-8 with a two-space indent, non-ASCII and HTML characters are
// written as-is and object keys are sorted, so identical inputs produce
// byte-identical files. Files are replaced atomically.
package artifact

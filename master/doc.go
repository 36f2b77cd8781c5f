// Package master loads the master record list and attaches palettes to it.
//
// Records round-trip losslessly: fields this package does not know about are
// kept and written back after the known ones.
package master

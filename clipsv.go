// Package clipsv finds structural-variant breakpoints from soft-clipped reads
// and clusters them into typed SV candidates.
package clipsv

const Version = "0.1.0"

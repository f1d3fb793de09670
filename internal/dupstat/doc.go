// Package dupstat finds duplicate files and accounts for the space they waste.
//
// It walks directory trees using fastwalk for parallel traversal, stages
// files by size, fingerprints the candidates with a 128-bit digest on a
// bounded worker pool, and groups files whose fingerprints collide.
package dupstat

// Package index answers neighbourhood queries over a fixed set of vectors:
// every point within a radius, or the k nearest. Points are addressed by
// their position in the slice passed to Build.
//
// Two implementations exist: a brute-force scan and a cover tree. New picks
// one from a Kind, where KindAuto chooses by collection size and dimension.
package index

// Package tsne implements exact t-distributed stochastic neighbour embedding.
//
// Affinities are computed for every pair of points, so time and memory grow
// with the square of the input size. The optimiser follows the usual
// schedule: early exaggeration with low momentum, then plain gradient
// descent with high momentum and per-dimension adaptive gains.
package tsne

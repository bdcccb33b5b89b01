// Package cluster groups records by density over their stored embeddings
// and writes one cluster row per label. Noise and records whose embedding
// cannot take part end in the noise cluster -1.
package cluster

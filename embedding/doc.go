// Package embedding turns preprocessed text into stored vectors and 3D
// coordinates.
//
// A run first resets everything derived from earlier embeddings, then for
// each record with text computes a semantic vector and a binary sentiment,
// stores the vector with the sentiment bit appended, and finally reduces all
// stored vectors to three dimensions in one batch.
package embedding

// Package hashing is an offline model: a feature-hashing text encoder and a
// word-list sentiment classifier. Both are deterministic, which makes them
// useful without a model server and in tests.
package hashing

// Package vector holds the embedding primitives shared by the pipeline:
//   - float32 BLOB encoding as stored in logs.embedding
//   - text fallback decoding for vectors persisted as "[a, b, c]"
//   - cosine / L2 distances backed by github.com/viant/vec
//   - helpers to build combined embeddings and filter by dimensionality
package vector

// Package store is the record store of the pipeline: a SQLite database with a
// logs table (raw payload plus derived text, embedding, sentiment and 3D
// coordinates) and a clusters table holding the always-present noise cluster
// -1.
//
// A Store owns the connection pool. Every worker opens its own Session, which
// pins one connection for its lifetime; a Session must not be shared between
// goroutines. Multi-statement operations (Clear, ResetForRegeneration,
// ResetClusters, Batch) run inside BEGIN IMMEDIATE transactions and either
// fully apply or roll back.
package store

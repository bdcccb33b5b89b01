// Package engine opens SQLite databases through the pure-Go modernc.org/sqlite
// driver with the pragmas the record store relies on, and registers the
// vec_l2 / vec_cosine scalar functions used for similarity ordering in SQL.
package engine

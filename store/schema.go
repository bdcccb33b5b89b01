package store

import (
	"context"
	"database/sql"
)

const (
	// NoiseClusterID is the reserved cluster for unclustered and noise records.
	NoiseClusterID int64 = -1
	// NoiseClusterName and NoiseClusterColor are the sentinel's fixed attributes.
	NoiseClusterName  = "Noise"
	NoiseClusterColor = "#808080"
)

const schema = `
CREATE TABLE IF NOT EXISTS clusters (
    id    INTEGER PRIMARY KEY AUTOINCREMENT,
    name  TEXT NOT NULL,
    color TEXT NOT NULL
);

INSERT OR IGNORE INTO clusters(id, name, color) VALUES (-1, 'Noise', '#808080');

CREATE TRIGGER IF NOT EXISTS clusters_keep_noise
BEFORE DELETE ON clusters
WHEN OLD.id = -1
BEGIN
    SELECT RAISE(ABORT, 'noise cluster cannot be deleted');
END;

CREATE TABLE IF NOT EXISTS logs (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    cluster_id        INTEGER NOT NULL DEFAULT -1 REFERENCES clusters(id),
    raw_data          TEXT NOT NULL CHECK (json_valid(raw_data) AND json_type(raw_data) = 'object'),
    preprocessed_text TEXT,
    embedding         BLOB,
    sentiment         INTEGER CHECK (sentiment IN (0, 1)),
    tsne_x            REAL,
    tsne_y            REAL,
    tsne_z            REAL,
    CHECK ((tsne_x IS NULL AND tsne_y IS NULL AND tsne_z IS NULL)
        OR (tsne_x IS NOT NULL AND tsne_y IS NOT NULL AND tsne_z IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_logs_cluster_id ON logs(cluster_id);
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// EnsureSchema creates the logs and clusters tables, the noise cluster row
// and its delete guard if they do not already exist. It is idempotent.
func EnsureSchema(ctx context.Context, db execer) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

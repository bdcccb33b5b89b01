package store

import "errors"

// ErrNotFound is returned by point lookups and updates that match no row.
var ErrNotFound = errors.New("store: not found")

// Point3 is a reduced 3D coordinate triple.
type Point3 struct {
	X, Y, Z float64
}

// Record is one row of the logs table. Nullable derived fields are nil until
// the stage producing them has run.
type Record struct {
	ID               int64
	ClusterID        int64
	RawData          string
	PreprocessedText *string
	Embedding        []float32
	Sentiment        *int
	Coords           *Point3
}

// Text returns the preprocessed text or "" when it is null.
func (r *Record) Text() string {
	if r.PreprocessedText == nil {
		return ""
	}
	return *r.PreprocessedText
}

// Cluster is one row of the clusters table.
type Cluster struct {
	ID    int64
	Name  string
	Color string
}

// IsNoise reports whether c is the reserved noise cluster.
func (c Cluster) IsNoise() bool { return c.ID == NoiseClusterID }

// ClusterCount is a cluster with the number of records assigned to it.
type ClusterCount struct {
	Cluster
	Records int
}

// EmbeddingRow is a record id with its embedding column exactly as scanned:
// []byte for BLOBs, string for text-encoded vectors.
type EmbeddingRow struct {
	ID    int64
	Value any
}

// Neighbor is a record ordered by L2 distance to a reference record.
type Neighbor struct {
	ID       int64
	Distance float64
}

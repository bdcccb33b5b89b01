package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/vector"
)

const recordColumns = `id, cluster_id, raw_data, preprocessed_text, embedding, sentiment, tsne_x, tsne_y, tsne_z`

// InsertRecord stores a raw JSON object and returns its new id. Derived
// fields start null and the record is assigned to the noise cluster.
func (s *Session) InsertRecord(ctx context.Context, raw string) (int64, error) {
	res, err := s.exec(ctx, "store.InsertRecord", `INSERT INTO logs(raw_data) VALUES (?)`, raw)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errs.Storage("store.InsertRecord", err)
	}
	return id, nil
}

// Record loads one record by id.
func (s *Session) Record(ctx context.Context, id int64) (*Record, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+recordColumns+` FROM logs WHERE id = ?`, id)
	if err != nil {
		return nil, errs.Storage("store.Record", err)
	}
	out, err := s.scanRecords(rows)
	if err != nil {
		return nil, errs.Storage("store.Record", err)
	}
	if len(out) == 0 {
		return nil, errs.Storage("store.Record", fmt.Errorf("record %d: %w", id, ErrNotFound))
	}
	return &out[0], nil
}

// Records returns every record in id order.
func (s *Session) Records(ctx context.Context) ([]Record, error) {
	return s.queryRecords(ctx, "store.Records", `SELECT `+recordColumns+` FROM logs ORDER BY id`)
}

// RecordsInCluster returns the records assigned to clusterID.
func (s *Session) RecordsInCluster(ctx context.Context, clusterID int64) ([]Record, error) {
	return s.queryRecords(ctx, "store.RecordsInCluster",
		`SELECT `+recordColumns+` FROM logs WHERE cluster_id = ? ORDER BY id`, clusterID)
}

// RecordsWithCoordinates returns records that have all three coordinates.
func (s *Session) RecordsWithCoordinates(ctx context.Context) ([]Record, error) {
	return s.queryRecords(ctx, "store.RecordsWithCoordinates",
		`SELECT `+recordColumns+` FROM logs WHERE tsne_x IS NOT NULL ORDER BY id`)
}

// RecordsWithoutEmbedding returns records whose embedding is null.
func (s *Session) RecordsWithoutEmbedding(ctx context.Context) ([]Record, error) {
	return s.queryRecords(ctx, "store.RecordsWithoutEmbedding",
		`SELECT `+recordColumns+` FROM logs WHERE embedding IS NULL ORDER BY id`)
}

// RecordsWithoutText returns records whose preprocessed text is null.
func (s *Session) RecordsWithoutText(ctx context.Context) ([]Record, error) {
	return s.queryRecords(ctx, "store.RecordsWithoutText",
		`SELECT `+recordColumns+` FROM logs WHERE preprocessed_text IS NULL ORDER BY id`)
}

// Embeddings returns the non-null embedding column of every record without
// decoding it, so callers decide how to treat undecodable values.
func (s *Session) Embeddings(ctx context.Context) ([]EmbeddingRow, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, embedding FROM logs WHERE embedding IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, errs.Storage("store.Embeddings", err)
	}
	defer rows.Close()
	var out []EmbeddingRow
	for rows.Next() {
		var r EmbeddingRow
		if err := rows.Scan(&r.ID, &r.Value); err != nil {
			return nil, errs.Storage("store.Embeddings", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("store.Embeddings", err)
	}
	return out, nil
}

// CountRecords returns the number of stored records.
func (s *Session) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM logs`).Scan(&n); err != nil {
		return 0, errs.Storage("store.CountRecords", err)
	}
	return n, nil
}

// HasEmbeddings reports whether any record carries an embedding.
func (s *Session) HasEmbeddings(ctx context.Context) (bool, error) {
	return s.exists(ctx, "store.HasEmbeddings", `SELECT 1 FROM logs WHERE embedding IS NOT NULL LIMIT 1`)
}

// HasPreprocessedText reports whether any record carries non-empty preprocessed text.
func (s *Session) HasPreprocessedText(ctx context.Context) (bool, error) {
	return s.exists(ctx, "store.HasPreprocessedText", `SELECT 1 FROM logs WHERE preprocessed_text IS NOT NULL AND preprocessed_text != '' LIMIT 1`)
}

// UpdatePreprocessedText overwrites the text derived for a record.
func (s *Session) UpdatePreprocessedText(ctx context.Context, id int64, text string) error {
	return s.execOne(ctx, "store.UpdatePreprocessedText",
		`UPDATE logs SET preprocessed_text = ? WHERE id = ?`, text, id)
}

// UpdateEmbedding stores vec as a little-endian float32 BLOB.
func (s *Session) UpdateEmbedding(ctx context.Context, id int64, vec []float32) error {
	blob, err := vector.EncodeEmbedding(vec)
	if err != nil {
		return errs.Storage("store.UpdateEmbedding", err)
	}
	return s.execOne(ctx, "store.UpdateEmbedding", `UPDATE logs SET embedding = ? WHERE id = ?`, blob, id)
}

// UpdateSentiment stores a 0 (negative) or 1 (positive) label.
func (s *Session) UpdateSentiment(ctx context.Context, id int64, sentiment int) error {
	if sentiment != 0 && sentiment != 1 {
		return errs.Storage("store.UpdateSentiment", fmt.Errorf("sentiment %d not in {0,1}", sentiment))
	}
	return s.execOne(ctx, "store.UpdateSentiment", `UPDATE logs SET sentiment = ? WHERE id = ?`, sentiment, id)
}

// UpdateCoordinates stores the reduced 3D position of a record.
func (s *Session) UpdateCoordinates(ctx context.Context, id int64, p Point3) error {
	return s.execOne(ctx, "store.UpdateCoordinates",
		`UPDATE logs SET tsne_x = ?, tsne_y = ?, tsne_z = ? WHERE id = ?`, p.X, p.Y, p.Z, id)
}

// AssignCluster moves a record to clusterID, which must exist.
func (s *Session) AssignCluster(ctx context.Context, recordID, clusterID int64) error {
	return s.execOne(ctx, "store.AssignCluster", `UPDATE logs SET cluster_id = ? WHERE id = ?`, clusterID, recordID)
}

// Nearest returns up to k records closest to id by L2 distance over stored
// embeddings. Records with a different dimension are left out.
func (s *Session) Nearest(ctx context.Context, id int64, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := s.conn.QueryContext(ctx, `
SELECT id, d FROM (
    SELECT id, vec_l2(embedding, (SELECT embedding FROM logs WHERE id = ?)) AS d
    FROM logs
    WHERE id != ? AND embedding IS NOT NULL
) WHERE d IS NOT NULL
ORDER BY d, id
LIMIT ?`, id, id, k)
	if err != nil {
		return nil, errs.Storage("store.Nearest", err)
	}
	defer rows.Close()
	var out []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ID, &n.Distance); err != nil {
			return nil, errs.Storage("store.Nearest", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("store.Nearest", err)
	}
	return out, nil
}

func (s *Session) queryRecords(ctx context.Context, op, query string, args ...any) ([]Record, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Storage(op, err)
	}
	out, err := s.scanRecords(rows)
	if err != nil {
		return nil, errs.Storage(op, err)
	}
	return out, nil
}

func (s *Session) scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			r         Record
			text      sql.NullString
			embedding any
			sentiment sql.NullInt64
			x, y, z   sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.ClusterID, &r.RawData, &text, &embedding, &sentiment, &x, &y, &z); err != nil {
			return nil, err
		}
		if text.Valid {
			t := text.String
			r.PreprocessedText = &t
		}
		if embedding != nil {
			vec, err := vector.Decode(embedding)
			if err != nil {
				s.log.Warn("undecodable embedding", "id", r.ID, "error", err)
			}
			r.Embedding = vec
		}
		if sentiment.Valid {
			v := int(sentiment.Int64)
			r.Sentiment = &v
		}
		if x.Valid && y.Valid && z.Valid {
			r.Coords = &Point3{X: x.Float64, Y: y.Float64, Z: z.Float64}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"errors"
)

const restoreNoise = `INSERT INTO clusters(id, name, color) VALUES (-1, 'Noise', '#808080')
ON CONFLICT(id) DO UPDATE SET name = excluded.name, color = excluded.color`

// Clear deletes every record and every non-sentinel cluster, restores the
// sentinel and restarts id numbering for both tables.
func (s *Session) Clear(ctx context.Context) error {
	const op = "store.Clear"
	err := s.Batch(ctx, func() error {
		for _, stmt := range []string{
			`DELETE FROM logs`,
			`DELETE FROM clusters WHERE id != -1`,
			`DELETE FROM sqlite_sequence WHERE name IN ('logs', 'clusters')`,
			restoreNoise,
		} {
			if _, err := s.exec(ctx, op, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		s.log.Info("database cleared")
	}
	return err
}

// ResetForRegeneration drops the previous embedding generation and everything
// derived from it. Embeddings, sentiment and coordinates are nulled, all
// records move to the sentinel cluster and every other cluster is deleted.
func (s *Session) ResetForRegeneration(ctx context.Context) error {
	const op = "store.ResetForRegeneration"
	return s.Batch(ctx, func() error {
		for _, stmt := range []string{
			`UPDATE logs SET embedding = NULL, sentiment = NULL, tsne_x = NULL, tsne_y = NULL, tsne_z = NULL, cluster_id = -1`,
			`DELETE FROM clusters WHERE id != -1`,
			`DELETE FROM sqlite_sequence WHERE name = 'clusters'`,
			restoreNoise,
		} {
			if _, err := s.exec(ctx, op, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// ResetClusters moves every record to the sentinel cluster and deletes all
// other clusters. Embeddings and coordinates are untouched.
func (s *Session) ResetClusters(ctx context.Context) error {
	const op = "store.ResetClusters"
	return s.Batch(ctx, func() error {
		for _, stmt := range []string{
			`UPDATE logs SET cluster_id = -1 WHERE cluster_id != -1`,
			`DELETE FROM clusters WHERE id != -1`,
			`DELETE FROM sqlite_sequence WHERE name = 'clusters'`,
		} {
			if _, err := s.exec(ctx, op, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteCoordinates nulls the coordinates of every record.
func (s *Session) DeleteCoordinates(ctx context.Context) error {
	_, err := s.exec(ctx, "store.DeleteCoordinates", `UPDATE logs SET tsne_x = NULL, tsne_y = NULL, tsne_z = NULL`)
	return err
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

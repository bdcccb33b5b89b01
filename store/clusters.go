package store

import (
	"context"
	"fmt"

	"github.com/viant/crystalize/errs"
)

// CreateCluster inserts a cluster with a fresh random colour.
func (s *Session) CreateCluster(ctx context.Context, name string) (Cluster, error) {
	color := s.color()
	res, err := s.exec(ctx, "store.CreateCluster", `INSERT INTO clusters(name, color) VALUES (?, ?)`, name, color)
	if err != nil {
		return Cluster{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Cluster{}, errs.Storage("store.CreateCluster", err)
	}
	return Cluster{ID: id, Name: name, Color: color}, nil
}

// Cluster loads one cluster by id.
func (s *Session) Cluster(ctx context.Context, id int64) (Cluster, error) {
	var c Cluster
	err := s.conn.QueryRowContext(ctx, `SELECT id, name, color FROM clusters WHERE id = ?`, id).Scan(&c.ID, &c.Name, &c.Color)
	if err != nil {
		if isNoRows(err) {
			return Cluster{}, errs.Storage("store.Cluster", fmt.Errorf("cluster %d: %w", id, ErrNotFound))
		}
		return Cluster{}, errs.Storage("store.Cluster", err)
	}
	return c, nil
}

// Clusters returns every cluster, the sentinel first.
func (s *Session) Clusters(ctx context.Context) ([]Cluster, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, name, color FROM clusters ORDER BY id`)
	if err != nil {
		return nil, errs.Storage("store.Clusters", err)
	}
	defer rows.Close()
	var out []Cluster
	for rows.Next() {
		var c Cluster
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, errs.Storage("store.Clusters", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("store.Clusters", err)
	}
	return out, nil
}

// ClusterCounts returns every cluster with its number of records, including
// clusters that currently hold none.
func (s *Session) ClusterCounts(ctx context.Context) ([]ClusterCount, error) {
	rows, err := s.conn.QueryContext(ctx, `
SELECT c.id, c.name, c.color, COUNT(l.id)
FROM clusters c
LEFT JOIN logs l ON l.cluster_id = c.id
GROUP BY c.id, c.name, c.color
ORDER BY c.id`)
	if err != nil {
		return nil, errs.Storage("store.ClusterCounts", err)
	}
	defer rows.Close()
	var out []ClusterCount
	for rows.Next() {
		var c ClusterCount
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Records); err != nil {
			return nil, errs.Storage("store.ClusterCounts", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("store.ClusterCounts", err)
	}
	return out, nil
}

// HasClusters reports whether any cluster besides the sentinel exists.
func (s *Session) HasClusters(ctx context.Context) (bool, error) {
	return s.exists(ctx, "store.HasClusters", `SELECT 1 FROM clusters WHERE id != -1 LIMIT 1`)
}

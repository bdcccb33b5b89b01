package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/viant/crystalize/store"
)

// Source is the read side of a store session.
type Source interface {
	ClusterCounts(ctx context.Context) ([]store.ClusterCount, error)
	Clusters(ctx context.Context) ([]store.Cluster, error)
	RecordsWithCoordinates(ctx context.Context) ([]store.Record, error)
	RecordsInCluster(ctx context.Context, clusterID int64) ([]store.Record, error)
	Nearest(ctx context.Context, id int64, k int) ([]store.Neighbor, error)
}

// Node is one cluster in the tree view.
type Node struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Records int    `json:"records"`
}

// Point is one record placed in the 3D scene.
type Point struct {
	ID        int64   `json:"id"`
	ClusterID int64   `json:"clusterId"`
	Color     string  `json:"color"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

// Tree lists every cluster with its record count, the noise cluster first.
func Tree(ctx context.Context, src Source) ([]Node, error) {
	counts, err := src.ClusterCounts(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(counts))
	for _, c := range counts {
		nodes = append(nodes, Node{ID: c.ID, Name: c.Name, Color: c.Color, Records: c.Records})
	}
	return nodes, nil
}

// Points returns every record with coordinates, coloured by its cluster.
func Points(ctx context.Context, src Source) ([]Point, error) {
	clusters, err := src.Clusters(ctx)
	if err != nil {
		return nil, err
	}
	colors := make(map[int64]string, len(clusters))
	for _, c := range clusters {
		colors[c.ID] = c.Color
	}
	records, err := src.RecordsWithCoordinates(ctx)
	if err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(records))
	for _, r := range records {
		if r.Coords == nil {
			continue
		}
		color, ok := colors[r.ClusterID]
		if !ok {
			color = store.NoiseClusterColor
		}
		points = append(points, Point{ID: r.ID, ClusterID: r.ClusterID, Color: color, X: r.Coords.X, Y: r.Coords.Y, Z: r.Coords.Z})
	}
	return points, nil
}

// Entry is a record as listed under its cluster.
type Entry struct {
	ID        int64   `json:"id"`
	Text      string  `json:"text"`
	Sentiment *int    `json:"sentiment,omitempty"`
	Distance  float64 `json:"distance,omitempty"`
}

// Members lists the records of one cluster.
func Members(ctx context.Context, src Source, clusterID int64) ([]Entry, error) {
	records, err := src.RecordsInCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		out = append(out, Entry{ID: r.ID, Text: r.Text(), Sentiment: r.Sentiment})
	}
	return out, nil
}

// Similar returns the k records closest to id in embedding space.
func Similar(ctx context.Context, src Source, id int64, k int) ([]Entry, error) {
	neighbors, err := src.Nearest(ctx, id, k)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, Entry{ID: n.ID, Distance: n.Distance})
	}
	return out, nil
}

// Scene is the document written by Export.
type Scene struct {
	Clusters []Node  `json:"clusters"`
	Points   []Point `json:"points"`
}

// Export writes the tree and the points as one JSON document.
func Export(ctx context.Context, src Source, w io.Writer) (*Scene, error) {
	nodes, err := Tree(ctx, src)
	if err != nil {
		return nil, err
	}
	points, err := Points(ctx, src)
	if err != nil {
		return nil, err
	}
	scene := &Scene{Clusters: nodes, Points: points}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(scene); err != nil {
		return nil, fmt.Errorf("viewer: encode scene: %w", err)
	}
	return scene, nil
}

package tree

import "github.com/viant/vec/search"

// DistanceFunc computes the distance between two points. Pruning relies on
// the triangle inequality, so only true metrics belong here.
type DistanceFunc func(p1, p2 *Point) float32

func EuclideanDistance(p1, p2 *Point) float32 {
	return search.Float32s(p1.Vector).EuclideanDistance(p2.Vector)
}

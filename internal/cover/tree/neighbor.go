package tree

// Neighbor is a point found by a search with its distance to the query.
type Neighbor struct {
	Point    *Point
	Distance float32
}

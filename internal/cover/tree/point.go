package tree

// Point is a vector stored in, or used to query, the tree.
type Point struct {
	index  int32
	Vector []float32
}

// HasValue reports whether the point was inserted into a tree.
func (p *Point) HasValue() bool {
	return p != nil && p.index >= 0
}

// NewPoint returns a query point; it carries no value until inserted.
func NewPoint(vector ...float32) *Point {
	return &Point{index: -1, Vector: vector}
}

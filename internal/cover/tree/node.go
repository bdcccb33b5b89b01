package tree

// Node is one point in the tree with the children it covers.
type Node struct {
	level         int32
	point         *Point
	children      []Node
	radius        float32
	radiusVersion uint64
}

// NewNode constructs a node for point at level.
func NewNode(point *Point, level int32) Node {
	return Node{level: level, point: point}
}

package tree

// The insertion and search scheme follows github.com/viant/gds/tree/cover.

import (
	"math"
	"sync"
)

// Tree is a cover tree over points carrying values of type T. Subtree radii
// are cached per node and recomputed lazily after inserts.
type Tree[T any] struct {
	mu       sync.Mutex
	root     *Node
	base     float32
	distance DistanceFunc
	values   values[T]
	version  uint64
	size     int
}

// NewTree returns an empty Euclidean tree. A base <= 1 falls back to 1.3.
func NewTree[T any](base float32) *Tree[T] {
	if base <= 1 {
		base = 1.3
	}
	return &Tree[T]{base: base, distance: EuclideanDistance}
}

func (t *Tree[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// Insert adds point with value and returns the value's index.
func (t *Tree[T]) Insert(value T, point *Point) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	point.index = t.values.put(value)
	if t.root == nil {
		node := NewNode(point, 0)
		t.root = &node
	} else {
		t.insert(point)
	}
	t.size++
	t.version++
	return point.index
}

// insert keeps every node within base^level of its parent, where level is
// the parent's level.
func (t *Tree[T]) insert(point *Point) {
	if d := t.distance(point, t.root.point); d >= t.cover(t.root.level) {
		level := t.root.level + 1
		for d >= t.cover(level) {
			level++
		}
		grown := NewNode(point, level)
		grown.children = append(grown.children, *t.root)
		t.root = &grown
		return
	}
	node := t.root
	for {
		var next *Node
		for i := range node.children {
			child := &node.children[i]
			if t.distance(point, child.point) < t.cover(child.level) {
				next = child
				break
			}
		}
		if next == nil {
			node.children = append(node.children, NewNode(point, node.level-1))
			return
		}
		node = next
	}
}

func (t *Tree[T]) cover(level int32) float32 {
	return float32(math.Pow(float64(t.base), float64(level)))
}

// Value returns the value stored for point.
func (t *Tree[T]) Value(point *Point) T {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	if point == nil || !point.HasValue() {
		return zero
	}
	return t.values.value(point.index)
}

// WithinRadius returns every point whose distance to query is at most r.
func (t *Tree[T]) WithinRadius(query *Point, r float32) []Neighbor {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root == nil {
		return nil
	}
	var out []Neighbor
	var walk func(n *Node, d float32)
	walk = func(n *Node, d float32) {
		if d <= r {
			out = append(out, Neighbor{Point: n.point, Distance: d})
		}
		for i := range n.children {
			child := &n.children[i]
			cd := t.distance(query, child.point)
			if cd-t.radius(child) > r {
				continue
			}
			walk(child, cd)
		}
	}
	walk(t.root, t.distance(query, t.root.point))
	return out
}

// radius is the largest distance from n to any descendant.
func (t *Tree[T]) radius(n *Node) float32 {
	if n.radiusVersion == t.version {
		return n.radius
	}
	var r float32
	for i := range n.children {
		child := &n.children[i]
		if d := t.distance(n.point, child.point) + t.radius(child); d > r {
			r = d
		}
	}
	n.radius, n.radiusVersion = r, t.version
	return r
}

package xpath

import (
	"github.com/midbel/tally/xml"
)

// NodeSet is an ordered collection of distinct nodes. Nodes are kept in
// insertion order until an ordered view is requested, at which point they
// are arranged in document order through a balanced tree keyed on the
// structural position of each node. Adding after that invalidates the
// ordered view and it is rebuilt on the next request.
type NodeSet struct {
	nodes []xml.Node
	seen  map[xml.Node]struct{}

	tree   *avlNode
	sorted []xml.Node
}

func NewNodeSet(nodes ...xml.Node) *NodeSet {
	set := &NodeSet{
		seen: make(map[xml.Node]struct{}),
	}
	for _, n := range nodes {
		set.Add(n)
	}
	return set
}

func emptySet() *NodeSet {
	return NewNodeSet()
}

func singleton(node xml.Node) *NodeSet {
	return NewNodeSet(node)
}

// Add appends the node unless it is already a member.
func (s *NodeSet) Add(node xml.Node) bool {
	if node == nil {
		return false
	}
	if _, ok := s.seen[node]; ok {
		return false
	}
	s.seen[node] = struct{}{}
	s.nodes = append(s.nodes, node)
	s.tree = nil
	s.sorted = nil
	return true
}

func (s *NodeSet) Merge(other *NodeSet) {
	for _, n := range other.nodes {
		s.Add(n)
	}
}

func (s *NodeSet) Len() int {
	return len(s.nodes)
}

func (s *NodeSet) Empty() bool {
	return len(s.nodes) == 0
}

// Nodes returns the members in document order.
func (s *NodeSet) Nodes() []xml.Node {
	if s.sorted == nil {
		s.build()
	}
	return s.sorted
}

// Unsorted returns the members in insertion order.
func (s *NodeSet) Unsorted() []xml.Node {
	return s.nodes
}

// First returns the first member in document order, nil when empty.
func (s *NodeSet) First() xml.Node {
	all := s.Nodes()
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

func (s *NodeSet) String() string {
	if n := s.First(); n != nil {
		return n.Value()
	}
	return ""
}

func (s *NodeSet) Number() float64 {
	return stringToNumber(s.String())
}

func (s *NodeSet) Bool() bool {
	return len(s.nodes) > 0
}

func (s *NodeSet) build() {
	for _, n := range s.nodes {
		s.tree = s.tree.insert(n)
	}
	s.sorted = make([]xml.Node, 0, len(s.nodes))
	s.tree.walk(func(n xml.Node) {
		s.sorted = append(s.sorted, n)
	})
	s.tree = nil
}

// avlNode is a node of a self-balancing binary tree ordered by document
// position. Members already checked for identity never compare equal here,
// ties go to the right so insertion stays total.
type avlNode struct {
	value  xml.Node
	left   *avlNode
	right  *avlNode
	height int
}

func (a *avlNode) insert(node xml.Node) *avlNode {
	if a == nil {
		return &avlNode{value: node, height: 1}
	}
	if xml.Before(node, a.value) {
		a.left = a.left.insert(node)
	} else {
		a.right = a.right.insert(node)
	}
	return a.balance()
}

func (a *avlNode) walk(fn func(xml.Node)) {
	if a == nil {
		return
	}
	a.left.walk(fn)
	fn(a.value)
	a.right.walk(fn)
}

func (a *avlNode) balance() *avlNode {
	a.reheight()
	switch factor := a.factor(); {
	case factor > 1:
		if a.left.factor() < 0 {
			a.left = a.left.rotateLeft()
		}
		return a.rotateRight()
	case factor < -1:
		if a.right.factor() > 0 {
			a.right = a.right.rotateRight()
		}
		return a.rotateLeft()
	default:
		return a
	}
}

func (a *avlNode) rotateLeft() *avlNode {
	pivot := a.right
	a.right = pivot.left
	pivot.left = a
	a.reheight()
	pivot.reheight()
	return pivot
}

func (a *avlNode) rotateRight() *avlNode {
	pivot := a.left
	a.left = pivot.right
	pivot.right = a
	a.reheight()
	pivot.reheight()
	return pivot
}

func (a *avlNode) factor() int {
	return a.left.getHeight() - a.right.getHeight()
}

func (a *avlNode) reheight() {
	a.height = 1 + max(a.left.getHeight(), a.right.getHeight())
}

func (a *avlNode) getHeight() int {
	if a == nil {
		return 0
	}
	return a.height
}

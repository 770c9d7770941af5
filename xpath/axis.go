package xpath

import (
	"fmt"

	"github.com/midbel/tally/xml"
)

type axisKind int8

const (
	axisChild axisKind = iota
	axisDescendant
	axisDescendantSelf
	axisParent
	axisAncestor
	axisAncestorSelf
	axisFollowing
	axisFollowingSibling
	axisPreceding
	axisPrecedingSibling
	axisAttribute
	axisNamespace
	axisSelf
)

var axisNames = map[string]axisKind{
	"child":              axisChild,
	"descendant":         axisDescendant,
	"descendant-or-self": axisDescendantSelf,
	"parent":             axisParent,
	"ancestor":           axisAncestor,
	"ancestor-or-self":   axisAncestorSelf,
	"following":          axisFollowing,
	"following-sibling":  axisFollowingSibling,
	"preceding":          axisPreceding,
	"preceding-sibling":  axisPrecedingSibling,
	"attribute":          axisAttribute,
	"namespace":          axisNamespace,
	"self":               axisSelf,
}

func axisByName(name string) (axisKind, error) {
	kind, ok := axisNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown axis %s", ErrSyntax, name)
	}
	return kind, nil
}

func (a axisKind) String() string {
	for name, kind := range axisNames {
		if kind == a {
			return name
		}
	}
	return "unknown"
}

// reverse reports whether proximity positions on this axis count away
// from the context node instead of along document order.
func (a axisKind) reverse() bool {
	switch a {
	case axisAncestor, axisAncestorSelf, axisParent, axisPreceding, axisPrecedingSibling:
		return true
	default:
		return false
	}
}

// principal is the node type an unqualified name test selects on this axis.
func (a axisKind) principal() xml.NodeType {
	switch a {
	case axisAttribute:
		return xml.TypeAttribute
	case axisNamespace:
		return xml.TypeNamespace
	default:
		return xml.TypeElement
	}
}

// selectNodes returns the axis members for the given context node in
// document order. Upward and sideways walks never leave the subtree
// below root, which may be a virtual root.
func (a axisKind) selectNodes(node, root xml.Node) []xml.Node {
	switch a {
	case axisSelf:
		return []xml.Node{node}
	case axisChild:
		return xml.ChildNodes(node)
	case axisParent:
		if node == root {
			return nil
		}
		if p := node.Parent(); p != nil {
			return []xml.Node{p}
		}
		return nil
	case axisAttribute:
		return attributesOf(node)
	case axisNamespace:
		return namespacesOf(node)
	case axisDescendant:
		return descendants(node, false)
	case axisDescendantSelf:
		return descendants(node, true)
	case axisAncestor:
		return ancestors(node, root, false)
	case axisAncestorSelf:
		return ancestors(node, root, true)
	case axisFollowingSibling:
		return siblings(node, root, false)
	case axisPrecedingSibling:
		return siblings(node, root, true)
	case axisFollowing:
		return followers(node, root)
	case axisPreceding:
		return preceders(node, root)
	default:
		return nil
	}
}

func attributesOf(node xml.Node) []xml.Node {
	el, ok := node.(*xml.Element)
	if !ok {
		return nil
	}
	attrs := el.Attributes()
	nodes := make([]xml.Node, len(attrs))
	for i := range attrs {
		nodes[i] = attrs[i]
	}
	return nodes
}

func namespacesOf(node xml.Node) []xml.Node {
	el, ok := node.(*xml.Element)
	if !ok {
		return nil
	}
	spaces := el.InScopeNamespaces()
	nodes := make([]xml.Node, len(spaces))
	for i := range spaces {
		nodes[i] = spaces[i]
	}
	return nodes
}

// descendants walks the subtree iteratively, children pushed in reverse
// so nodes pop in document order.
func descendants(node xml.Node, self bool) []xml.Node {
	var list []xml.Node
	if self {
		list = append(list, node)
	}
	stack := reversed(xml.ChildNodes(node))
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		list = append(list, curr)
		stack = append(stack, reversed(xml.ChildNodes(curr))...)
	}
	return list
}

// ancestors returns the chain in document order, the walk ends at root
// and root itself is the outermost ancestor.
func ancestors(node, root xml.Node, self bool) []xml.Node {
	var list []xml.Node
	if node != root {
		for p := node.Parent(); p != nil; p = p.Parent() {
			list = append(list, p)
			if p == root {
				break
			}
		}
	}
	list = reversed(list)
	if self {
		list = append(list, node)
	}
	return list
}

func siblings(node, root xml.Node, before bool) []xml.Node {
	if node.Type() == xml.TypeAttribute || node.Type() == xml.TypeNamespace {
		return nil
	}
	if node == root {
		return nil
	}
	parent := node.Parent()
	if parent == nil {
		return nil
	}
	var (
		all  = xml.ChildNodes(parent)
		list []xml.Node
		seen bool
	)
	for _, c := range all {
		if c == node {
			seen = true
			continue
		}
		if seen != before {
			list = append(list, c)
		}
	}
	return list
}

// followers are the nodes after the context node in document order,
// descendants excluded. The whole tree below root is walked and
// filtered, the axis is rare enough that this does not matter.
func followers(node, root xml.Node) []xml.Node {
	var list []xml.Node
	for _, c := range descendants(root, false) {
		if xml.Before(node, c) && !isAncestor(node, c) {
			list = append(list, c)
		}
	}
	return list
}

// preceders are the nodes before the context node in document order,
// ancestors excluded.
func preceders(node, root xml.Node) []xml.Node {
	var list []xml.Node
	for _, c := range descendants(root, false) {
		if xml.Before(c, node) && !isAncestor(c, node) {
			list = append(list, c)
		}
	}
	return list
}

func isAncestor(anc, node xml.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p == anc {
			return true
		}
	}
	return false
}

func reversed(nodes []xml.Node) []xml.Node {
	if len(nodes) < 2 {
		return nodes
	}
	out := make([]xml.Node, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}

package xml

import (
	"fmt"
	"sort"
	"strings"
)

type NodeType int8

const (
	TypeDocument NodeType = 1 << iota
	TypeElement
	TypeAttribute
	TypeText
	TypeComment
	TypeInstruction
	TypeNamespace
)

func (n NodeType) String() string {
	switch n {
	default:
		return "<>"
	case TypeDocument:
		return "document"
	case TypeElement:
		return "element"
	case TypeAttribute:
		return "attribute"
	case TypeText:
		return "text"
	case TypeComment:
		return "comment"
	case TypeInstruction:
		return "pi"
	case TypeNamespace:
		return "namespace"
	}
}

// Position path steps are banded so that, under the same parent, namespace
// nodes come before attributes and attributes before child nodes.
const (
	bandNamespace = 1 << 24
	bandAttribute = 2 << 24
	bandChild     = 3 << 24
)

type Node interface {
	Type() NodeType
	LocalName() string
	QualifiedName() string
	Value() string
	Parent() Node
	Position() int

	setParent(Node)
	setPosition(int)
	path() []int
}

// Order reports the document order of two nodes: negative when left comes
// first, zero when both are the same node. Nodes from different documents
// compare arbitrarily but consistently.
func Order(left, right Node) int {
	if left == right {
		return 0
	}
	if rootOf(left) != rootOf(right) {
		return 1
	}
	var (
		p1 = left.path()
		p2 = right.path()
	)
	for i := 0; i < len(p1) && i < len(p2); i++ {
		if p1[i] != p2[i] {
			return p1[i] - p2[i]
		}
	}
	return len(p1) - len(p2)
}

func Before(left, right Node) bool {
	return Order(left, right) < 0
}

// Root walks up to the node without a parent, usually the document.
func Root(n Node) Node {
	return rootOf(n)
}

func rootOf(n Node) Node {
	for {
		p := n.Parent()
		if p == nil {
			return n
		}
		n = p
	}
}

type QName struct {
	Uri   string
	Space string
	Name  string
}

func ParseName(name string) (QName, error) {
	var (
		qn QName
		ok bool
	)
	qn.Space, qn.Name, ok = strings.Cut(name, ":")
	if !ok {
		qn.Name, qn.Space = qn.Space, ""
	}
	if ok && qn.Space == "" {
		return qn, fmt.Errorf("invalid namespace")
	}
	return qn, nil
}

func LocalName(name string) QName {
	return QName{Name: name}
}

func QualifiedName(name, space string) QName {
	return QName{Name: name, Space: space}
}

func (q QName) Zero() bool {
	return q.Space == "" && q.Name == ""
}

func (q QName) LocalName() string {
	return q.Name
}

func (q QName) QualifiedName() string {
	if q.Space == "" {
		return q.LocalName()
	}
	return fmt.Sprintf("%s:%s", q.Space, q.Name)
}

type Document struct {
	Version  string
	Encoding string

	Nodes []Node
}

func NewDocument(root Node) *Document {
	doc := EmptyDocument()
	doc.attach(root)
	return doc
}

func EmptyDocument() *Document {
	return &Document{
		Version:  SupportedVersion,
		Encoding: SupportedEncoding,
	}
}

func (d *Document) Root() Node {
	for i := range d.Nodes {
		if d.Nodes[i].Type() == TypeElement {
			return d.Nodes[i]
		}
	}
	return nil
}

func (d *Document) Type() NodeType {
	return TypeDocument
}

func (d *Document) LocalName() string {
	return ""
}

func (d *Document) QualifiedName() string {
	return ""
}

func (d *Document) Value() string {
	root := d.Root()
	if root == nil {
		return ""
	}
	return root.Value()
}

func (d *Document) Parent() Node {
	return nil
}

func (d *Document) Position() int {
	return 0
}

func (d *Document) attach(node Node) {
	node.setParent(d)
	node.setPosition(len(d.Nodes))
	d.Nodes = append(d.Nodes, node)
}

func (d *Document) setParent(_ Node) {}

func (d *Document) setPosition(_ int) {}

func (d *Document) path() []int { return nil }

type Element struct {
	QName
	Attrs []Attribute
	Nodes []Node

	parent   Node
	position int
	ns       []*NS
}

func NewElement(name QName) *Element {
	return &Element{
		QName: name,
	}
}

func (e *Element) Append(node Node) {
	node.setParent(e)
	node.setPosition(len(e.Nodes))
	e.Nodes = append(e.Nodes, node)
}

func (e *Element) SetAttribute(name QName, value string) {
	attr := NewAttribute(name, value)
	attr.parent = e
	attr.position = len(e.Attrs)
	e.Attrs = append(e.Attrs, attr)
}

func (e *Element) GetAttribute(name string) (string, bool) {
	for i := range e.Attrs {
		if e.Attrs[i].QualifiedName() == name {
			return e.Attrs[i].Value(), true
		}
	}
	return "", false
}

// Attributes returns the element attributes without namespace declarations.
func (e *Element) Attributes() []*Attribute {
	var as []*Attribute
	for i := range e.Attrs {
		if e.Attrs[i].declaresNS() {
			continue
		}
		as = append(as, &e.Attrs[i])
	}
	return as
}

// Namespaces returns the declarations carried by the element itself.
func (e *Element) Namespaces() map[string]string {
	ns := make(map[string]string)
	for i := range e.Attrs {
		a := &e.Attrs[i]
		if a.Space == AttrXmlNS {
			ns[a.Name] = a.Datum
		} else if a.Space == "" && a.Name == AttrXmlNS {
			ns[""] = a.Datum
		}
	}
	return ns
}

// InScopeNamespaces materializes the namespace nodes visible from the
// element: its own declarations, inherited ones, and the implicit xml
// prefix. Nodes are cached so their identity is stable across calls.
func (e *Element) InScopeNamespaces() []*NS {
	if e.ns != nil {
		return e.ns
	}
	scope := map[string]string{
		"xml": XmlNamespace,
	}
	var chain []*Element
	for n := Node(e); n != nil; n = n.Parent() {
		if el, ok := n.(*Element); ok {
			chain = append(chain, el)
		}
	}
	// nearest declaration wins
	for i := len(chain) - 1; i >= 0; i-- {
		for prefix, uri := range chain[i].Namespaces() {
			scope[prefix] = uri
		}
	}
	prefixes := make([]string, 0, len(scope))
	for p := range scope {
		if p != "xml" {
			prefixes = append(prefixes, p)
		}
	}
	sort.Strings(prefixes)
	prefixes = append([]string{"xml"}, prefixes...)

	for i, p := range prefixes {
		n := &NS{
			Prefix:   p,
			Uri:      scope[p],
			parent:   e,
			position: i,
		}
		e.ns = append(e.ns, n)
	}
	return e.ns
}

func (e *Element) Root() bool {
	return e.parent == nil
}

func (e *Element) Empty() bool {
	return len(e.Nodes) == 0
}

func (e *Element) Type() NodeType {
	return TypeElement
}

func (e *Element) Value() string {
	var str strings.Builder
	for _, n := range e.Nodes {
		switch n.Type() {
		case TypeText, TypeElement:
			str.WriteString(n.Value())
		}
	}
	return str.String()
}

func (e *Element) Parent() Node {
	return e.parent
}

func (e *Element) Position() int {
	return e.position
}

func (e *Element) setParent(node Node) {
	e.parent = node
}

func (e *Element) setPosition(pos int) {
	e.position = pos
}

func (e *Element) path() []int {
	if e.parent == nil {
		return []int{bandChild | e.position + 1}
	}
	return append(e.parent.path(), bandChild|e.position+1)
}

const AttrXmlNS = "xmlns"

const XmlNamespace = "http://www.w3.org/XML/1998/namespace"

type Attribute struct {
	QName
	Datum string

	parent   Node
	position int
}

func NewAttribute(name QName, value string) Attribute {
	return Attribute{
		QName: name,
		Datum: value,
	}
}

func (a *Attribute) declaresNS() bool {
	return a.Space == AttrXmlNS || (a.Space == "" && a.Name == AttrXmlNS)
}

func (a *Attribute) Type() NodeType {
	return TypeAttribute
}

func (a *Attribute) Value() string {
	return a.Datum
}

func (a *Attribute) Parent() Node {
	return a.parent
}

func (a *Attribute) Position() int {
	return a.position
}

func (a *Attribute) setParent(node Node) {
	a.parent = node
}

func (a *Attribute) setPosition(pos int) {
	a.position = pos
}

func (a *Attribute) path() []int {
	if a.parent == nil {
		return []int{bandAttribute | a.position + 1}
	}
	return append(a.parent.path(), bandAttribute|a.position+1)
}

type NS struct {
	Prefix string
	Uri    string

	parent   Node
	position int
}

func (n *NS) Type() NodeType {
	return TypeNamespace
}

func (n *NS) LocalName() string {
	return n.Prefix
}

func (n *NS) QualifiedName() string {
	return n.Prefix
}

func (n *NS) Value() string {
	return n.Uri
}

func (n *NS) Parent() Node {
	return n.parent
}

func (n *NS) Position() int {
	return n.position
}

func (n *NS) setParent(node Node) {
	n.parent = node
}

func (n *NS) setPosition(pos int) {
	n.position = pos
}

func (n *NS) path() []int {
	if n.parent == nil {
		return []int{bandNamespace | n.position + 1}
	}
	return append(n.parent.path(), bandNamespace|n.position+1)
}

type Text struct {
	Content string

	parent   Node
	position int
}

func NewText(content string) *Text {
	return &Text{
		Content: content,
	}
}

func (t *Text) Type() NodeType {
	return TypeText
}

func (t *Text) LocalName() string {
	return ""
}

func (t *Text) QualifiedName() string {
	return ""
}

func (t *Text) Value() string {
	return t.Content
}

func (t *Text) Parent() Node {
	return t.parent
}

func (t *Text) Position() int {
	return t.position
}

func (t *Text) setParent(node Node) {
	t.parent = node
}

func (t *Text) setPosition(pos int) {
	t.position = pos
}

func (t *Text) path() []int {
	if t.parent == nil {
		return []int{bandChild | t.position + 1}
	}
	return append(t.parent.path(), bandChild|t.position+1)
}

type Comment struct {
	Content string

	parent   Node
	position int
}

func NewComment(content string) *Comment {
	return &Comment{
		Content: content,
	}
}

func (c *Comment) Type() NodeType {
	return TypeComment
}

func (c *Comment) LocalName() string {
	return ""
}

func (c *Comment) QualifiedName() string {
	return ""
}

func (c *Comment) Value() string {
	return c.Content
}

func (c *Comment) Parent() Node {
	return c.parent
}

func (c *Comment) Position() int {
	return c.position
}

func (c *Comment) setParent(node Node) {
	c.parent = node
}

func (c *Comment) setPosition(pos int) {
	c.position = pos
}

func (c *Comment) path() []int {
	if c.parent == nil {
		return []int{bandChild | c.position + 1}
	}
	return append(c.parent.path(), bandChild|c.position+1)
}

type Instruction struct {
	Name  string
	Attrs []Attribute

	parent   Node
	position int
}

func NewInstruction(name string) *Instruction {
	return &Instruction{
		Name: name,
	}
}

func (i *Instruction) Type() NodeType {
	return TypeInstruction
}

func (i *Instruction) LocalName() string {
	return i.Name
}

func (i *Instruction) QualifiedName() string {
	return i.Name
}

func (i *Instruction) Value() string {
	var list []string
	for j := range i.Attrs {
		list = append(list, fmt.Sprintf("%s=%q", i.Attrs[j].QualifiedName(), i.Attrs[j].Value()))
	}
	return strings.Join(list, " ")
}

func (i *Instruction) Parent() Node {
	return i.parent
}

func (i *Instruction) Position() int {
	return i.position
}

func (i *Instruction) setParent(node Node) {
	i.parent = node
}

func (i *Instruction) setPosition(pos int) {
	i.position = pos
}

func (i *Instruction) path() []int {
	if i.parent == nil {
		return []int{bandChild | i.position + 1}
	}
	return append(i.parent.path(), bandChild|i.position+1)
}

// ChildNodes returns the children of a document or element node, nil for
// every other kind.
func ChildNodes(n Node) []Node {
	switch n := n.(type) {
	case *Document:
		return n.Nodes
	case *Element:
		return n.Nodes
	default:
		return nil
	}
}

package xpath

import (
	"fmt"
	"math"
	"strings"

	"github.com/midbel/tally/xml"
)

// Expr is a compiled expression. Evaluation never mutates the receiver so
// a compiled expression can be reused and shared.
type Expr interface {
	fmt.Stringer
	eval(Context) (Value, error)
}

type orExpr struct {
	left  Expr
	right Expr
}

func (e orExpr) String() string {
	return fmt.Sprintf("%s or %s", e.left, e.right)
}

func (e orExpr) eval(ctx Context) (Value, error) {
	left, err := e.left.eval(ctx)
	if err != nil {
		return nil, err
	}
	if left.Bool() {
		return Boolean(true), nil
	}
	right, err := e.right.eval(ctx)
	if err != nil {
		return nil, err
	}
	return Boolean(right.Bool()), nil
}

type andExpr struct {
	left  Expr
	right Expr
}

func (e andExpr) String() string {
	return fmt.Sprintf("%s and %s", e.left, e.right)
}

func (e andExpr) eval(ctx Context) (Value, error) {
	left, err := e.left.eval(ctx)
	if err != nil {
		return nil, err
	}
	if !left.Bool() {
		return Boolean(false), nil
	}
	right, err := e.right.eval(ctx)
	if err != nil {
		return nil, err
	}
	return Boolean(right.Bool()), nil
}

type compareExpr struct {
	op    rune
	left  Expr
	right Expr
}

func (e compareExpr) String() string {
	return fmt.Sprintf("%s %s %s", e.left, opString(e.op), e.right)
}

func (e compareExpr) eval(ctx Context) (Value, error) {
	left, err := e.left.eval(ctx)
	if err != nil {
		return nil, err
	}
	right, err := e.right.eval(ctx)
	if err != nil {
		return nil, err
	}
	return compare(e.op, left, right)
}

type arithmeticExpr struct {
	op    rune
	left  Expr
	right Expr
}

func (e arithmeticExpr) String() string {
	return fmt.Sprintf("%s %s %s", e.left, opString(e.op), e.right)
}

func (e arithmeticExpr) eval(ctx Context) (Value, error) {
	left, err := e.left.eval(ctx)
	if err != nil {
		return nil, err
	}
	right, err := e.right.eval(ctx)
	if err != nil {
		return nil, err
	}
	x, y := left.Number(), right.Number()
	switch e.op {
	case opAdd:
		return Number(x + y), nil
	case opSub:
		return Number(x - y), nil
	case opMul:
		return Number(x * y), nil
	case opDiv:
		return Number(x / y), nil
	case opMod:
		return Number(math.Mod(x, y)), nil
	default:
		return nil, fmt.Errorf("%w: unsupported operator", ErrSyntax)
	}
}

type negateExpr struct {
	expr Expr
}

func (e negateExpr) String() string {
	return fmt.Sprintf("-%s", e.expr)
}

func (e negateExpr) eval(ctx Context) (Value, error) {
	v, err := e.expr.eval(ctx)
	if err != nil {
		return nil, err
	}
	return Number(-v.Number()), nil
}

type unionExpr struct {
	left  Expr
	right Expr
}

func (e unionExpr) String() string {
	return fmt.Sprintf("%s | %s", e.left, e.right)
}

func (e unionExpr) eval(ctx Context) (Value, error) {
	left, err := evalNodes(e.left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := evalNodes(e.right, ctx)
	if err != nil {
		return nil, err
	}
	left.Merge(right)
	return left, nil
}

func evalNodes(expr Expr, ctx Context) (*NodeSet, error) {
	v, err := expr.eval(ctx)
	if err != nil {
		return nil, err
	}
	set, ok := v.(*NodeSet)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a node-set", ErrType, expr)
	}
	return set, nil
}

type numberLit struct {
	value float64
}

func (e numberLit) String() string {
	return formatNumber(e.value)
}

func (e numberLit) eval(Context) (Value, error) {
	return Number(e.value), nil
}

type stringLit struct {
	value string
}

func (e stringLit) String() string {
	if strings.ContainsRune(e.value, apos) {
		return fmt.Sprintf("%q", e.value)
	}
	return fmt.Sprintf("'%s'", e.value)
}

func (e stringLit) eval(Context) (Value, error) {
	return String(e.value), nil
}

type variableRef struct {
	name string
}

func (e variableRef) String() string {
	return "$" + e.name
}

func (e variableRef) eval(ctx Context) (Value, error) {
	return ctx.resolveVariable(e.name)
}

type callExpr struct {
	space string
	name  string
	args  []Expr
}

func (e callExpr) String() string {
	var str strings.Builder
	if e.space != "" {
		str.WriteString(e.space)
		str.WriteRune(colon)
	}
	str.WriteString(e.name)
	str.WriteRune(lparen)
	for i, a := range e.args {
		if i > 0 {
			str.WriteString(", ")
		}
		str.WriteString(a.String())
	}
	str.WriteRune(rparen)
	return str.String()
}

func (e callExpr) eval(ctx Context) (Value, error) {
	fn, err := ctx.resolveFunction(e.space, e.name)
	if err != nil {
		return nil, err
	}
	return fn(ctx, e.args)
}

// pathExpr is a filter expression with optional predicates and an optional
// trailing relative path: primary[pred].../rest. The bare location path is
// the common case and is represented with a nil filter.
type pathExpr struct {
	filter Expr
	preds  []Expr
	path   *locationPath
}

func (e pathExpr) String() string {
	var str strings.Builder
	str.WriteString(e.filter.String())
	for _, p := range e.preds {
		fmt.Fprintf(&str, "[%s]", p)
	}
	if e.path != nil {
		str.WriteRune(slash)
		str.WriteString(e.path.String())
	}
	return str.String()
}

func (e pathExpr) eval(ctx Context) (Value, error) {
	v, err := e.filter.eval(ctx)
	if err != nil {
		return nil, err
	}
	if len(e.preds) == 0 && e.path == nil {
		return v, nil
	}
	set, ok := v.(*NodeSet)
	if !ok {
		return nil, fmt.Errorf("%w: filter of a path expression is not a node-set", ErrType)
	}
	nodes := set.Nodes()
	for _, p := range e.preds {
		nodes, err = applyPredicate(ctx, p, nodes, false)
		if err != nil {
			return nil, err
		}
	}
	if e.path == nil {
		return NewNodeSet(nodes...), nil
	}
	return e.path.evalNodes(ctx, nodes)
}

type locationPath struct {
	absolute bool
	steps    []step
}

func (e *locationPath) String() string {
	var str strings.Builder
	if e.absolute {
		str.WriteRune(slash)
	}
	for i, s := range e.steps {
		if i > 0 {
			str.WriteRune(slash)
		}
		str.WriteString(s.String())
	}
	return str.String()
}

func (e *locationPath) eval(ctx Context) (Value, error) {
	start := ctx.Node
	if e.absolute {
		start = ctx.root()
	}
	return e.evalNodes(ctx, []xml.Node{start})
}

func (e *locationPath) evalNodes(ctx Context, nodes []xml.Node) (Value, error) {
	curr := nodes
	for _, s := range e.steps {
		var err error
		curr, err = s.eval(ctx, curr)
		if err != nil {
			return nil, err
		}
	}
	return NewNodeSet(curr...), nil
}

func (c Context) root() xml.Node {
	if c.Root != nil {
		return c.Root
	}
	return xml.Root(c.Node)
}

type step struct {
	axis  axisKind
	test  nodeTest
	preds []Expr
}

func (s step) String() string {
	var str strings.Builder
	str.WriteString(s.axis.String())
	str.WriteString("::")
	str.WriteString(s.test.String())
	for _, p := range s.preds {
		fmt.Fprintf(&str, "[%s]", p)
	}
	return str.String()
}

func (s step) eval(ctx Context, nodes []xml.Node) ([]xml.Node, error) {
	set := NewNodeSet()
	for _, n := range nodes {
		selected, err := s.selectFrom(ctx, n)
		if err != nil {
			return nil, err
		}
		for _, sn := range selected {
			set.Add(sn)
		}
	}
	return set.Nodes(), nil
}

func (s step) selectFrom(ctx Context, node xml.Node) ([]xml.Node, error) {
	candidates := s.axis.selectNodes(node, ctx.root())
	matched := candidates[:0:0]
	principal := s.axis.principal()
	for _, c := range candidates {
		ok, err := s.test.matches(ctx, c, principal)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, c)
		}
	}
	var err error
	for _, p := range s.preds {
		matched, err = applyPredicate(ctx, p, matched, s.axis.reverse())
		if err != nil {
			return nil, err
		}
	}
	return matched, nil
}

// applyPredicate keeps the nodes for which the predicate holds. Nodes
// arrive in document order, proximity positions count backwards on a
// reverse axis. A numeric predicate value is a position test.
func applyPredicate(ctx Context, pred Expr, nodes []xml.Node, reverse bool) ([]xml.Node, error) {
	size := len(nodes)
	kept := nodes[:0:0]
	for i, n := range nodes {
		index := i + 1
		if reverse {
			index = size - i
		}
		v, err := pred.eval(ctx.Sub(n, index, size))
		if err != nil {
			return nil, err
		}
		var keep bool
		if num, ok := v.(Number); ok {
			keep = float64(num) == float64(index)
		} else {
			keep = v.Bool()
		}
		if keep {
			kept = append(kept, n)
		}
	}
	return kept, nil
}

type nodeTest interface {
	fmt.Stringer
	matches(Context, xml.Node, xml.NodeType) (bool, error)
}

// nameTest matches nodes of the principal type by name. The space field
// holds the prefix as written, resolution to a URI happens at match time
// through the scope. A star in either part is a wildcard.
type nameTest struct {
	space string
	name  string
}

func (t nameTest) String() string {
	if t.space != "" {
		return t.space + ":" + t.name
	}
	return t.name
}

func (t nameTest) matches(ctx Context, node xml.Node, principal xml.NodeType) (bool, error) {
	if node.Type() != principal {
		return false, nil
	}
	if t.space == "" && t.name == "*" {
		return true, nil
	}
	if t.name != "*" && !t.matchName(ctx, node.LocalName()) {
		return false, nil
	}
	return t.matchSpace(ctx, node)
}

func (t nameTest) matchName(ctx Context, name string) bool {
	if ctx.HTML {
		return strings.EqualFold(t.name, name)
	}
	return t.name == name
}

// matchSpace compares the resolved test namespace against the node. An
// unbound prefix is a fatal evaluation error, not an empty match.
func (t nameTest) matchSpace(ctx Context, node xml.Node) (bool, error) {
	uri := nodeUri(node)
	if t.space == "" {
		if ctx.AnyNamespace {
			return true, nil
		}
		return uri == "", nil
	}
	if t.space == "*" {
		return true, nil
	}
	want, err := ctx.resolveNS(t.space)
	if err != nil {
		return false, err
	}
	return uri == want, nil
}

func nodeUri(node xml.Node) string {
	switch n := node.(type) {
	case *xml.Element:
		return n.Uri
	case *xml.Attribute:
		return n.Uri
	default:
		return ""
	}
}

// kindTest matches nodes by kind: node(), text() and comment(). A zero
// kind means node() and matches everything.
type kindTest struct {
	kind xml.NodeType
}

func (t kindTest) String() string {
	switch t.kind {
	case xml.TypeText:
		return "text()"
	case xml.TypeComment:
		return "comment()"
	default:
		return "node()"
	}
}

func (t kindTest) matches(_ Context, node xml.Node, _ xml.NodeType) (bool, error) {
	if t.kind == 0 {
		return true, nil
	}
	return node.Type() == t.kind, nil
}

// piTest matches processing instructions, optionally a specific target.
type piTest struct {
	target string
}

func (t piTest) String() string {
	if t.target == "" {
		return "processing-instruction()"
	}
	return fmt.Sprintf("processing-instruction('%s')", t.target)
}

func (t piTest) matches(_ Context, node xml.Node, _ xml.NodeType) (bool, error) {
	if node.Type() != xml.TypeInstruction {
		return false, nil
	}
	return t.target == "" || node.LocalName() == t.target, nil
}

func opString(op rune) string {
	switch op {
	case opAdd:
		return "+"
	case opSub:
		return "-"
	case opMul:
		return "*"
	case opDiv:
		return kwDiv
	case opMod:
		return kwMod
	case opEq:
		return "="
	case opNe:
		return "!="
	case opLt:
		return "<"
	case opLe:
		return "<="
	case opGt:
		return ">"
	case opGe:
		return ">="
	default:
		return "?"
	}
}

package xpath

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/midbel/tally/xml"
)

const (
	powLowest = iota
	powOr
	powAnd
	powEqual
	powCompare
	powAdd
	powMul
	powUnion
	powStep
	powPred
)

var bindings = map[rune]int{
	opOr:      powOr,
	opAnd:     powAnd,
	opEq:      powEqual,
	opNe:      powEqual,
	opLt:      powCompare,
	opLe:      powCompare,
	opGt:      powCompare,
	opGe:      powCompare,
	opAdd:     powAdd,
	opSub:     powAdd,
	opMul:     powMul,
	opDiv:     powMul,
	opMod:     powMul,
	opUnion:   powUnion,
	currLevel: powStep,
	anyLevel:  powStep,
	begPred:   powPred,
}

type compiler struct {
	scan *Scanner
	curr Token
	peek Token

	prefix map[rune]func() (Expr, error)
	infix  map[rune]func(Expr) (Expr, error)
}

func newCompiler(r io.Reader) *compiler {
	cp := compiler{
		scan: Scan(r),
	}
	cp.prefix = map[rune]func() (Expr, error){
		Digit:      cp.parseNumber,
		Literal:    cp.parseLiteral,
		variable:   cp.parseVariable,
		begGrp:     cp.parseGroup,
		opSub:      cp.parseNegate,
		Name:       cp.parseName,
		Namespace:  cp.parseName,
		attrNode:   cp.parseRelativePath,
		currNode:   cp.parseRelativePath,
		parentNode: cp.parseRelativePath,
		currLevel:  cp.parseAbsolutePath,
		anyLevel:   cp.parseAbsolutePath,
	}
	cp.infix = map[rune]func(Expr) (Expr, error){
		opOr:      cp.parseBinary,
		opAnd:     cp.parseBinary,
		opEq:      cp.parseBinary,
		opNe:      cp.parseBinary,
		opLt:      cp.parseBinary,
		opLe:      cp.parseBinary,
		opGt:      cp.parseBinary,
		opGe:      cp.parseBinary,
		opAdd:     cp.parseBinary,
		opSub:     cp.parseBinary,
		opMul:     cp.parseBinary,
		opDiv:     cp.parseBinary,
		opMod:     cp.parseBinary,
		opUnion:   cp.parseBinary,
		currLevel: cp.parseFilterPath,
		anyLevel:  cp.parseFilterPath,
		begPred:   cp.parseFilterPred,
	}
	cp.next()
	cp.next()
	return &cp
}

func compile(r io.Reader) (Expr, error) {
	cp := newCompiler(r)
	expr, err := cp.parse(powLowest)
	if err != nil {
		return nil, err
	}
	if !cp.done() {
		return nil, cp.unexpected()
	}
	return expr, nil
}

func (c *compiler) parse(pow int) (Expr, error) {
	fn, ok := c.prefix[c.curr.Type]
	if !ok {
		return nil, c.unexpected()
	}
	left, err := fn()
	if err != nil {
		return nil, err
	}
	for !c.done() && pow < bindings[c.curr.Type] {
		fn, ok := c.infix[c.curr.Type]
		if !ok {
			return nil, c.unexpected()
		}
		left, err = fn(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (c *compiler) parseNumber() (Expr, error) {
	f, err := strconv.ParseFloat(c.curr.Literal, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed number %s", ErrSyntax, c.curr.Literal)
	}
	c.next()
	return numberLit{value: f}, nil
}

func (c *compiler) parseLiteral() (Expr, error) {
	expr := stringLit{
		value: c.curr.Literal,
	}
	c.next()
	return expr, nil
}

func (c *compiler) parseVariable() (Expr, error) {
	expr := variableRef{
		name: c.curr.Literal,
	}
	c.next()
	return expr, nil
}

func (c *compiler) parseGroup() (Expr, error) {
	c.next()
	expr, err := c.parse(powLowest)
	if err != nil {
		return nil, err
	}
	if c.curr.Type != endGrp {
		return nil, c.unexpected()
	}
	c.next()
	return expr, nil
}

func (c *compiler) parseNegate() (Expr, error) {
	c.next()
	expr, err := c.parse(powMul)
	if err != nil {
		return nil, err
	}
	return negateExpr{expr: expr}, nil
}

func (c *compiler) parseBinary(left Expr) (Expr, error) {
	op := c.curr.Type
	c.next()
	right, err := c.parse(bindings[op])
	if err != nil {
		return nil, err
	}
	switch op {
	case opOr:
		return orExpr{left: left, right: right}, nil
	case opAnd:
		return andExpr{left: left, right: right}, nil
	case opEq, opNe, opLt, opLe, opGt, opGe:
		return compareExpr{op: op, left: left, right: right}, nil
	case opUnion:
		return unionExpr{left: left, right: right}, nil
	default:
		return arithmeticExpr{op: op, left: left, right: right}, nil
	}
}

// parseName resolves what an identifier starts: a function call when a
// parenthesis follows, a location path otherwise. The kind test keywords
// always start a path even with a parenthesis. For a qualified name the
// prefix is consumed first, the parenthesis after the local part decides.
func (c *compiler) parseName() (Expr, error) {
	if c.curr.Type == Name {
		if c.peek.Type == begGrp && !isKindName(c.curr.Literal) {
			return c.parseCall("")
		}
		return c.parseRelativePath()
	}
	space := c.curr.Literal
	c.next()
	if c.curr.Type != Name {
		return nil, c.unexpected()
	}
	if c.peek.Type == begGrp {
		return c.parseCall(space)
	}
	return c.parsePathFrom(nameTest{space: space, name: c.curr.Literal})
}

func (c *compiler) parseCall(space string) (Expr, error) {
	expr := callExpr{
		space: space,
		name:  c.curr.Literal,
	}
	c.next()
	if c.curr.Type != begGrp {
		return nil, c.unexpected()
	}
	c.next()
	for c.curr.Type != endGrp {
		arg, err := c.parse(powLowest)
		if err != nil {
			return nil, err
		}
		expr.args = append(expr.args, arg)
		if c.curr.Type == endGrp {
			break
		}
		if c.curr.Type != opSeq {
			return nil, c.unexpected()
		}
		c.next()
		if c.curr.Type == endGrp {
			return nil, c.unexpected()
		}
	}
	c.next()
	return expr, nil
}

func (c *compiler) parseAbsolutePath() (Expr, error) {
	path := locationPath{
		absolute: true,
	}
	if c.curr.Type == anyLevel {
		path.steps = append(path.steps, anyStep())
	}
	c.next()
	if !c.startsStep() {
		if len(path.steps) > 0 {
			// trailing // without a step
			return nil, c.unexpected()
		}
		return &path, nil
	}
	steps, err := c.parseSteps()
	if err != nil {
		return nil, err
	}
	path.steps = append(path.steps, steps...)
	return &path, nil
}

func (c *compiler) parseRelativePath() (Expr, error) {
	steps, err := c.parseSteps()
	if err != nil {
		return nil, err
	}
	return &locationPath{steps: steps}, nil
}

func (c *compiler) parseSteps() ([]step, error) {
	var steps []step
	for {
		s, err := c.parseStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
		if c.curr.Type != currLevel && c.curr.Type != anyLevel {
			return steps, nil
		}
		if c.curr.Type == anyLevel {
			steps = append(steps, anyStep())
		}
		c.next()
	}
}

// parsePathFrom builds a relative path whose first step is an already
// consumed qualified name test. The local part is still the current token.
func (c *compiler) parsePathFrom(test nameTest) (Expr, error) {
	c.next()
	first, err := c.parsePredicates(step{test: test})
	if err != nil {
		return nil, err
	}
	steps := []step{first}
	for c.curr.Type == currLevel || c.curr.Type == anyLevel {
		if c.curr.Type == anyLevel {
			steps = append(steps, anyStep())
		}
		c.next()
		rest, err := c.parseSteps()
		if err != nil {
			return nil, err
		}
		steps = append(steps, rest...)
	}
	return &locationPath{steps: steps}, nil
}

func (c *compiler) parseStep() (step, error) {
	var s step
	switch c.curr.Type {
	case currNode:
		c.next()
		s.axis = axisSelf
		s.test = kindTest{}
		return c.parsePredicates(s)
	case parentNode:
		c.next()
		s.axis = axisParent
		s.test = kindTest{}
		return c.parsePredicates(s)
	case attrNode:
		c.next()
		s.axis = axisAttribute
	case Name:
		if c.peek.Type == opAxis {
			kind, err := axisByName(c.curr.Literal)
			if err != nil {
				return s, err
			}
			s.axis = kind
			c.next()
			c.next()
		}
	}
	test, err := c.parseNodeTest()
	if err != nil {
		return s, err
	}
	s.test = test
	return c.parsePredicates(s)
}

func (c *compiler) parseNodeTest() (nodeTest, error) {
	switch c.curr.Type {
	case Namespace:
		test := nameTest{
			space: c.curr.Literal,
		}
		c.next()
		if c.curr.Type != Name {
			return nil, c.unexpected()
		}
		test.name = c.curr.Literal
		c.next()
		return test, nil
	case Name:
		name := c.curr.Literal
		if isKindName(name) && c.peek.Type == begGrp {
			return c.parseKindTest(name)
		}
		c.next()
		return nameTest{name: name}, nil
	default:
		return nil, c.unexpected()
	}
}

func (c *compiler) parseKindTest(name string) (nodeTest, error) {
	c.next()
	c.next()
	var test nodeTest
	switch name {
	case "node":
		test = kindTest{}
	case "text":
		test = kindTest{kind: xml.TypeText}
	case "comment":
		test = kindTest{kind: xml.TypeComment}
	case "processing-instruction":
		pi := piTest{}
		if c.curr.Type == Literal {
			pi.target = c.curr.Literal
			c.next()
		}
		test = pi
	}
	if c.curr.Type != endGrp {
		return nil, c.unexpected()
	}
	c.next()
	return test, nil
}

func (c *compiler) parsePredicates(s step) (step, error) {
	for c.curr.Type == begPred {
		c.next()
		expr, err := c.parse(powLowest)
		if err != nil {
			return s, err
		}
		if c.curr.Type != endPred {
			return s, c.unexpected()
		}
		c.next()
		s.preds = append(s.preds, expr)
	}
	return s, nil
}

// parseFilterPath continues a primary expression with a path: id('a')/b
// or $set//c.
func (c *compiler) parseFilterPath(left Expr) (Expr, error) {
	expr := pathExpr{
		filter: left,
		path:   &locationPath{},
	}
	if pe, ok := left.(pathExpr); ok && pe.path == nil {
		expr = pe
		expr.path = &locationPath{}
	}
	if c.curr.Type == anyLevel {
		expr.path.steps = append(expr.path.steps, anyStep())
	}
	c.next()
	steps, err := c.parseSteps()
	if err != nil {
		return nil, err
	}
	expr.path.steps = append(expr.path.steps, steps...)
	return expr, nil
}

// parseFilterPred attaches a predicate to a primary expression: (//a)[1].
func (c *compiler) parseFilterPred(left Expr) (Expr, error) {
	expr := pathExpr{
		filter: left,
	}
	if pe, ok := left.(pathExpr); ok && pe.path == nil {
		expr = pe
	}
	c.next()
	pred, err := c.parse(powLowest)
	if err != nil {
		return nil, err
	}
	if c.curr.Type != endPred {
		return nil, c.unexpected()
	}
	c.next()
	expr.preds = append(expr.preds, pred)
	return expr, nil
}

func (c *compiler) startsStep() bool {
	switch c.curr.Type {
	case Name, Namespace, attrNode, currNode, parentNode:
		return true
	default:
		return false
	}
}

func anyStep() step {
	return step{
		axis: axisDescendantSelf,
		test: kindTest{},
	}
}

func isKindName(name string) bool {
	switch name {
	case "node", "text", "comment", "processing-instruction":
		return true
	default:
		return false
	}
}

func (c *compiler) next() {
	c.curr = c.peek
	c.peek = c.scan.Scan()
}

func (c *compiler) done() bool {
	return c.curr.Type == EOF
}

func (c *compiler) unexpected() error {
	return fmt.Errorf("%w: unexpected token %s at %d:%d", ErrSyntax,
		c.curr, c.curr.Line, c.curr.Column)
}

func compileString(expr string) (Expr, error) {
	return compile(strings.NewReader(expr))
}

package xpath

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is the result of evaluating an expression. The four concrete kinds
// are String, Number, Boolean and NodeSet, each convertible to the three
// primitive types.
type Value interface {
	fmt.Stringer
	Number() float64
	Bool() bool
}

type String string

func (s String) String() string {
	return string(s)
}

func (s String) Number() float64 {
	return stringToNumber(string(s))
}

func (s String) Bool() bool {
	return len(s) > 0
}

type Number float64

func (n Number) String() string {
	return formatNumber(float64(n))
}

func (n Number) Number() float64 {
	return float64(n)
}

func (n Number) Bool() bool {
	f := float64(n)
	return f != 0 && !math.IsNaN(f)
}

type Boolean bool

func (b Boolean) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (b Boolean) Number() float64 {
	if b {
		return 1
	}
	return 0
}

func (b Boolean) Bool() bool {
	return bool(b)
}

// formatNumber renders a float the XPath way: NaN, Infinity, integers
// without a fractional part and negative zero as plain zero.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

// stringToNumber converts per the number() rules: optional leading minus,
// digits with an optional fraction, surrounding whitespace allowed.
// Anything else gives NaN. Note that strconv accepts more than XPath does
// (hex, exponents, Inf) so the shape is checked first.
func stringToNumber(str string) float64 {
	str = strings.TrimSpace(str)
	rest := strings.TrimPrefix(str, "-")
	if !validNumber(rest) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func validNumber(str string) bool {
	if str == "" {
		return false
	}
	var dots, digits int
	for _, c := range str {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

const (
	cmpEq = opEq
	cmpNe = opNe
	cmpLt = opLt
	cmpLe = opLe
	cmpGt = opGt
	cmpGe = opGe
)

// compare implements the comparison matrix: node-sets compare existentially
// against every operand kind, booleans force boolean comparison, numbers
// force numeric, and the relational operators always go through number().
func compare(op rune, left, right Value) (Value, error) {
	ls, lok := left.(*NodeSet)
	rs, rok := right.(*NodeSet)
	switch {
	case lok && rok:
		return compareSets(op, ls, rs), nil
	case lok:
		return compareSetValue(op, ls, right), nil
	case rok:
		return compareSetValue(swapOp(op), rs, left), nil
	default:
		return comparePrimitive(op, left, right), nil
	}
}

func comparePrimitive(op rune, left, right Value) Boolean {
	switch op {
	case cmpLt, cmpLe, cmpGt, cmpGe:
		return compareNumber(op, left.Number(), right.Number())
	}
	_, lb := left.(Boolean)
	_, rb := right.(Boolean)
	if lb || rb {
		return equality(op, left.Bool() == right.Bool())
	}
	_, ln := left.(Number)
	_, rn := right.(Number)
	if ln || rn {
		return equality(op, numberEq(left.Number(), right.Number()))
	}
	return equality(op, left.String() == right.String())
}

func compareSets(op rune, left, right *NodeSet) Boolean {
	for _, ln := range left.Nodes() {
		for _, rn := range right.Nodes() {
			if compareNode(op, ln.Value(), rn.Value()) {
				return true
			}
		}
	}
	return false
}

func compareSetValue(op rune, set *NodeSet, other Value) Boolean {
	switch other := other.(type) {
	case Boolean:
		switch op {
		case cmpEq, cmpNe:
			return equality(op, set.Bool() == bool(other))
		default:
			return compareNumber(op, set.Number(), other.Number())
		}
	case Number:
		for _, n := range set.Nodes() {
			if compareNumber(op, stringToNumber(n.Value()), float64(other)) {
				return true
			}
		}
	default:
		for _, n := range set.Nodes() {
			if compareNode(op, n.Value(), other.String()) {
				return true
			}
		}
	}
	return false
}

func compareNode(op rune, left, right string) bool {
	switch op {
	case cmpEq:
		return left == right
	case cmpNe:
		return left != right
	default:
		return bool(compareNumber(op, stringToNumber(left), stringToNumber(right)))
	}
}

func compareNumber(op rune, left, right float64) Boolean {
	switch op {
	case cmpEq:
		return Boolean(numberEq(left, right))
	case cmpNe:
		return Boolean(!numberEq(left, right))
	case cmpLt:
		return Boolean(left < right)
	case cmpLe:
		return Boolean(left <= right)
	case cmpGt:
		return Boolean(left > right)
	case cmpGe:
		return Boolean(left >= right)
	default:
		return false
	}
}

func numberEq(left, right float64) bool {
	if math.IsNaN(left) || math.IsNaN(right) {
		return false
	}
	return left == right
}

func equality(op rune, eq bool) Boolean {
	if op == cmpNe {
		return Boolean(!eq)
	}
	return Boolean(eq)
}

// swapOp mirrors a relational operator so set/value comparisons can be
// evaluated with the set always on the left.
func swapOp(op rune) rune {
	switch op {
	case cmpLt:
		return cmpGt
	case cmpLe:
		return cmpGe
	case cmpGt:
		return cmpLt
	case cmpGe:
		return cmpLe
	default:
		return op
	}
}

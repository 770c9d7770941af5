package xpath

import (
	"fmt"
	"math"
	"strings"

	"github.com/midbel/tally/environ"
	"github.com/midbel/tally/xml"
)

func builtins() environ.Environ[BuiltinFunc] {
	env := environ.Empty[BuiltinFunc]()

	env.Define("last", callLast)
	env.Define("position", callPosition)
	env.Define("count", callCount)
	env.Define("id", callId)
	env.Define("local-name", callLocalName)
	env.Define("namespace-uri", callNamespaceUri)
	env.Define("name", callName)

	env.Define("string", callString)
	env.Define("concat", callConcat)
	env.Define("starts-with", callStartsWith)
	env.Define("contains", callContains)
	env.Define("substring-before", callSubstringBefore)
	env.Define("substring-after", callSubstringAfter)
	env.Define("substring", callSubstring)
	env.Define("string-length", callStringLength)
	env.Define("normalize-space", callNormalizeSpace)
	env.Define("translate", callTranslate)

	env.Define("boolean", callBoolean)
	env.Define("not", callNot)
	env.Define("true", callTrue)
	env.Define("false", callFalse)
	env.Define("lang", callLang)

	env.Define("number", callNumber)
	env.Define("sum", callSum)
	env.Define("floor", callFloor)
	env.Define("ceiling", callCeiling)
	env.Define("round", callRound)

	return env
}

func badArity(name, signature string) error {
	return fmt.Errorf("%w: %s expects (%s)", ErrArgument, name, signature)
}

func checkArity(name, signature string, args []Expr, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return badArity(name, signature)
	}
	return nil
}

// argOrContext evaluates the optional node-set argument of the node
// functions, falling back to the context node.
func argOrContext(ctx Context, args []Expr) (xml.Node, error) {
	if len(args) == 0 {
		return ctx.Node, nil
	}
	set, err := evalSet(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return set.First(), nil
}

func evalSet(ctx Context, arg Expr) (*NodeSet, error) {
	v, err := arg.eval(ctx)
	if err != nil {
		return nil, err
	}
	set, ok := v.(*NodeSet)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a node-set", ErrType, arg)
	}
	return set, nil
}

func evalString(ctx Context, arg Expr) (string, error) {
	v, err := arg.eval(ctx)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func evalNumber(ctx Context, arg Expr) (float64, error) {
	v, err := arg.eval(ctx)
	if err != nil {
		return 0, err
	}
	return v.Number(), nil
}

func evalBool(ctx Context, arg Expr) (bool, error) {
	v, err := arg.eval(ctx)
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func callLast(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("last", "", args, 0, 0); err != nil {
		return nil, err
	}
	return Number(ctx.Size), nil
}

func callPosition(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("position", "", args, 0, 0); err != nil {
		return nil, err
	}
	return Number(ctx.Index), nil
}

func callCount(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("count", "node-set", args, 1, 1); err != nil {
		return nil, err
	}
	set, err := evalSet(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return Number(set.Len()), nil
}

// callId resolves whitespace separated tokens against attributes named id.
func callId(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("id", "object", args, 1, 1); err != nil {
		return nil, err
	}
	v, err := args[0].eval(ctx)
	if err != nil {
		return nil, err
	}
	var idents []string
	if set, ok := v.(*NodeSet); ok {
		for _, n := range set.Nodes() {
			idents = append(idents, strings.Fields(n.Value())...)
		}
	} else {
		idents = strings.Fields(v.String())
	}
	res := emptySet()
	for _, c := range descendants(ctx.root(), true) {
		el, ok := c.(*xml.Element)
		if !ok {
			continue
		}
		value, ok := el.GetAttribute("id")
		if !ok {
			continue
		}
		for _, id := range idents {
			if value == id {
				res.Add(el)
				break
			}
		}
	}
	return res, nil
}

func callLocalName(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("local-name", "node-set?", args, 0, 1); err != nil {
		return nil, err
	}
	node, err := argOrContext(ctx, args)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return String(""), nil
	}
	return String(node.LocalName()), nil
}

func callNamespaceUri(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("namespace-uri", "node-set?", args, 0, 1); err != nil {
		return nil, err
	}
	node, err := argOrContext(ctx, args)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return String(""), nil
	}
	return String(nodeUri(node)), nil
}

func callName(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("name", "node-set?", args, 0, 1); err != nil {
		return nil, err
	}
	node, err := argOrContext(ctx, args)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return String(""), nil
	}
	return String(node.QualifiedName()), nil
}

func callString(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("string", "object?", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return String(ctx.Node.Value()), nil
	}
	str, err := evalString(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return String(str), nil
}

func callConcat(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("concat", "string, string, ...", args, 2, -1); err != nil {
		return nil, err
	}
	var str strings.Builder
	for _, a := range args {
		s, err := evalString(ctx, a)
		if err != nil {
			return nil, err
		}
		str.WriteString(s)
	}
	return String(str.String()), nil
}

func callStartsWith(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("starts-with", "string, string", args, 2, 2); err != nil {
		return nil, err
	}
	str, prefix, err := twoStrings(ctx, args)
	if err != nil {
		return nil, err
	}
	return Boolean(strings.HasPrefix(str, prefix)), nil
}

func callContains(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("contains", "string, string", args, 2, 2); err != nil {
		return nil, err
	}
	str, sub, err := twoStrings(ctx, args)
	if err != nil {
		return nil, err
	}
	return Boolean(strings.Contains(str, sub)), nil
}

func callSubstringBefore(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("substring-before", "string, string", args, 2, 2); err != nil {
		return nil, err
	}
	str, sub, err := twoStrings(ctx, args)
	if err != nil {
		return nil, err
	}
	before, _, _ := strings.Cut(str, sub)
	if before == str {
		return String(""), nil
	}
	return String(before), nil
}

func callSubstringAfter(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("substring-after", "string, string", args, 2, 2); err != nil {
		return nil, err
	}
	str, sub, err := twoStrings(ctx, args)
	if err != nil {
		return nil, err
	}
	_, after, found := strings.Cut(str, sub)
	if !found {
		return String(""), nil
	}
	return String(after), nil
}

// callSubstring indexes in characters starting at one, with the start and
// length rounded first. NaN in either argument gives the empty string.
func callSubstring(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("substring", "string, number, number?", args, 2, 3); err != nil {
		return nil, err
	}
	str, err := evalString(ctx, args[0])
	if err != nil {
		return nil, err
	}
	start, err := evalNumber(ctx, args[1])
	if err != nil {
		return nil, err
	}
	start = xpathRound(start)
	end := math.Inf(1)
	if len(args) == 3 {
		length, err := evalNumber(ctx, args[2])
		if err != nil {
			return nil, err
		}
		end = start + xpathRound(length)
	}
	if math.IsNaN(start) || math.IsNaN(end) {
		return String(""), nil
	}
	var out strings.Builder
	pos := 1.0
	for _, c := range str {
		if pos >= start && pos < end {
			out.WriteRune(c)
		}
		pos++
	}
	return String(out.String()), nil
}

func callStringLength(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("string-length", "string?", args, 0, 1); err != nil {
		return nil, err
	}
	var str string
	if len(args) == 0 {
		str = ctx.Node.Value()
	} else {
		s, err := evalString(ctx, args[0])
		if err != nil {
			return nil, err
		}
		str = s
	}
	return Number(len([]rune(str))), nil
}

func callNormalizeSpace(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("normalize-space", "string?", args, 0, 1); err != nil {
		return nil, err
	}
	var str string
	if len(args) == 0 {
		str = ctx.Node.Value()
	} else {
		s, err := evalString(ctx, args[0])
		if err != nil {
			return nil, err
		}
		str = s
	}
	return String(strings.Join(strings.Fields(str), " ")), nil
}

// callTranslate maps characters of the second argument to the matching
// character of the third, removal when the third is shorter.
func callTranslate(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("translate", "string, string, string", args, 3, 3); err != nil {
		return nil, err
	}
	str, err := evalString(ctx, args[0])
	if err != nil {
		return nil, err
	}
	from, err := evalString(ctx, args[1])
	if err != nil {
		return nil, err
	}
	to, err := evalString(ctx, args[2])
	if err != nil {
		return nil, err
	}
	mapping := make(map[rune]rune)
	repl := []rune(to)
	for i, c := range []rune(from) {
		if _, ok := mapping[c]; ok {
			continue
		}
		if i < len(repl) {
			mapping[c] = repl[i]
		} else {
			mapping[c] = -1
		}
	}
	var out strings.Builder
	for _, c := range str {
		r, ok := mapping[c]
		if !ok {
			out.WriteRune(c)
		} else if r >= 0 {
			out.WriteRune(r)
		}
	}
	return String(out.String()), nil
}

func twoStrings(ctx Context, args []Expr) (string, string, error) {
	fst, err := evalString(ctx, args[0])
	if err != nil {
		return "", "", err
	}
	snd, err := evalString(ctx, args[1])
	if err != nil {
		return "", "", err
	}
	return fst, snd, nil
}

func callBoolean(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("boolean", "object", args, 1, 1); err != nil {
		return nil, err
	}
	b, err := evalBool(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return Boolean(b), nil
}

func callNot(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("not", "object", args, 1, 1); err != nil {
		return nil, err
	}
	b, err := evalBool(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return Boolean(!b), nil
}

func callTrue(_ Context, args []Expr) (Value, error) {
	if err := checkArity("true", "", args, 0, 0); err != nil {
		return nil, err
	}
	return Boolean(true), nil
}

func callFalse(_ Context, args []Expr) (Value, error) {
	if err := checkArity("false", "", args, 0, 0); err != nil {
		return nil, err
	}
	return Boolean(false), nil
}

// callLang checks the xml:lang attribute in scope against the argument,
// either an exact case insensitive match or a language range prefix.
func callLang(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("lang", "string", args, 1, 1); err != nil {
		return nil, err
	}
	want, err := evalString(ctx, args[0])
	if err != nil {
		return nil, err
	}
	for n := ctx.Node; n != nil; n = n.Parent() {
		el, ok := n.(*xml.Element)
		if !ok {
			continue
		}
		lang, ok := el.GetAttribute("xml:lang")
		if !ok {
			continue
		}
		if strings.EqualFold(lang, want) {
			return Boolean(true), nil
		}
		return Boolean(strings.HasPrefix(strings.ToLower(lang), strings.ToLower(want)+"-")), nil
	}
	return Boolean(false), nil
}

func callNumber(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("number", "object?", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Number(stringToNumber(ctx.Node.Value())), nil
	}
	f, err := evalNumber(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return Number(f), nil
}

func callSum(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("sum", "node-set", args, 1, 1); err != nil {
		return nil, err
	}
	set, err := evalSet(ctx, args[0])
	if err != nil {
		return nil, err
	}
	var total float64
	for _, n := range set.Nodes() {
		total += stringToNumber(n.Value())
	}
	return Number(total), nil
}

func callFloor(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("floor", "number", args, 1, 1); err != nil {
		return nil, err
	}
	f, err := evalNumber(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return Number(math.Floor(f)), nil
}

func callCeiling(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("ceiling", "number", args, 1, 1); err != nil {
		return nil, err
	}
	f, err := evalNumber(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return Number(math.Ceil(f)), nil
}

func callRound(ctx Context, args []Expr) (Value, error) {
	if err := checkArity("round", "number", args, 1, 1); err != nil {
		return nil, err
	}
	f, err := evalNumber(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return Number(xpathRound(f)), nil
}

// xpathRound rounds half towards positive infinity, so round(-0.5) is
// negative zero, not minus one.
func xpathRound(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	return math.Floor(f + 0.5)
}

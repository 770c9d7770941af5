package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/midbel/tally/xpath"
)

// Functions returns the extension functions available to matcher
// expressions. Arguments arrive already evaluated, so the two branches
// of if() are both computed whichever the condition picks.
func Functions() map[string]xpath.Func {
	return map[string]xpath.Func{
		"replace":   callReplace,
		"match":     callMatch,
		"if":        callIf,
		"normalize": callNormalize,
	}
}

// callReplace substitutes the first occurrence of the pattern, with $1
// style references expanded in the replacement. An empty input stays
// empty, a pattern without a match leaves the input untouched.
func callReplace(_ xpath.Context, args []xpath.Value) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("replace expects (string, pattern, string)")
	}
	input := args[0].String()
	if input == "" {
		return "", nil
	}
	re, err := regexp.Compile(args[1].String())
	if err != nil {
		return nil, fmt.Errorf("replace: %w", err)
	}
	loc := re.FindStringSubmatchIndex(input)
	if loc == nil {
		return input, nil
	}
	expanded := re.ExpandString(nil, args[2].String(), input, loc)
	return input[:loc[0]] + string(expanded) + input[loc[1]:], nil
}

// callMatch returns the first capturing group of the pattern, the empty
// string when the pattern does not match or has no group.
func callMatch(_ xpath.Context, args []xpath.Value) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("match expects (string, pattern)")
	}
	re, err := regexp.Compile(args[1].String())
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	groups := re.FindStringSubmatch(args[0].String())
	if len(groups) < 2 {
		return "", nil
	}
	return groups[1], nil
}

func callIf(_ xpath.Context, args []xpath.Value) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("if expects (boolean, object, object)")
	}
	if args[0].Bool() {
		return args[1], nil
	}
	return args[2], nil
}

// callNormalize trims every line of its input, keeping the line breaks.
func callNormalize(_ xpath.Context, args []xpath.Value) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("normalize expects (string)")
	}
	lines := strings.Split(args[0].String(), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "\n"), nil
}

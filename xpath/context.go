package xpath

import (
	"errors"
	"fmt"

	"github.com/midbel/tally/environ"
	"github.com/midbel/tally/xml"
)

var (
	ErrSyntax    = errors.New("invalid syntax")
	ErrType      = errors.New("invalid type")
	ErrArgument  = errors.New("invalid argument")
	ErrUndefined = errors.New("undefined")
	ErrEmpty     = errors.New("empty result")
)

// BuiltinFunc is a function of the standard library. Arguments arrive
// unevaluated so position() and last() can reach the dynamic context and
// so boolean connectives inside arguments keep their own semantics.
type BuiltinFunc func(Context, []Expr) (Value, error)

// Func is a user supplied extension function. Arguments are evaluated
// before the call, the returned value is converted to a Value.
type Func func(Context, []Value) (any, error)

// Scope carries the static part of the evaluation context: namespace
// bindings, variables and the two function registries. It is shared by
// every Context derived during one evaluation.
type Scope struct {
	Namespaces environ.Environ[string]
	Variables  environ.Environ[Value]
	Builtins   environ.Environ[BuiltinFunc]
	Functions  environ.Environ[Func]

	// AnyNamespace relaxes name tests without a prefix to match elements
	// in any namespace instead of only the empty one.
	AnyNamespace bool

	// HTML makes name tests compare element names case insensitively.
	HTML bool

	// Root, when set, is where absolute paths start instead of the
	// document owning the context node.
	Root xml.Node
}

func defaultScope() *Scope {
	return &Scope{
		Namespaces: environ.Empty[string](),
		Variables:  environ.Empty[Value](),
		Builtins:   builtins(),
		Functions:  environ.Empty[Func](),
	}
}

func (s *Scope) resolveNS(prefix string) (string, error) {
	if prefix == "" {
		return "", nil
	}
	if prefix == "xml" {
		return xml.XmlNamespace, nil
	}
	uri, err := s.Namespaces.Resolve(prefix)
	if err != nil {
		return "", fmt.Errorf("%w namespace prefix %s", ErrUndefined, prefix)
	}
	return uri, nil
}

func (s *Scope) resolveVariable(name string) (Value, error) {
	v, err := s.Variables.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w variable $%s", ErrUndefined, name)
	}
	return v, nil
}

// resolveFunction looks up user supplied functions before the builtins.
func (s *Scope) resolveFunction(space, name string) (BuiltinFunc, error) {
	ident := name
	if space != "" {
		ident = space + ":" + name
	}
	if fn, err := s.Functions.Resolve(ident); err == nil {
		return callUser(fn), nil
	}
	if space == "" {
		if fn, err := s.Builtins.Resolve(name); err == nil {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("%w function %s()", ErrUndefined, ident)
}

// callUser adapts an extension function to the builtin calling convention
// by evaluating every argument eagerly.
func callUser(fn Func) BuiltinFunc {
	return func(ctx Context, args []Expr) (Value, error) {
		values := make([]Value, len(args))
		for i := range args {
			v, err := args[i].eval(ctx)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		res, err := fn(ctx, values)
		if err != nil {
			return nil, err
		}
		return convertValue(res)
	}
}

func convertValue(res any) (Value, error) {
	switch res := res.(type) {
	case nil:
		return String(""), nil
	case Value:
		return res, nil
	case string:
		return String(res), nil
	case bool:
		return Boolean(res), nil
	case int:
		return Number(res), nil
	case int64:
		return Number(res), nil
	case float64:
		return Number(res), nil
	case xml.Node:
		return singleton(res), nil
	case []xml.Node:
		return NewNodeSet(res...), nil
	default:
		return nil, fmt.Errorf("%w: unsupported result type %T", ErrType, res)
	}
}

// Context is the dynamic evaluation context: the context node, its
// proximity position and the context size.
type Context struct {
	Node  xml.Node
	Index int
	Size  int

	// Principal is the node type selected by an unadorned name test,
	// element for most axes, attribute and namespace for theirs.
	Principal xml.NodeType

	*Scope
}

func defaultContext(node xml.Node) Context {
	return Context{
		Node:      node,
		Index:     1,
		Size:      1,
		Principal: xml.TypeElement,
		Scope:     defaultScope(),
	}
}

// Sub keeps the scope but moves to another context node.
func (c Context) Sub(node xml.Node, index, size int) Context {
	c.Node = node
	c.Index = index
	c.Size = size
	return c
}

package xpath

import (
	"fmt"
	"io"
	"strings"

	"github.com/midbel/tally/environ"
	"github.com/midbel/tally/xml"
)

// Query is a compiled expression ready for evaluation. A Query is safe
// for concurrent use, each evaluation gets its own context.
type Query struct {
	expr Expr
	src  string
}

func CompileString(expr string) (*Query, error) {
	e, err := compileString(expr)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", expr, err)
	}
	return &Query{expr: e, src: expr}, nil
}

func Compile(r io.Reader) (*Query, error) {
	var buf strings.Builder
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return CompileString(buf.String())
}

func MustCompile(expr string) *Query {
	q, err := CompileString(expr)
	if err != nil {
		panic(err)
	}
	return q
}

func (q *Query) String() string {
	return q.expr.String()
}

// FunctionResolver resolves extension functions by name and namespace
// prefix. Returning nil means unknown.
type FunctionResolver interface {
	GetFunction(space, name string) Func
}

// Options configures one evaluation of a compiled query.
type Options struct {
	// Node is the context node the evaluation starts from.
	Node xml.Node

	// Namespaces binds prefixes used in the expression to URIs.
	Namespaces map[string]string

	// Variables binds names referenced as $name. Values may be engine
	// values or plain strings, numbers, booleans and nodes.
	Variables map[string]any

	// Functions supplies extension functions: a map[string]Func keyed
	// by name or prefix:name, a FunctionResolver, or a lookup func with
	// the resolver signature.
	Functions any

	// AllowAnyNamespaceForNoPrefix makes unprefixed name tests match
	// elements regardless of their namespace.
	AllowAnyNamespaceForNoPrefix bool

	// HTML compares element names case insensitively.
	HTML bool

	// VirtualRoot makes absolute paths start at Node instead of the
	// document root.
	VirtualRoot bool
}

func (o Options) context() (Context, error) {
	if o.Node == nil {
		return Context{}, fmt.Errorf("%w: no context node", ErrArgument)
	}
	ctx := defaultContext(o.Node)
	ctx.AnyNamespace = o.AllowAnyNamespaceForNoPrefix
	ctx.HTML = o.HTML
	if o.VirtualRoot {
		ctx.Scope.Root = o.Node
	}
	for prefix, uri := range o.Namespaces {
		ctx.Namespaces.Define(prefix, uri)
	}
	for name, value := range o.Variables {
		v, err := convertValue(value)
		if err != nil {
			return ctx, fmt.Errorf("variable $%s: %w", name, err)
		}
		ctx.Variables.Define(name, v)
	}
	fns, err := functionRegistry(o.Functions)
	if err != nil {
		return ctx, err
	}
	ctx.Functions = fns
	return ctx, nil
}

func functionRegistry(fns any) (environ.Environ[Func], error) {
	env := environ.Empty[Func]()
	switch fns := fns.(type) {
	case nil:
	case map[string]Func:
		for name, fn := range fns {
			env.Define(name, fn)
		}
	case FunctionResolver:
		return resolverEnv{resolve: fns.GetFunction}, nil
	case func(space, name string) Func:
		return resolverEnv{resolve: fns}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported functions type %T", ErrArgument, fns)
	}
	return env, nil
}

// resolverEnv adapts a lookup function to the environment interface used
// by the scope. Identifiers arrive as name or prefix:name.
type resolverEnv struct {
	resolve func(space, name string) Func
}

func (r resolverEnv) Resolve(ident string) (Func, error) {
	space, name, found := strings.Cut(ident, ":")
	if !found {
		space, name = "", ident
	}
	fn := r.resolve(space, name)
	if fn == nil {
		return nil, environ.ErrDefined
	}
	return fn, nil
}

func (r resolverEnv) Define(string, Func) {}

func (r resolverEnv) Names() []string {
	return nil
}

func (r resolverEnv) Len() int {
	return 0
}

// Eval runs the query and returns the raw value.
func (q *Query) Eval(options Options) (Value, error) {
	ctx, err := options.context()
	if err != nil {
		return nil, err
	}
	v, err := q.expr.eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("eval %s: %w", q.src, err)
	}
	return v, nil
}

// EvalString runs the query and converts the result with string().
func (q *Query) EvalString(options Options) (string, error) {
	v, err := q.Eval(options)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// EvalNumber runs the query and converts the result with number().
func (q *Query) EvalNumber(options Options) (float64, error) {
	v, err := q.Eval(options)
	if err != nil {
		return 0, err
	}
	return v.Number(), nil
}

// EvalBoolean runs the query and converts the result with boolean().
func (q *Query) EvalBoolean(options Options) (bool, error) {
	v, err := q.Eval(options)
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

// EvalNodes runs the query and returns the resulting nodes in document
// order. A non node-set result is an error.
func (q *Query) EvalNodes(options Options) ([]xml.Node, error) {
	v, err := q.Eval(options)
	if err != nil {
		return nil, err
	}
	set, ok := v.(*NodeSet)
	if !ok {
		return nil, fmt.Errorf("%s: %w: result is not a node-set", q.src, ErrType)
	}
	return set.Nodes(), nil
}

// Select evaluates the query from the given node with default options.
func (q *Query) Select(node xml.Node) ([]xml.Node, error) {
	return q.EvalNodes(Options{Node: node})
}

// Select1 returns the first selected node in document order.
func (q *Query) Select1(node xml.Node) (xml.Node, error) {
	nodes, err := q.Select(node)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", q.src, ErrEmpty)
	}
	return nodes[0], nil
}

// Find compiles and evaluates in one call, for one-shot queries.
func Find(node xml.Node, expr string) ([]xml.Node, error) {
	q, err := CompileString(expr)
	if err != nil {
		return nil, err
	}
	return q.Select(node)
}

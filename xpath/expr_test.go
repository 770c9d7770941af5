package xpath

import (
	"errors"
	"testing"

	"github.com/midbel/tally/xml"
)

const report = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
	<testsuite name="alpha" tests="3">
		<testcase name="a" time="0.1"/>
		<testcase name="b" time="0.2">
			<failure message="assertion failed">expected 3 got 4 at line 12</failure>
		</testcase>
		<testcase name="c" time="0.3">
			<skipped/>
		</testcase>
	</testsuite>
	<testsuite name="beta" tests="1">
		<testcase name="d" time="4"/>
	</testsuite>
</testsuites>`

func parseReport(t *testing.T) *xml.Document {
	t.Helper()
	doc, err := xml.ParseString(report)
	if err != nil {
		t.Fatalf("parse document: %s", err)
	}
	return doc
}

func evalAt(t *testing.T, doc xml.Node, expr string) Value {
	t.Helper()
	q, err := CompileString(expr)
	if err != nil {
		t.Fatalf("%s: %s", expr, err)
	}
	v, err := q.Eval(Options{Node: doc})
	if err != nil {
		t.Fatalf("%s: %s", expr, err)
	}
	return v
}

func TestEvalString(t *testing.T) {
	doc := parseReport(t)
	tests := []struct {
		expr string
		want string
	}{
		{expr: "//testcase[failure]/@name", want: "b"},
		{expr: "/testsuites/testsuite/@name", want: "alpha"},
		{expr: "//testsuite[2]/testcase/@name", want: "d"},
		{expr: "//failure/@message", want: "assertion failed"},
		{expr: "string(//failure)", want: "expected 3 got 4 at line 12"},
		{expr: "name(//failure/..)", want: "testcase"},
		{expr: "local-name(/*)", want: "testsuites"},
		{expr: "(//testcase[not(failure) and not(skipped)])[last()]/@name", want: "d"},
		{expr: "//testcase[@time > 1]/@name", want: "d"},
		{expr: "concat(//testsuite[1]/@name, '-', //testsuite[2]/@name)", want: "alpha-beta"},
	}
	for _, tt := range tests {
		got := evalAt(t, doc, tt.expr)
		if got.String() != tt.want {
			t.Errorf("%s: got %q, want %q", tt.expr, got.String(), tt.want)
		}
	}
}

func TestEvalNumber(t *testing.T) {
	doc := parseReport(t)
	tests := []struct {
		expr string
		want float64
	}{
		{expr: "count(//testcase)", want: 4},
		{expr: "count(//testcase[failure])", want: 1},
		{expr: "count(//testsuite)", want: 2},
		{expr: "sum(//testsuite/@tests)", want: 4},
		{expr: "count(//testcase) * 10 mod 7", want: 5},
		{expr: "1 div 2 + 0.5", want: 1},
		{expr: "-(2 + 3)", want: -5},
		{expr: "number(//testcase[@name='d']/@time)", want: 4},
	}
	for _, tt := range tests {
		got := evalAt(t, doc, tt.expr)
		if got.Number() != tt.want {
			t.Errorf("%s: got %g, want %g", tt.expr, got.Number(), tt.want)
		}
	}
}

func TestEvalBoolean(t *testing.T) {
	doc := parseReport(t)
	tests := []struct {
		expr string
		want bool
	}{
		{expr: "'0' = 0", want: true},
		{expr: "'x' = 0", want: false},
		{expr: "'x' != 0", want: true},
		{expr: "0 = false()", want: true},
		{expr: "'' = false()", want: true},
		{expr: "'0' = false()", want: false},
		{expr: "//testcase[1]/@time = 0.1", want: true},
		{expr: "//testcase/@time = 4", want: true},
		{expr: "//testcase/@time != 4", want: true},
		{expr: "count(//nothing) = 0", want: true},
		{expr: "//nothing = ''", want: false},
		{expr: "true() or unknown()", want: true},
		{expr: "false() and unknown()", want: false},
		{expr: "//testsuite[@name='beta']/testcase[last()]/@name = 'd'", want: true},
	}
	for _, tt := range tests {
		got := evalAt(t, doc, tt.expr)
		if got.Bool() != tt.want {
			t.Errorf("%s: got %t, want %t", tt.expr, got.Bool(), tt.want)
		}
	}
}

func TestEvalAxes(t *testing.T) {
	doc := parseReport(t)
	tests := []struct {
		expr string
		want []string
	}{
		{
			expr: "//testcase[2]/preceding-sibling::testcase/@name",
			want: []string{"a"},
		},
		{
			expr: "//testcase[3]/preceding-sibling::testcase[1]/@name",
			want: []string{"b"},
		},
		{
			expr: "//testcase[@name='b']/following-sibling::*/@name",
			want: []string{"c"},
		},
		{
			expr: "//failure/ancestor::*[1]",
			want: []string{"testcase"},
		},
		{
			expr: "//failure/ancestor-or-self::*",
			want: []string{"testsuites", "testsuite", "testcase", "failure"},
		},
		{
			expr: "//skipped/preceding::failure",
			want: []string{"failure"},
		},
		{
			expr: "//failure/following::testcase/@name",
			want: []string{"c", "d"},
		},
		{
			expr: "//testsuite[1]/descendant::*[self::failure or self::skipped]",
			want: []string{"failure", "skipped"},
		},
		{
			expr: "/testsuites/testsuite[2]/testcase/parent::*/@name",
			want: []string{"beta"},
		},
	}
	for _, tt := range tests {
		q, err := CompileString(tt.expr)
		if err != nil {
			t.Fatalf("%s: %s", tt.expr, err)
		}
		nodes, err := q.Select(doc)
		if err != nil {
			t.Fatalf("%s: %s", tt.expr, err)
		}
		if len(nodes) != len(tt.want) {
			t.Errorf("%s: got %d nodes, want %d", tt.expr, len(nodes), len(tt.want))
			continue
		}
		for i := range nodes {
			var got string
			if nodes[i].Type() == xml.TypeAttribute {
				got = nodes[i].Value()
			} else {
				got = nodes[i].LocalName()
			}
			if got != tt.want[i] {
				t.Errorf("%s: node %d is %q, want %q", tt.expr, i, got, tt.want[i])
			}
		}
	}
}

// //item[2] selects the second child of each parent, not the second
// item of the whole document.
func TestEvalPredicatePerParent(t *testing.T) {
	doc := parseReport(t)
	q := MustCompile("//testcase[2]/@name")
	nodes, err := q.Select(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0].Value() != "b" {
		t.Errorf("got %d nodes, want the single testcase b", len(nodes))
	}
	first, err := MustCompile("(//testcase)[2]/@name").Select1(doc)
	if err != nil {
		t.Fatal(err)
	}
	if first.Value() != "b" {
		t.Errorf("got %q, want b", first.Value())
	}
}

func TestEvalDocumentOrder(t *testing.T) {
	doc := parseReport(t)
	q := MustCompile("//testcase/@name | //testsuite/@name")
	nodes, err := q.Select(doc)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha", "a", "b", "c", "beta", "d"}
	if len(nodes) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(nodes), len(want))
	}
	for i := range nodes {
		if nodes[i].Value() != want[i] {
			t.Errorf("node %d is %q, want %q", i, nodes[i].Value(), want[i])
		}
	}
	for i := 1; i < len(nodes); i++ {
		if !xml.Before(nodes[i-1], nodes[i]) {
			t.Errorf("nodes %d and %d out of document order", i-1, i)
		}
	}
}

func TestEvalRepeatable(t *testing.T) {
	doc := parseReport(t)
	q := MustCompile("count(//testcase[failure])")
	for i := 0; i < 3; i++ {
		v, err := q.Eval(Options{Node: doc})
		if err != nil {
			t.Fatal(err)
		}
		if v.Number() != 1 {
			t.Errorf("run %d: got %g, want 1", i, v.Number())
		}
	}
}

func TestEvalVariables(t *testing.T) {
	doc := parseReport(t)
	q := MustCompile("//testcase[@time > $limit]/@name")
	v, err := q.Eval(Options{
		Node:      doc,
		Variables: map[string]any{"limit": 0.25},
	})
	if err != nil {
		t.Fatal(err)
	}
	set, ok := v.(*NodeSet)
	if !ok || set.Len() != 2 {
		t.Fatalf("got %v, want 2 attributes", v)
	}
	_, err = q.Eval(Options{Node: doc})
	if !errors.Is(err, ErrUndefined) {
		t.Errorf("got %v, want undefined variable error", err)
	}
}

func TestEvalCustomFunctions(t *testing.T) {
	doc := parseReport(t)
	fns := map[string]Func{
		"double": func(_ Context, args []Value) (any, error) {
			return args[0].Number() * 2, nil
		},
	}
	q := MustCompile("double(count(//testcase))")
	v, err := q.Eval(Options{Node: doc, Functions: fns})
	if err != nil {
		t.Fatal(err)
	}
	if v.Number() != 8 {
		t.Errorf("got %g, want 8", v.Number())
	}
	_, err = q.Eval(Options{Node: doc})
	if !errors.Is(err, ErrUndefined) {
		t.Errorf("got %v, want undefined function error", err)
	}
}

func TestEvalNamespaces(t *testing.T) {
	const spaced = `<?xml version="1.0"?>
<r xmlns:m="urn:metrics">
	<m:value>1</m:value>
	<value>2</value>
</r>`
	doc, err := xml.ParseString(spaced)
	if err != nil {
		t.Fatal(err)
	}
	q := MustCompile("//x:value")
	nodes, err := q.EvalNodes(Options{
		Node:       doc,
		Namespaces: map[string]string{"x": "urn:metrics"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0].Value() != "1" {
		t.Fatalf("got %d nodes, want the namespaced value", len(nodes))
	}
	plain, err := MustCompile("//value").Select(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(plain) != 1 || plain[0].Value() != "2" {
		t.Errorf("got %d nodes, want only the unprefixed value", len(plain))
	}
	all, err := MustCompile("//value").EvalNodes(Options{
		Node:                         doc,
		AllowAnyNamespaceForNoPrefix: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("got %d nodes, want both values", len(all))
	}
	if _, err = q.EvalNodes(Options{Node: doc}); !errors.Is(err, ErrUndefined) {
		t.Errorf("got %v, want an error for the unbound prefix", err)
	}
}

func TestEvalXmlPrefix(t *testing.T) {
	const spaced = `<?xml version="1.0"?>
<doc>
	<p xml:lang="fr">bonjour</p>
	<p>hello</p>
</doc>`
	doc, err := xml.ParseString(spaced)
	if err != nil {
		t.Fatal(err)
	}
	nodes, err := MustCompile("//p/@xml:lang").Select(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0].Value() != "fr" {
		t.Fatalf("got %d nodes, want the xml:lang attribute", len(nodes))
	}
	uri := evalAt(t, doc, "namespace-uri(//p/@xml:lang)")
	if uri.String() != xml.XmlNamespace {
		t.Errorf("got %q, want the implicit xml namespace", uri)
	}
}

func TestEvalVirtualRoot(t *testing.T) {
	doc := parseReport(t)
	second, err := MustCompile("//testsuite[2]").Select1(doc)
	if err != nil {
		t.Fatal(err)
	}
	nodes, err := MustCompile("//testcase").EvalNodes(Options{
		Node:        second,
		VirtualRoot: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Errorf("got %d testcases, want only the one below the virtual root", len(nodes))
	}
	tests := []struct {
		expr string
		want int
	}{
		{expr: "//testcase/ancestor::*", want: 1},
		{expr: "//testcase/ancestor-or-self::*", want: 2},
		{expr: "/..", want: 0},
		{expr: "//testcase/following::*", want: 0},
		{expr: "//testcase/preceding::*", want: 0},
	}
	for _, tt := range tests {
		nodes, err := MustCompile(tt.expr).EvalNodes(Options{
			Node:        second,
			VirtualRoot: true,
		})
		if err != nil {
			t.Fatalf("%s: %s", tt.expr, err)
		}
		if len(nodes) != tt.want {
			t.Errorf("%s: got %d nodes, want %d, the walk must stop at the virtual root", tt.expr, len(nodes), tt.want)
		}
	}
}

func TestEvalTypeErrors(t *testing.T) {
	doc := parseReport(t)
	exprs := []string{
		"count(1)",
		"'a' | 'b'",
		"sum('x')",
	}
	for _, expr := range exprs {
		q, err := CompileString(expr)
		if err != nil {
			t.Fatalf("%s: %s", expr, err)
		}
		if _, err := q.Eval(Options{Node: doc}); err == nil {
			t.Errorf("%s: expected error, got none", expr)
		}
	}
}

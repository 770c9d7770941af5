package xml

import (
	"strings"
	"testing"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<!-- report generated by the runner -->
<testsuites>
	<testsuite name="alpha" tests="2">
		<testcase name="a" time="0.1"/>
		<testcase name="b">
			<failure message="boom">expected &lt;3&gt; got &amp;4</failure>
		</testcase>
	</testsuite>
	<?runner keep="yes"?>
</testsuites>`

func TestParse(t *testing.T) {
	doc, err := ParseString(sample)
	if err != nil {
		t.Fatalf("parse: %s", err)
	}
	root, ok := doc.Root().(*Element)
	if !ok {
		t.Fatal("missing root element")
	}
	if root.LocalName() != "testsuites" {
		t.Errorf("root is %s, want testsuites", root.LocalName())
	}
	suites := root.Nodes
	if len(suites) != 2 {
		t.Fatalf("root has %d children, want 2", len(suites))
	}
	suite, ok := suites[0].(*Element)
	if !ok {
		t.Fatalf("first child is %T, want element", suites[0])
	}
	if name, _ := suite.GetAttribute("name"); name != "alpha" {
		t.Errorf("suite name is %q, want alpha", name)
	}
	if suites[1].Type() != TypeInstruction {
		t.Errorf("second child is %d, want a processing instruction", suites[1].Type())
	}
}

func TestParseEntities(t *testing.T) {
	doc, err := ParseString(sample)
	if err != nil {
		t.Fatal(err)
	}
	var failure *Element
	walk(doc, func(n Node) {
		if el, ok := n.(*Element); ok && el.LocalName() == "failure" {
			failure = el
		}
	})
	if failure == nil {
		t.Fatal("failure element not found")
	}
	if failure.Value() != "expected <3> got &4" {
		t.Errorf("got %q, want entities resolved", failure.Value())
	}
	if msg, _ := failure.GetAttribute("message"); msg != "boom" {
		t.Errorf("message is %q, want boom", msg)
	}
}

func TestParseNamespaces(t *testing.T) {
	const spaced = `<?xml version="1.0"?>
<r xmlns="urn:default" xmlns:m="urn:metrics" m:kind="counter">
	<m:value>1</m:value>
	<plain attr="x"/>
</r>`
	doc, err := ParseString(spaced)
	if err != nil {
		t.Fatal(err)
	}
	root, ok := doc.Root().(*Element)
	if !ok {
		t.Fatal("missing root element")
	}
	if root.Uri != "urn:default" {
		t.Errorf("root uri is %q, want urn:default", root.Uri)
	}
	var value, plain *Element
	walk(doc, func(n Node) {
		el, ok := n.(*Element)
		if !ok {
			return
		}
		switch el.LocalName() {
		case "value":
			value = el
		case "plain":
			plain = el
		}
	})
	if value == nil || value.Uri != "urn:metrics" {
		t.Fatalf("prefixed element not resolved")
	}
	if plain == nil || plain.Uri != "urn:default" {
		t.Fatalf("default namespace not applied to element")
	}
	attrs := plain.Attributes()
	if len(attrs) != 1 || attrs[0].Uri != "" {
		t.Error("default namespace must not apply to attributes")
	}
	kind := root.Attributes()
	if len(kind) != 1 || kind[0].Uri != "urn:metrics" {
		t.Error("prefixed attribute not resolved")
	}
}

func TestParseInScopeNamespaces(t *testing.T) {
	const spaced = `<?xml version="1.0"?>
<a xmlns:x="urn:one">
	<b xmlns:y="urn:two">
		<c xmlns:x="urn:three"/>
	</b>
</a>`
	doc, err := ParseString(spaced)
	if err != nil {
		t.Fatal(err)
	}
	var c *Element
	walk(doc, func(n Node) {
		if el, ok := n.(*Element); ok && el.LocalName() == "c" {
			c = el
		}
	})
	if c == nil {
		t.Fatal("element c not found")
	}
	got := make(map[string]string)
	for _, ns := range c.InScopeNamespaces() {
		got[ns.Prefix] = ns.Uri
	}
	want := map[string]string{
		"xml": XmlNamespace,
		"x":   "urn:three",
		"y":   "urn:two",
	}
	for prefix, uri := range want {
		if got[prefix] != uri {
			t.Errorf("prefix %s resolves to %q, want %q", prefix, got[prefix], uri)
		}
	}
	if len(got) != len(want) {
		t.Errorf("got %d namespaces, want %d", len(got), len(want))
	}
}

func TestParseErrors(t *testing.T) {
	docs := map[string]string{
		"mismatched close": `<?xml version="1.0"?><a><b></a>`,
		"duplicate attr":   `<?xml version="1.0"?><a id="1" id="2"/>`,
		"missing prolog":   `<a/>`,
		"missing root":     `<?xml version="1.0"?><!-- nothing -->`,
		"unclosed":         `<?xml version="1.0"?><a>`,
	}
	for name, doc := range docs {
		if _, err := ParseString(doc); err == nil {
			t.Errorf("%s: expected error, got none", name)
		}
	}
}

func TestParseOmitProlog(t *testing.T) {
	p := NewParser(strings.NewReader(`<a><b>x</b></a>`))
	p.OmitProlog = true
	doc, err := p.Parse()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Root().Value() != "x" {
		t.Errorf("got %q, want x", doc.Root().Value())
	}
}

func TestParseTrimSpace(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<a>
	<b>keep</b>
</a>`
	parsed, err := ParseString(doc)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(parsed.Root().(*Element).Nodes); n != 1 {
		t.Errorf("got %d children, want whitespace text dropped", n)
	}
	p := NewParser(strings.NewReader(doc))
	p.TrimSpace = false
	p.KeepEmpty = true
	parsed, err = p.Parse()
	if err != nil {
		t.Fatal(err)
	}
	if n := len(parsed.Root().(*Element).Nodes); n != 3 {
		t.Errorf("got %d children, want surrounding text kept", n)
	}
}

func walk(n Node, fn func(Node)) {
	fn(n)
	for _, c := range ChildNodes(n) {
		walk(c, fn)
	}
}

package xml

import (
	"strings"
	"testing"
)

func TestWriteNode(t *testing.T) {
	const sample = `<?xml version="1.0"?>
<a id="x &amp; y"><b>1 &lt; 2</b><!-- note --><c/></a>`
	doc, err := ParseString(sample)
	if err != nil {
		t.Fatal(err)
	}
	got := WriteNode(doc.Root())
	want := `<a id="x &amp; y"><b>1 &lt; 2</b><!-- note --><c/></a>`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWriteDocument(t *testing.T) {
	doc, err := ParseString(`<?xml version="1.0"?><a><b>x</b></a>`)
	if err != nil {
		t.Fatal(err)
	}
	var buf strings.Builder
	if err := NewWriter(&buf).Write(doc); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing prolog in %q", out)
	}
	if !strings.Contains(out, "<a><b>x</b></a>") {
		t.Errorf("got %q", out)
	}
}

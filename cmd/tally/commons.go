package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/midbel/tally/matcher"
	"github.com/midbel/tally/xml"
)

type ParserOptions struct {
	OmitProlog bool
	KeepEmpty  bool
}

func parseDocument(file string, options ParserOptions) (*xml.Document, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	p := xml.NewParser(r)
	p.OmitProlog = options.OmitProlog
	p.KeepEmpty = options.KeepEmpty
	return p.Parse()
}

// mapFlag collects repeated prefix=uri bindings.
type mapFlag map[string]string

func (m *mapFlag) String() string {
	var pairs []string
	for k, v := range *m {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (m *mapFlag) Set(value string) error {
	prefix, uri, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("%s: expected prefix=uri", value)
	}
	if *m == nil {
		*m = make(map[string]string)
	}
	(*m)[prefix] = uri
	return nil
}

const annotationPattern = "%-7s | %-24s | %s:%d | %s"

func printAnnotation(w io.Writer, a matcher.Annotation) {
	title := a.Title
	if title == "" {
		title = a.Matcher
	}
	msg := strings.Join(strings.Fields(a.Message), " ")
	fmt.Fprintf(w, annotationPattern, a.Level, shorten(title, 24), a.File, a.StartLine, shorten(msg, 96))
	fmt.Fprintln(w)
}

func printNode(w io.Writer, n xml.Node) {
	fmt.Fprintln(w, xml.WriteNode(n))
}

func shorten(str string, maxLength int) string {
	if len(str) <= maxLength {
		return str
	}
	return str[:maxLength-3] + "..."
}

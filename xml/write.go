package xml

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// WriteNode serializes a single node and its subtree.
func WriteNode(node Node) string {
	var buf bytes.Buffer
	ws := NewWriter(&buf)
	ws.writeNode(node)
	ws.writer.Flush()
	return buf.String()
}

type Writer struct {
	writer *bufio.Writer

	NoProlog bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		writer: bufio.NewWriter(w),
	}
}

func (w *Writer) Write(doc *Document) error {
	if !w.NoProlog {
		fmt.Fprintf(w.writer, "<?xml version=%q encoding=%q?>", SupportedVersion, SupportedEncoding)
		w.writer.WriteRune('\n')
	}
	for _, n := range doc.Nodes {
		if err := w.writeNode(n); err != nil {
			return err
		}
		w.writer.WriteRune('\n')
	}
	return w.writer.Flush()
}

func (w *Writer) writeNode(node Node) error {
	switch node := node.(type) {
	case *Document:
		return w.writeNode(node.Root())
	case *Element:
		return w.writeElement(node)
	case *Text:
		w.writer.WriteString(escapeText(node.Content))
	case *Comment:
		fmt.Fprintf(w.writer, "<!--%s-->", node.Content)
	case *Instruction:
		return w.writeInstruction(node)
	case *Attribute:
		fmt.Fprintf(w.writer, `%s="%s"`, node.QualifiedName(), escapeValue(node.Value()))
	case *NS:
		fmt.Fprintf(w.writer, `xmlns:%s="%s"`, node.Prefix, node.Uri)
	default:
		return fmt.Errorf("node: unknown type %T", node)
	}
	return nil
}

func (w *Writer) writeElement(node *Element) error {
	w.writer.WriteRune(langle)
	w.writer.WriteString(node.QualifiedName())
	w.writeAttributes(node.Attrs)
	if len(node.Nodes) == 0 {
		w.writer.WriteRune(slash)
		w.writer.WriteRune(rangle)
		return nil
	}
	w.writer.WriteRune(rangle)
	for _, n := range node.Nodes {
		if err := w.writeNode(n); err != nil {
			return err
		}
	}
	w.writer.WriteRune(langle)
	w.writer.WriteRune(slash)
	w.writer.WriteString(node.QualifiedName())
	w.writer.WriteRune(rangle)
	return nil
}

func (w *Writer) writeInstruction(node *Instruction) error {
	w.writer.WriteRune(langle)
	w.writer.WriteRune(question)
	w.writer.WriteString(node.Name)
	w.writeAttributes(node.Attrs)
	w.writer.WriteRune(question)
	w.writer.WriteRune(rangle)
	return nil
}

func (w *Writer) writeAttributes(attrs []Attribute) {
	for i := range attrs {
		w.writer.WriteRune(' ')
		fmt.Fprintf(w.writer, `%s="%s"`, attrs[i].QualifiedName(), escapeValue(attrs[i].Value()))
	}
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

var valueEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	"\"", "&quot;",
)

func escapeText(str string) string {
	return textEscaper.Replace(str)
}

func escapeValue(str string) string {
	return valueEscaper.Replace(str)
}

package matcher

import (
	"fmt"
	"io"
	"strings"
)

// WriteCommand emits the annotation as a GitHub Actions workflow command:
// ::level file=...,line=...,title=...::message
func WriteCommand(w io.Writer, a Annotation) {
	fmt.Fprintf(w, "::%s", a.Level)
	props := properties(a)
	if len(props) > 0 {
		fmt.Fprintf(w, " %s", strings.Join(props, ","))
	}
	fmt.Fprintf(w, "::%s", escapeData(a.Message))
	fmt.Fprintln(w)
}

func properties(a Annotation) []string {
	var props []string
	add := func(name, value string) {
		if value != "" {
			props = append(props, name+"="+escapeProperty(value))
		}
	}
	addInt := func(name string, value int) {
		if value > 0 {
			add(name, fmt.Sprintf("%d", value))
		}
	}
	add("file", a.File)
	addInt("line", a.StartLine)
	addInt("endLine", a.EndLine)
	addInt("col", a.StartColumn)
	addInt("endColumn", a.EndColumn)
	add("title", a.Title)
	return props
}

var dataEscaper = strings.NewReplacer(
	"%", "%25",
	"\r", "%0D",
	"\n", "%0A",
)

var propertyEscaper = strings.NewReplacer(
	"%", "%25",
	"\r", "%0D",
	"\n", "%0A",
	":", "%3A",
	",", "%2C",
)

func escapeData(str string) string {
	return dataEscaper.Replace(str)
}

func escapeProperty(str string) string {
	return propertyEscaper.Replace(str)
}

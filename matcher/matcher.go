package matcher

import (
	"errors"
	"fmt"
	"os"

	"github.com/midbel/tally/xml"
	"github.com/midbel/tally/xpath"
)

var ErrLimit = errors.New("annotation limit reached")

const (
	LevelError  = "error"
	LevelWarn   = "warning"
	LevelNotice = "notice"
	LevelIgnore = "ignore"
)

func validLevel(level string) bool {
	switch level {
	case LevelError, LevelWarn, LevelNotice, LevelIgnore:
		return true
	default:
		return false
	}
}

// Annotation is one extracted finding, ready to be sent to a sink.
type Annotation struct {
	Matcher string
	Level   string
	Message string
	Title   string
	File    string

	StartLine   int
	EndLine     int
	StartColumn int
	EndColumn   int
}

// Rule maps a boolean condition to a severity level. Rules are tried in
// order, the first one that holds decides.
type Rule struct {
	Level string
	When  *xpath.Query
}

// Fields holds the per-item extraction expressions. A nil query leaves
// the annotation field empty.
type Fields struct {
	Message     *xpath.Query
	Title       *xpath.Query
	File        *xpath.Query
	StartLine   *xpath.Query
	EndLine     *xpath.Query
	StartColumn *xpath.Query
	EndColumn   *xpath.Query
}

// Matcher extracts annotations from one family of report files: the item
// expression selects the repeating node, the rules grade each item and
// the field expressions fill the annotation, all evaluated with the item
// as context node.
type Matcher struct {
	Name    string
	Reports []string
	Item    *xpath.Query
	Default string
	Rules   []Rule
	Fields  Fields

	Namespaces map[string]string
}

func (m *Matcher) options(node xml.Node) xpath.Options {
	return xpath.Options{
		Node:       node,
		Namespaces: m.Namespaces,
		Functions:  Functions(),
	}
}

// Grade resolves the severity of one item. The empty string means the
// item is suppressed.
func (m *Matcher) Grade(item xml.Node) (string, error) {
	for _, r := range m.Rules {
		ok, err := r.When.EvalBoolean(m.options(item))
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		if r.Level == LevelIgnore {
			return "", nil
		}
		return r.Level, nil
	}
	return m.Default, nil
}

func (m *Matcher) Extract(item xml.Node, level string) (Annotation, error) {
	a := Annotation{
		Matcher: m.Name,
		Level:   level,
	}
	var err error
	if a.Message, err = m.evalString(m.Fields.Message, item); err != nil {
		return a, err
	}
	if a.Title, err = m.evalString(m.Fields.Title, item); err != nil {
		return a, err
	}
	if a.File, err = m.evalString(m.Fields.File, item); err != nil {
		return a, err
	}
	if a.StartLine, err = m.evalInt(m.Fields.StartLine, item); err != nil {
		return a, err
	}
	if a.EndLine, err = m.evalInt(m.Fields.EndLine, item); err != nil {
		return a, err
	}
	if a.StartColumn, err = m.evalInt(m.Fields.StartColumn, item); err != nil {
		return a, err
	}
	if a.EndColumn, err = m.evalInt(m.Fields.EndColumn, item); err != nil {
		return a, err
	}
	return a, nil
}

func (m *Matcher) evalString(q *xpath.Query, item xml.Node) (string, error) {
	if q == nil {
		return "", nil
	}
	return q.EvalString(m.options(item))
}

func (m *Matcher) evalInt(q *xpath.Query, item xml.Node) (int, error) {
	if q == nil {
		return 0, nil
	}
	f, err := q.EvalNumber(m.options(item))
	if err != nil {
		return 0, err
	}
	if f != f || f < 0 {
		return 0, nil
	}
	return int(f), nil
}

// Tally accumulates counts while a run progresses.
type Tally struct {
	Files     int
	Ignored   int
	ByLevel   map[string]int
	ByMatcher map[string]int
}

func NewTally() *Tally {
	return &Tally{
		ByLevel:   make(map[string]int),
		ByMatcher: make(map[string]int),
	}
}

func (t *Tally) Update(a Annotation) {
	t.ByLevel[a.Level]++
	t.ByMatcher[a.Matcher]++
}

func (t *Tally) Total() int {
	var total int
	for _, n := range t.ByLevel {
		total += n
	}
	return total
}

func (t *Tally) Failed() bool {
	return t.ByLevel[LevelError] > 0
}

// Runner drives the matchers over their discovered report files. The
// limit caps the number of annotations for the whole run, extraction
// stops once it is reached.
type Runner struct {
	matchers []*Matcher
	limit    int
}

func NewRunner(matchers []*Matcher, limit int) *Runner {
	return &Runner{
		matchers: matchers,
		limit:    limit,
	}
}

// Run evaluates every matcher over its reports below dir and hands each
// annotation to emit. An evaluation failure aborts the file being read
// and surfaces as an error annotation for that file.
func (r *Runner) Run(dir string, emit func(Annotation)) (*Tally, error) {
	tally := NewTally()
	for _, m := range r.matchers {
		files, err := Discover(dir, m.Reports)
		if err != nil {
			return tally, err
		}
		for _, file := range files {
			tally.Files++
			err := r.runFile(m, file, tally, emit)
			if errors.Is(err, ErrLimit) {
				return tally, nil
			}
			if err != nil {
				a := Annotation{
					Matcher: m.Name,
					Level:   LevelError,
					File:    file,
					Message: err.Error(),
					Title:   "report extraction failed",
				}
				tally.Update(a)
				emit(a)
			}
		}
	}
	return tally, nil
}

func (r *Runner) runFile(m *Matcher, file string, tally *Tally, emit func(Annotation)) error {
	doc, err := parseReport(file)
	if err != nil {
		return err
	}
	items, err := m.Item.EvalNodes(m.options(doc))
	if err != nil {
		return err
	}
	for _, item := range items {
		level, err := m.Grade(item)
		if err != nil {
			return err
		}
		if level == "" {
			tally.Ignored++
			continue
		}
		a, err := m.Extract(item, level)
		if err != nil {
			return err
		}
		if a.File == "" {
			a.File = file
		}
		tally.Update(a)
		emit(a)
		if r.limit > 0 && tally.Total() >= r.limit {
			return ErrLimit
		}
	}
	return nil
}

func parseReport(file string) (*xml.Document, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	p := xml.NewParser(r)
	p.OmitProlog = true
	doc, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return doc, nil
}

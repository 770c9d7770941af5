package matcher

import (
	"fmt"
	"io"
	"os"

	"github.com/midbel/tally/xpath"
	"gopkg.in/yaml.v3"
)

// Config is the YAML document driving a run. Every expression is
// compiled while loading so a malformed one fails immediately with the
// offending expression in the error.
type Config struct {
	Limit    int             `yaml:"limit"`
	Matchers []MatcherConfig `yaml:"matchers"`
}

type MatcherConfig struct {
	Name       string            `yaml:"name"`
	Reports    []string          `yaml:"reports"`
	Item       string            `yaml:"item"`
	Default    string            `yaml:"default"`
	Levels     []LevelConfig     `yaml:"levels"`
	Fields     FieldsConfig      `yaml:"fields"`
	Namespaces map[string]string `yaml:"namespaces"`
}

type LevelConfig struct {
	Level string `yaml:"level"`
	When  string `yaml:"when"`
}

type FieldsConfig struct {
	Message     string `yaml:"message"`
	Title       string `yaml:"title"`
	File        string `yaml:"file"`
	StartLine   string `yaml:"startLine"`
	EndLine     string `yaml:"endLine"`
	StartColumn string `yaml:"startColumn"`
	EndColumn   string `yaml:"endColumn"`
}

const DefaultLimit = 50

func Open(file string) (*Runner, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Load(r)
}

func Load(r io.Reader) (*Runner, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg.Build()
}

func (c Config) Build() (*Runner, error) {
	if len(c.Matchers) == 0 {
		return nil, fmt.Errorf("no matchers configured")
	}
	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}
	var matchers []*Matcher
	for _, mc := range c.Matchers {
		m, err := mc.build()
		if err != nil {
			return nil, fmt.Errorf("matcher %s: %w", mc.Name, err)
		}
		matchers = append(matchers, m)
	}
	return NewRunner(matchers, c.Limit), nil
}

func (c MatcherConfig) build() (*Matcher, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("name is missing")
	}
	if len(c.Reports) == 0 {
		return nil, fmt.Errorf("no report globs given")
	}
	if c.Item == "" {
		return nil, fmt.Errorf("item expression is missing")
	}
	m := Matcher{
		Name:       c.Name,
		Reports:    c.Reports,
		Default:    c.Default,
		Namespaces: c.Namespaces,
	}
	if m.Default == "" {
		m.Default = LevelError
	}
	if !validLevel(m.Default) {
		return nil, fmt.Errorf("unknown level %s", m.Default)
	}
	var err error
	if m.Item, err = xpath.CompileString(c.Item); err != nil {
		return nil, err
	}
	for _, lc := range c.Levels {
		if !validLevel(lc.Level) {
			return nil, fmt.Errorf("unknown level %s", lc.Level)
		}
		when, err := xpath.CompileString(lc.When)
		if err != nil {
			return nil, err
		}
		m.Rules = append(m.Rules, Rule{Level: lc.Level, When: when})
	}
	if m.Fields, err = c.Fields.build(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c FieldsConfig) build() (Fields, error) {
	var (
		f   Fields
		err error
	)
	if f.Message, err = compileField(c.Message); err != nil {
		return f, err
	}
	if f.Title, err = compileField(c.Title); err != nil {
		return f, err
	}
	if f.File, err = compileField(c.File); err != nil {
		return f, err
	}
	if f.StartLine, err = compileField(c.StartLine); err != nil {
		return f, err
	}
	if f.EndLine, err = compileField(c.EndLine); err != nil {
		return f, err
	}
	if f.StartColumn, err = compileField(c.StartColumn); err != nil {
		return f, err
	}
	if f.EndColumn, err = compileField(c.EndColumn); err != nil {
		return f, err
	}
	return f, nil
}

func compileField(expr string) (*xpath.Query, error) {
	if expr == "" {
		return nil, nil
	}
	return xpath.CompileString(expr)
}

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/midbel/cli"
	"github.com/midbel/tally/matcher"
	"github.com/midbel/tally/xpath"
)

var queryCmd = cli.Command{
	Name:    "query",
	Alias:   []string{"exec"},
	Summary: "evaluate an xpath expression against xml documents",
	Handler: &QueryCmd{},
}

type QueryCmd struct {
	Noout bool
	Text  bool
	ParserOptions
}

const queryInfo = "query took %s - %d nodes matching %q"

func (q *QueryCmd) Run(args []string) error {
	var namespaces mapFlag
	set := flag.NewFlagSet("query", flag.ContinueOnError)
	set.BoolVar(&q.Noout, "quiet", false, "suppress output - default is to print the result nodes")
	set.BoolVar(&q.Text, "text", false, "print only value of node")
	set.BoolVar(&q.OmitProlog, "omit-prolog", true, "omit xml prolog")
	set.BoolVar(&q.KeepEmpty, "keep-empty", false, "keep empty element")
	set.Var(&namespaces, "ns", "bind a namespace prefix, as prefix=uri")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() < 2 {
		return fmt.Errorf("usage: query <expression> <file...>")
	}
	query, err := xpath.CompileString(set.Arg(0))
	if err != nil {
		return err
	}
	var total int
	now := time.Now()
	for _, file := range set.Args()[1:] {
		doc, err := parseDocument(file, q.ParserOptions)
		if err != nil {
			return err
		}
		nodes, err := query.EvalNodes(xpath.Options{
			Node:       doc,
			Namespaces: namespaces,
			Functions:  matcher.Functions(),
		})
		if err != nil {
			return err
		}
		total += len(nodes)
		if q.Noout {
			continue
		}
		for _, n := range nodes {
			if q.Text {
				fmt.Fprintln(os.Stdout, n.Value())
			} else {
				printNode(os.Stdout, n)
			}
		}
	}
	elapsed := time.Since(now)
	fmt.Fprintf(os.Stderr, queryInfo, elapsed, total, set.Arg(0))
	fmt.Fprintln(os.Stderr)
	if total == 0 {
		return errFail
	}
	return nil
}

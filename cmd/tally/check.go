package main

import (
	"flag"
	"os"

	"github.com/midbel/cli"
	"github.com/midbel/tally/matcher"
)

var checkCmd = cli.Command{
	Name:    "check",
	Alias:   []string{"run"},
	Summary: "run the configured matchers over the discovered report files",
	Handler: &CheckCmd{},
}

type CheckCmd struct {
	Config  string
	Dir     string
	Quiet   bool
	Actions bool
}

func (c *CheckCmd) Run(args []string) error {
	set := flag.NewFlagSet("check", flag.ContinueOnError)
	set.StringVar(&c.Config, "config", "tally.yml", "matcher configuration file")
	set.StringVar(&c.Dir, "dir", ".", "directory the report globs are resolved against")
	set.BoolVar(&c.Quiet, "quiet", false, "suppress the summary")
	set.BoolVar(&c.Actions, "actions", false, "emit github workflow commands instead of plain lines")
	if err := set.Parse(args); err != nil {
		return err
	}
	runner, err := matcher.Open(c.Config)
	if err != nil {
		return err
	}
	tally, err := runner.Run(c.Dir, func(a matcher.Annotation) {
		if c.Actions {
			matcher.WriteCommand(os.Stdout, a)
		} else {
			printAnnotation(os.Stdout, a)
		}
	})
	if err != nil {
		return err
	}
	if !c.Quiet {
		matcher.WriteSummary(os.Stderr, tally)
	}
	if tally.Failed() {
		return errFail
	}
	return nil
}

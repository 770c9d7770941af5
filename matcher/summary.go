package matcher

import (
	"fmt"
	"io"
	"sort"

	"charm.land/lipgloss/v2"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Red).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Yellow)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Blue)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Green).Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

func levelStyle(level string) lipgloss.Style {
	switch level {
	case LevelError:
		return errorStyle
	case LevelWarn:
		return warnStyle
	case LevelNotice:
		return noticeStyle
	default:
		return faintStyle
	}
}

// WriteSummary prints the run tally for a terminal reader: counts per
// level, counts per matcher and the verdict.
func WriteSummary(w io.Writer, tally *Tally) {
	fmt.Fprintln(w, headerStyle.Render("summary"))
	fmt.Fprintf(w, "%s %d file(s) scanned, %d annotation(s), %d ignored\n",
		faintStyle.Render("-"), tally.Files, tally.Total(), tally.Ignored)
	for _, level := range []string{LevelError, LevelWarn, LevelNotice} {
		n := tally.ByLevel[level]
		if n == 0 {
			continue
		}
		fmt.Fprintf(w, "%s %s: %d\n", faintStyle.Render("-"), levelStyle(level).Render(level), n)
	}
	for _, name := range sortedKeys(tally.ByMatcher) {
		fmt.Fprintf(w, "%s %s: %d\n", faintStyle.Render("-"), name, tally.ByMatcher[name])
	}
	if tally.Failed() {
		fmt.Fprintln(w, errorStyle.Render("failed"))
	} else {
		fmt.Fprintln(w, okStyle.Render("passed"))
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

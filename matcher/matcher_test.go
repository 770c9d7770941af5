package matcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const config = `
limit: 10
matchers:
  - name: junit
    reports:
      - "reports/**/*.xml"
    item: //testcase[failure or skipped]
    default: error
    levels:
      - level: ignore
        when: skipped
      - level: warning
        when: "failure/@type = 'flaky'"
    fields:
      message: normalize(failure)
      title: concat(../@name, ' / ', @name)
      file: "@file"
      startLine: match(failure, '.*line (\d+)')
`

func writeReports(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	sub := filepath.Join(dir, "reports", "unit")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "alpha.xml"), []byte(report), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunner(t *testing.T) {
	runner, err := Load(strings.NewReader(config))
	if err != nil {
		t.Fatal(err)
	}
	dir := writeReports(t)
	var got []Annotation
	tally, err := runner.Run(dir, func(a Annotation) {
		got = append(got, a)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d annotations, want 1", len(got))
	}
	a := got[0]
	if a.Level != LevelError {
		t.Errorf("level is %s, want error", a.Level)
	}
	if a.Title != "alpha / b" {
		t.Errorf("title is %q, want alpha / b", a.Title)
	}
	if a.File != "b_test.go" {
		t.Errorf("file is %q, want b_test.go", a.File)
	}
	if a.StartLine != 12 {
		t.Errorf("start line is %d, want 12", a.StartLine)
	}
	if !strings.Contains(a.Message, "expected 3 got 4") {
		t.Errorf("message is %q", a.Message)
	}
	if tally.Ignored != 1 {
		t.Errorf("got %d ignored, want the skipped testcase", tally.Ignored)
	}
	if !tally.Failed() {
		t.Error("run with an error annotation must fail")
	}
	if tally.ByMatcher["junit"] != 1 {
		t.Errorf("got %d for junit, want 1", tally.ByMatcher["junit"])
	}
}

func TestRunnerLimit(t *testing.T) {
	cfg := strings.Replace(config, "limit: 10", "limit: 1", 1)
	cfg = strings.Replace(cfg, "item: //testcase[failure or skipped]", "item: //testcase", 1)
	cfg = strings.Replace(cfg, "      - level: ignore\n        when: skipped\n", "", 1)
	runner, err := Load(strings.NewReader(cfg))
	if err != nil {
		t.Fatal(err)
	}
	dir := writeReports(t)
	var count int
	tally, err := runner.Run(dir, func(Annotation) {
		count++
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("got %d annotations, want the cap of 1", count)
	}
	if tally.Total() != 1 {
		t.Errorf("tally is %d, want 1", tally.Total())
	}
}

func TestRunnerBadFile(t *testing.T) {
	runner, err := Load(strings.NewReader(config))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	sub := filepath.Join(dir, "reports")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "broken.xml"), []byte("<oops"), 0644); err != nil {
		t.Fatal(err)
	}
	var got []Annotation
	if _, err := runner.Run(dir, func(a Annotation) {
		got = append(got, a)
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Level != LevelError {
		t.Fatalf("got %d annotations, want one error for the broken file", len(got))
	}
	if got[0].Title != "report extraction failed" {
		t.Errorf("title is %q", got[0].Title)
	}
}

func TestConfigErrors(t *testing.T) {
	configs := map[string]string{
		"bad expression": `
matchers:
  - name: junit
    reports: ["*.xml"]
    item: "//testcase["
`,
		"bad level": `
matchers:
  - name: junit
    reports: ["*.xml"]
    item: //testcase
    levels:
      - level: fatal
        when: failure
`,
		"missing item": `
matchers:
  - name: junit
    reports: ["*.xml"]
`,
		"no matchers": `limit: 5`,
	}
	for name, cfg := range configs {
		if _, err := Load(strings.NewReader(cfg)); err == nil {
			t.Errorf("%s: expected error, got none", name)
		}
	}
	_, err := Load(strings.NewReader(`
matchers:
  - name: junit
    reports: ["*.xml"]
    item: "//testcase[@name = "
`))
	if err == nil || !strings.Contains(err.Error(), "//testcase[@name = ") {
		t.Errorf("error %v does not carry the offending expression", err)
	}
}

func TestGradeFirstWins(t *testing.T) {
	cfg := `
matchers:
  - name: junit
    reports: ["**/*.xml"]
    item: //testcase
    default: notice
    levels:
      - level: warning
        when: failure
      - level: error
        when: failure
`
	runner, err := Load(strings.NewReader(cfg))
	if err != nil {
		t.Fatal(err)
	}
	dir := writeReports(t)
	levels := make(map[string]int)
	if _, err := runner.Run(dir, func(a Annotation) {
		levels[a.Level]++
	}); err != nil {
		t.Fatal(err)
	}
	if levels[LevelWarn] != 1 {
		t.Errorf("got %d warnings, want the first matching rule to win", levels[LevelWarn])
	}
	if levels[LevelError] != 0 {
		t.Errorf("got %d errors, want 0", levels[LevelError])
	}
	if levels[LevelNotice] != 2 {
		t.Errorf("got %d notices, want the default level for the rest", levels[LevelNotice])
	}
}

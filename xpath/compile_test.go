package xpath

import (
	"testing"
)

func TestCompile(t *testing.T) {
	exprs := []string{
		"/",
		"/testsuites",
		"//testcase",
		"//testcase[failure]/@name",
		"child::testsuite/child::testcase",
		"ancestor-or-self::*[1]",
		"preceding-sibling::testcase[last()]",
		"self::node()",
		"..",
		"./@time",
		"text()",
		"comment()",
		"processing-instruction()",
		"processing-instruction('style')",
		"namespace::*",
		"count(//testcase) > 2",
		"1 + 2 * 3 - 4 div 5 mod 6",
		"-price * 2",
		"a | b | c",
		"(//a)[1]",
		"id('x y')/title",
		"$var/child::item",
		"//*[@id='t' or position() = last()]",
		"ns:item/ns:*",
		"string(.)",
		"concat('a', 'b', 'c')",
		"not(@skipped) and @time > 1",
		"substring('12345', 2, 3)",
	}
	for _, expr := range exprs {
		if _, err := CompileString(expr); err != nil {
			t.Errorf("%s: unexpected error: %s", expr, err)
		}
	}
}

func TestCompileInvalid(t *testing.T) {
	exprs := []string{
		"",
		"//",
		"a[",
		"a[]",
		"a]",
		"(a",
		"a/",
		"1 +",
		"@",
		"::a",
		"a::b",
		"$",
		"'unterminated",
		"f(a,)",
		"concat('a' 'b')",
		"a b",
		"!a",
	}
	for _, expr := range exprs {
		if _, err := CompileString(expr); err == nil {
			t.Errorf("%s: expected error, got none", expr)
		}
	}
}

func TestCompileRoundTrip(t *testing.T) {
	queries := []string{
		"/child::testsuites/child::testsuite",
		"descendant-or-self::node()/child::testcase",
		"child::testcase[child::failure]",
		"child::a[position() = 1]",
		"count(descendant::testcase) > 2",
		"concat('a', 'b')",
		"$limit + 1",
	}
	for _, src := range queries {
		q, err := CompileString(src)
		if err != nil {
			t.Errorf("%s: %s", src, err)
			continue
		}
		again, err := CompileString(q.String())
		if err != nil {
			t.Errorf("%s: re-compile %s: %s", src, q.String(), err)
			continue
		}
		if q.String() != again.String() {
			t.Errorf("%s: printed %s, re-printed %s", src, q.String(), again.String())
		}
	}
}

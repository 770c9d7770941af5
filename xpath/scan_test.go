package xpath

import (
	"strings"
	"testing"
)

func TestScanTokens(t *testing.T) {
	tests := []struct {
		input string
		want  []rune
	}{
		{
			input: "child::node()",
			want:  []rune{Name, opAxis, Name, begGrp, endGrp},
		},
		{
			input: "//testcase[@name='b']",
			want:  []rune{anyLevel, Name, begPred, attrNode, Name, opEq, Literal, endPred},
		},
		{
			input: "1 + 2.5 * .5",
			want:  []rune{Digit, opAdd, Digit, opMul, Digit},
		},
		{
			input: "$count div 2",
			want:  []rune{variable, opDiv, Digit},
		},
		{
			input: "a != b or c <= d",
			want:  []rune{Name, opNe, Name, opOr, Name, opLe, Name},
		},
		{
			input: "ns:item | ns:*",
			want:  []rune{Namespace, Name, opUnion, Namespace, Name},
		},
		{
			input: "../@id",
			want:  []rune{parentNode, currLevel, attrNode, Name},
		},
		{
			input: "concat('a', \"b\")",
			want:  []rune{Name, begGrp, Literal, opSeq, Literal, endGrp},
		},
	}
	for _, tt := range tests {
		scan := Scan(strings.NewReader(tt.input))
		var got []rune
		for {
			tok := scan.Scan()
			if tok.Type == EOF {
				break
			}
			got = append(got, tok.Type)
		}
		if len(got) != len(tt.want) {
			t.Errorf("%s: got %d tokens, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: token %d is %d, want %d", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestScanAmbiguous(t *testing.T) {
	tests := []struct {
		input string
		at    int
		want  rune
	}{
		{input: "a * b", at: 1, want: opMul},
		{input: "child::*", at: 2, want: Name},
		{input: "* * *", at: 1, want: opMul},
		{input: "div div div", at: 1, want: opDiv},
		{input: "mod mod mod", at: 1, want: opMod},
		{input: "and and and", at: 1, want: opAnd},
		{input: "or or or", at: 1, want: opOr},
		{input: "@and", at: 1, want: Name},
		{input: "(div)", at: 1, want: Name},
		{input: "a[and]", at: 2, want: Name},
		{input: "f(mod)", at: 2, want: Name},
		{input: "3 mod 2", at: 1, want: opMod},
		{input: "$v * 2", at: 1, want: opMul},
		{input: "'x' and 'y'", at: 1, want: opAnd},
		{input: "a[1] * 2", at: 4, want: opMul},
		{input: "(a) or (b)", at: 3, want: opOr},
		{input: ". div 2", at: 1, want: opDiv},
	}
	for _, tt := range tests {
		scan := Scan(strings.NewReader(tt.input))
		var got Token
		for i := 0; i <= tt.at; i++ {
			got = scan.Scan()
		}
		if got.Type != tt.want {
			t.Errorf("%s: token %d is %s, want type %d", tt.input, tt.at, got, tt.want)
		}
	}
}

func TestScanLiteral(t *testing.T) {
	scan := Scan(strings.NewReader(`'it''s'`))
	tok := scan.Scan()
	if tok.Type != Literal || tok.Literal != "it" {
		t.Errorf("got %s, want literal(it)", tok)
	}
	scan = Scan(strings.NewReader(`'unterminated`))
	tok = scan.Scan()
	if tok.Type != Unterminated {
		t.Errorf("got %s, want unterminated", tok)
	}
}

func TestScanPosition(t *testing.T) {
	scan := Scan(strings.NewReader("a\n  b"))
	scan.Scan()
	tok := scan.Scan()
	if tok.Line != 2 || tok.Column != 3 {
		t.Errorf("got position %d:%d, want 2:3", tok.Line, tok.Column)
	}
}

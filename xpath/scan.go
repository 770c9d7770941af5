package xpath

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"
)

type Position struct {
	Line   int
	Column int
}

const (
	kwAnd = "and"
	kwOr  = "or"
	kwDiv = "div"
	kwMod = "mod"
)

const (
	EOF rune = -(1 + iota)
	Name
	Namespace // prefix:
	Literal
	Digit
	Invalid
	Unterminated
)

const (
	currNode = -(iota + 1000) // .
	parentNode                // ..
	attrNode                  // @
	variable                  // $name
	currLevel                 // /
	anyLevel                  // //
	begPred
	endPred
	begGrp
	endGrp
	opSeq  // ,
	opAxis // ::
	opAdd
	opSub
	opMul
	opDiv
	opMod
	opEq
	opNe
	opGt
	opGe
	opLt
	opLe
	opAnd
	opOr
	opUnion
)

type Token struct {
	Literal string
	Type    rune
	Position
}

func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "<eof>"
	case currNode:
		return "<current-node>"
	case parentNode:
		return "<parent-node>"
	case attrNode:
		return "<attribute>"
	case currLevel:
		return "<step>"
	case anyLevel:
		return "<any-step>"
	case begPred:
		return "<begin-predicate>"
	case endPred:
		return "<end-predicate>"
	case begGrp:
		return "<begin-group>"
	case endGrp:
		return "<end-group>"
	case opSeq:
		return "<sequence>"
	case opAxis:
		return "<axis>"
	case opAdd:
		return "<add>"
	case opSub:
		return "<subtract>"
	case opMul:
		return "<multiply>"
	case opDiv:
		return "<divide>"
	case opMod:
		return "<modulo>"
	case opEq:
		return "<equal>"
	case opNe:
		return "<not-equal>"
	case opGt:
		return "<greater-than>"
	case opGe:
		return "<greater-eq>"
	case opLt:
		return "<lesser-than>"
	case opLe:
		return "<lesser-eq>"
	case opAnd:
		return "<and>"
	case opOr:
		return "<or>"
	case opUnion:
		return "<union>"
	case Digit:
		return fmt.Sprintf("number(%s)", t.Literal)
	case Name:
		return fmt.Sprintf("name(%s)", t.Literal)
	case Namespace:
		return fmt.Sprintf("namespace(%s)", t.Literal)
	case Literal:
		return fmt.Sprintf("literal(%s)", t.Literal)
	case variable:
		return fmt.Sprintf("variable(%s)", t.Literal)
	case Unterminated:
		return "<unterminated>"
	case Invalid:
		return fmt.Sprintf("invalid(%s)", t.Literal)
	default:
		return "<unknown>"
	}
}

type Scanner struct {
	input *bufio.Reader
	char  rune
	str   bytes.Buffer

	Position
	old Position

	prev rune
}

func Scan(r io.Reader) *Scanner {
	scan := &Scanner{
		input: bufio.NewReader(r),
	}
	scan.Line = 1
	scan.read()
	return scan
}

func (s *Scanner) Scan() Token {
	s.skipBlank()
	var tok Token
	tok.Position = s.Position
	if s.done() {
		tok.Type = EOF
		return tok
	}
	s.str.Reset()
	switch {
	case s.char == apos || s.char == quote:
		s.scanLiteral(&tok)
	case unicode.IsDigit(s.char):
		s.scanNumber(&tok)
	case s.char == dot && unicode.IsDigit(s.peek()):
		s.scanNumber(&tok)
	case s.char == dollar:
		s.scanVariable(&tok)
	case unicode.IsLetter(s.char) || s.char == underscore:
		s.scanIdent(&tok)
	default:
		s.scanOperator(&tok)
	}
	if tok.Type != EOF {
		s.prev = tok.Type
	}
	return tok
}

// expectOperator reports whether the next ambiguous lexeme must be read as
// an operator: true when the previous token can end an operand. This is the
// disambiguation rule that makes `*` a multiply sign in `a * b` but a
// wildcard in `child::*`, and `div` an operator only after an operand.
func (s *Scanner) expectOperator() bool {
	switch s.prev {
	case Name, Digit, Literal, variable, endGrp, endPred, currNode, parentNode:
		return true
	default:
		return false
	}
}

func (s *Scanner) scanLiteral(tok *Token) {
	quoted := s.char
	s.read()
	for !s.done() && s.char != quoted {
		s.write()
		s.read()
	}
	tok.Type = Literal
	tok.Literal = s.str.String()
	if s.char != quoted {
		tok.Type = Unterminated
		return
	}
	s.read()
}

func (s *Scanner) scanNumber(tok *Token) {
	for !s.done() && unicode.IsDigit(s.char) {
		s.write()
		s.read()
	}
	if s.char == dot {
		s.write()
		s.read()
		for !s.done() && unicode.IsDigit(s.char) {
			s.write()
			s.read()
		}
	}
	tok.Type = Digit
	tok.Literal = s.str.String()
}

func (s *Scanner) scanVariable(tok *Token) {
	s.read()
	for !s.done() && isNameRune(s.char) {
		s.write()
		s.read()
	}
	tok.Type = variable
	tok.Literal = s.str.String()
	if tok.Literal == "" {
		tok.Type = Invalid
		tok.Literal = "$"
	}
}

func (s *Scanner) scanIdent(tok *Token) {
	operator := s.expectOperator()
	for !s.done() && isNameRune(s.char) {
		s.write()
		s.read()
	}
	tok.Literal = s.str.String()
	if operator {
		switch tok.Literal {
		case kwAnd:
			tok.Type = opAnd
			return
		case kwOr:
			tok.Type = opOr
			return
		case kwDiv:
			tok.Type = opDiv
			return
		case kwMod:
			tok.Type = opMod
			return
		}
	}
	tok.Type = Name
	if s.char == colon && s.peek() != colon {
		// qualified name: the prefix is its own token, the local part
		// (or the wildcard) follows
		s.read()
		tok.Type = Namespace
	}
}

func (s *Scanner) scanOperator(tok *Token) {
	switch k := s.peek(); s.char {
	case plus:
		tok.Type = opAdd
	case minus:
		tok.Type = opSub
	case star:
		if s.expectOperator() {
			tok.Type = opMul
		} else {
			tok.Type = Name
			tok.Literal = "*"
		}
	case pipe:
		tok.Type = opUnion
	case equal:
		tok.Type = opEq
	case bang:
		tok.Type = Invalid
		tok.Literal = "!"
		if k == equal {
			s.read()
			tok.Type = opNe
		}
	case langle:
		tok.Type = opLt
		if k == equal {
			s.read()
			tok.Type = opLe
		}
	case rangle:
		tok.Type = opGt
		if k == equal {
			s.read()
			tok.Type = opGe
		}
	case slash:
		tok.Type = currLevel
		if k == slash {
			s.read()
			tok.Type = anyLevel
		}
	case dot:
		tok.Type = currNode
		if k == dot {
			s.read()
			tok.Type = parentNode
		}
	case arobase:
		tok.Type = attrNode
	case colon:
		tok.Type = Invalid
		tok.Literal = ":"
		if k == colon {
			s.read()
			tok.Type = opAxis
		}
	case comma:
		tok.Type = opSeq
	case lparen:
		tok.Type = begGrp
	case rparen:
		tok.Type = endGrp
	case lsquare:
		tok.Type = begPred
	case rsquare:
		tok.Type = endPred
	default:
		tok.Type = Invalid
		tok.Literal = string(s.char)
	}
	s.read()
}

func (s *Scanner) skipBlank() {
	for !s.done() && unicode.IsSpace(s.char) {
		s.read()
	}
}

func (s *Scanner) write() {
	s.str.WriteRune(s.char)
}

func (s *Scanner) read() {
	s.old = s.Position
	if s.char == '\n' {
		s.Column = 0
		s.Line++
	}
	s.Column++
	c, _, err := s.input.ReadRune()
	if err != nil {
		s.char = utf8.RuneError
	} else {
		s.char = c
	}
}

func (s *Scanner) peek() rune {
	defer s.input.UnreadRune()
	c, _, _ := s.input.ReadRune()
	return c
}

func (s *Scanner) done() bool {
	return s.char == utf8.RuneError
}

func isNameRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) ||
		c == minus || c == underscore || c == dot
}

const (
	langle     = '<'
	rangle     = '>'
	lsquare    = '['
	rsquare    = ']'
	lparen     = '('
	rparen     = ')'
	colon      = ':'
	quote      = '"'
	apos       = '\''
	slash      = '/'
	bang       = '!'
	equal      = '='
	minus      = '-'
	underscore = '_'
	dot        = '.'
	arobase    = '@'
	comma      = ','
	plus       = '+'
	star       = '*'
	pipe       = '|'
	dollar     = '$'
)

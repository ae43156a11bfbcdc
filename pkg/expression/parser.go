package expression

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokTrue
	tokFalse
	tokNull
	tokVariable // {a.b.c}
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokEq
	tokNe
	tokLt
	tokLe
	tokGt
	tokGe
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) errf(pos int, format string, args ...any) *ParseError {
	return &ParseError{Expr: l.input, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]
	switch {
	case ch == '+':
		l.pos++
		return token{kind: tokPlus, pos: start}, nil
	case ch == '-':
		l.pos++
		return token{kind: tokMinus, pos: start}, nil
	case ch == '*':
		l.pos++
		return token{kind: tokStar, pos: start}, nil
	case ch == '/':
		l.pos++
		return token{kind: tokSlash, pos: start}, nil
	case ch == '%':
		l.pos++
		return token{kind: tokPercent, pos: start}, nil
	case ch == '(':
		l.pos++
		return token{kind: tokLParen, pos: start}, nil
	case ch == ')':
		l.pos++
		return token{kind: tokRParen, pos: start}, nil
	case ch == ',':
		l.pos++
		return token{kind: tokComma, pos: start}, nil
	case ch == '=':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
		}
		return token{kind: tokEq, pos: start}, nil
	case ch == '!':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return token{kind: tokNe, pos: start}, nil
		}
		return token{}, l.errf(start, "unexpected character %q", '!')
	case ch == '<':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return token{kind: tokLe, pos: start}, nil
		}
		return token{kind: tokLt, pos: start}, nil
	case ch == '>':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return token{kind: tokGe, pos: start}, nil
		}
		return token{kind: tokGt, pos: start}, nil
	case ch == '{':
		return l.lexVariable()
	case ch == '"' || ch == '\'':
		return l.lexString(ch)
	case ch >= '0' && ch <= '9':
		return l.lexNumber()
	case isIdentStart(ch):
		return l.lexIdent()
	}
	return token{}, l.errf(start, "unexpected character %q", ch)
}

func (l *lexer) lexVariable() (token, error) {
	start := l.pos
	l.pos++ // consume '{'
	depthStart := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '}' {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{}, l.errf(start, "unterminated variable reference")
	}
	body := strings.TrimSpace(l.input[depthStart:l.pos])
	l.pos++ // consume '}'
	if body == "" {
		return token{}, l.errf(start, "empty variable reference")
	}
	for _, part := range strings.Split(body, ".") {
		if !isValidIdent(part) {
			return token{}, l.errf(start, "invalid variable path %q", body)
		}
	}
	return token{kind: tokVariable, text: body, pos: start}, nil
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			next := l.input[l.pos+1]
			switch next {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\', '"', '\'':
				sb.WriteByte(next)
			default:
				return token{}, l.errf(l.pos, "invalid escape sequence \\%c", next)
			}
			l.pos += 2
			continue
		}
		if ch == quote {
			l.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return token{}, l.errf(start, "unterminated string literal")
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '.') {
		l.pos++
	}
	text := l.input[start:l.pos]
	if strings.Count(text, ".") > 1 {
		return token{}, l.errf(start, "malformed number %q", text)
	}
	return token{kind: tokNumber, text: text, pos: start}, nil
}

func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	text := l.input[start:l.pos]
	switch text {
	case "and":
		return token{kind: tokAnd, pos: start}, nil
	case "or":
		return token{kind: tokOr, pos: start}, nil
	case "not":
		return token{kind: tokNot, pos: start}, nil
	case "true":
		return token{kind: tokTrue, pos: start}, nil
	case "false":
		return token{kind: tokFalse, pos: start}, nil
	case "null":
		return token{kind: tokNull, pos: start}, nil
	}
	return token{kind: tokIdent, text: text, pos: start}, nil
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }
func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
func isIdentChar(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }

func isValidIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// parser is a recursive-descent parser with a nesting-depth guard.
type parser struct {
	lex      *lexer
	tok      token
	maxDepth int
	depth    int
}

// Parse parses source text into an expression tree. maxDepth bounds
// grammar nesting; values below 1 fall back to DefaultMaxDepth.
func Parse(input string, maxDepth int) (Node, error) {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	p := &parser{lex: &lexer{input: input}, maxDepth: maxDepth}
	if err := p.advance(); err != nil {
		return nil, err
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.lex.errf(p.tok.pos, "unexpected trailing input")
	}
	return node, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return p.lex.errf(p.tok.pos, "expression nesting exceeds %d levels", p.maxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) parseOr() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.tok.kind == tokNot {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: OpNot, Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	var op BinaryOp
	switch p.tok.kind {
	case tokEq:
		op = OpEq
	case tokNe:
		op = OpNe
	case tokLt:
		op = OpLt
	case tokLe:
		op = OpLe
	case tokGt:
		op = OpGt
	case tokGe:
		op = OpGe
	default:
		return left, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokPlus || p.tok.kind == tokMinus {
		op := OpAdd
		if p.tok.kind == tokMinus {
			op = OpSub
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokStar || p.tok.kind == tokSlash || p.tok.kind == tokPercent {
		var op BinaryOp
		switch p.tok.kind {
		case tokStar:
			op = OpMul
		case tokSlash:
			op = OpDiv
		default:
			op = OpMod
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.tok.kind == tokMinus {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: OpNeg, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	tok := p.tok
	switch tok.kind {
	case tokNumber:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if strings.Contains(tok.text, ".") {
			f, err := strconv.ParseFloat(tok.text, 64)
			if err != nil {
				return nil, p.lex.errf(tok.pos, "malformed number %q", tok.text)
			}
			return &Literal{Value: f}, nil
		}
		i, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, p.lex.errf(tok.pos, "malformed number %q", tok.text)
		}
		return &Literal{Value: i}, nil

	case tokString:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: tok.text}, nil

	case tokTrue:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: true}, nil

	case tokFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: false}, nil

	case tokNull:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: nil}, nil

	case tokVariable:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Variable{Path: strings.Split(tok.text, ".")}, nil

	case tokIdent:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokLParen {
			return nil, p.lex.errf(tok.pos, "bare identifier %q; variables are written {%s}", tok.text, tok.text)
		}
		return p.parseCallArgs(tok.text)

	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.lex.errf(p.tok.pos, "expected closing parenthesis")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, p.lex.errf(tok.pos, "unexpected token")
}

func (p *parser) parseCallArgs(name string) (Node, error) {
	// caller verified '('
	if err := p.advance(); err != nil {
		return nil, err
	}
	call := &Call{Name: name}
	if p.tok.kind == tokRParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		switch p.tok.kind {
		case tokComma:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokRParen:
			if err := p.advance(); err != nil {
				return nil, err
			}
			return call, nil
		default:
			return nil, p.lex.errf(p.tok.pos, "expected ',' or ')' in argument list")
		}
	}
}

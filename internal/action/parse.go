package action

import (
	"fmt"
	"strconv"
	"strings"
)

// Call grammar:
//
//	call    := ident '(' [arg {',' arg} [',']] ')'
//	arg     := [ident '='] literal
//	literal := string | int | float | 'True' | 'False' | 'None' | '[' [literal {',' literal} [',']] ']'
//
// Strings use single, double or triple quotes with backslash escapes.
// Positional arguments must precede keyword arguments. Nothing is evaluated.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokInt
	tokFloat
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	val  any
	pos  int
}

type literal struct {
	val any // string, int64, float64, bool, nil or []literal
	pos int
}

type argument struct {
	name string // empty for positional
	lit  literal
	pos  int
}

type rawCall struct {
	name string
	args []argument
}

func parseError(src string, pos int, format string, args ...any) *ParseError {
	return &ParseError{Input: src, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for {
		for i < len(src) && isSpace(src[i]) {
			i++
		}
		if i >= len(src) {
			return append(toks, token{kind: tokEOF, pos: i}), nil
		}
		c := src[i]
		switch {
		case strings.IndexByte("()[],=", c) >= 0:
			toks = append(toks, token{kind: tokPunct, text: string(c), pos: i})
			i++
		case c == '\'' || c == '"':
			tok, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
		case isDigit(c) || ((c == '-' || c == '+' || c == '.') && i+1 < len(src) && (isDigit(src[i+1]) || src[i+1] == '.')):
			tok, next, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			return nil, parseError(src, i, "unexpected character %q", c)
		}
	}
}

func lexString(src string, start int) (token, int, error) {
	q := src[start]
	delim := string(q)
	if strings.HasPrefix(src[start:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	i := start + len(delim)
	var b strings.Builder
	for i < len(src) {
		if strings.HasPrefix(src[i:], delim) {
			return token{kind: tokString, val: b.String(), text: src[start : i+len(delim)], pos: start}, i + len(delim), nil
		}
		c := src[i]
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(src) {
			break
		}
		switch e := src[i+1]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"':
			b.WriteByte(e)
		case '\n':
			// line continuation
		default:
			b.WriteByte('\\')
			b.WriteByte(e)
		}
		i += 2
	}
	return token{}, 0, parseError(src, start, "unterminated string")
}

func lexNumber(src string, start int) (token, int, error) {
	i := start
	if src[i] == '-' || src[i] == '+' {
		i++
	}
	isFloat := false
scan:
	for i < len(src) {
		c := src[i]
		switch {
		case isDigit(c):
		case c == '.' && !isFloat:
			isFloat = true
		case (c == 'e' || c == 'E') && i+1 < len(src):
			isFloat = true
			if src[i+1] == '-' || src[i+1] == '+' {
				i++
			}
		default:
			break scan
		}
		i++
	}
	text := src[start:i]
	if i < len(src) && isIdentPart(src[i]) {
		return token{}, 0, parseError(src, start, "malformed number %q", src[start:i+1])
	}
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, 0, parseError(src, start, "malformed number %q", text)
		}
		return token{kind: tokFloat, text: text, val: f, pos: start}, i, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, 0, parseError(src, start, "malformed integer %q", text)
	}
	return token{kind: tokInt, text: text, val: n, pos: start}, i, nil
}

type parser struct {
	src  string
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) advance() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) isPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) expect(s string) error {
	t := p.advance()
	if t.kind != tokPunct || t.text != s {
		return parseError(p.src, t.pos, "expected %q, found %s", s, describe(t))
	}
	return nil
}

// parseCall parses call text into a name and its raw arguments.
func parseCall(src string) (rawCall, error) {
	toks, err := tokenize(src)
	if err != nil {
		return rawCall{}, err
	}
	p := &parser{src: src, toks: toks}

	name := p.advance()
	if name.kind != tokIdent {
		return rawCall{}, parseError(src, name.pos, "expected action name, found %s", describe(name))
	}
	if err := p.expect("("); err != nil {
		return rawCall{}, err
	}

	call := rawCall{name: name.text}
	seenKeyword := false
	for !p.isPunct(")") {
		arg, err := p.parseArg()
		if err != nil {
			return rawCall{}, err
		}
		if arg.name == "" && seenKeyword {
			return rawCall{}, parseError(src, arg.pos, "positional argument follows keyword argument")
		}
		seenKeyword = seenKeyword || arg.name != ""
		call.args = append(call.args, arg)

		if p.isPunct(",") {
			p.advance()
			continue
		}
		if !p.isPunct(")") {
			t := p.peek()
			return rawCall{}, parseError(src, t.pos, "expected ',' or ')', found %s", describe(t))
		}
	}
	p.advance()

	if t := p.peek(); t.kind != tokEOF {
		return rawCall{}, parseError(src, t.pos, "unexpected %s after call", describe(t))
	}
	return call, nil
}

func (p *parser) parseArg() (argument, error) {
	t := p.peek()
	if t.kind == tokIdent && p.toks[p.i+1].kind == tokPunct && p.toks[p.i+1].text == "=" {
		p.advance()
		p.advance()
		lit, err := p.parseLiteral()
		if err != nil {
			return argument{}, err
		}
		return argument{name: t.text, lit: lit, pos: t.pos}, nil
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return argument{}, err
	}
	return argument{lit: lit, pos: t.pos}, nil
}

func (p *parser) parseLiteral() (literal, error) {
	t := p.advance()
	switch t.kind {
	case tokString, tokInt, tokFloat:
		return literal{val: t.val, pos: t.pos}, nil
	case tokIdent:
		switch t.text {
		case "True":
			return literal{val: true, pos: t.pos}, nil
		case "False":
			return literal{val: false, pos: t.pos}, nil
		case "None":
			return literal{val: nil, pos: t.pos}, nil
		}
		return literal{}, parseError(p.src, t.pos, "undeclared name %q", t.text)
	case tokPunct:
		if t.text == "[" {
			var items []literal
			for !p.isPunct("]") {
				item, err := p.parseLiteral()
				if err != nil {
					return literal{}, err
				}
				items = append(items, item)
				if p.isPunct(",") {
					p.advance()
					continue
				}
				if !p.isPunct("]") {
					n := p.peek()
					return literal{}, parseError(p.src, n.pos, "expected ',' or ']', found %s", describe(n))
				}
			}
			p.advance()
			if items == nil {
				items = []literal{}
			}
			return literal{val: items, pos: t.pos}, nil
		}
	}
	return literal{}, parseError(p.src, t.pos, "expected a value, found %s", describe(t))
}

// parseLiteralText parses a standalone literal such as a parameter default.
func parseLiteralText(src string) (literal, error) {
	toks, err := tokenize(src)
	if err != nil {
		return literal{}, err
	}
	p := &parser{src: src, toks: toks}
	lit, err := p.parseLiteral()
	if err != nil {
		return literal{}, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return literal{}, parseError(src, t.pos, "unexpected %s after value", describe(t))
	}
	return lit, nil
}

func describe(t token) string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return "string " + t.text
	default:
		return strconv.Quote(t.text)
	}
}

func isSpace(c byte) bool      { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }

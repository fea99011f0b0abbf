package filter

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseError describes a malformed filter expression. Parsing happens only
// at profile load time, so a ParseError always fails the whole load.
type ParseError struct {
	Expr    string
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid filter %q at position %d: %s", e.Expr, e.Pos, e.Message)
}

// Parse parses a filter expression into its AST. The empty (or blank)
// expression parses to All.
func Parse(expr string) (Expr, error) {
	if strings.TrimSpace(expr) == "" {
		return All{}, nil
	}

	p := &parser{input: expr}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, p.errorf("unexpected trailing input")
	}
	return node, nil
}

// parser is a recursive-descent parser over the raw expression string.
// Grammar, lowest precedence first:
//
//	or      := and { "or" and }
//	and     := unary { "and" unary }
//	unary   := "not" unary | primary
//	primary := "(" or ")" | name "(" arg ")"
type parser struct {
	input string
	pos   int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Expr: p.input, Pos: p.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

// peekWord returns the identifier starting at the current position without
// consuming it. Identifiers are letters, digits and underscores.
func (p *parser) peekWord() string {
	i := p.pos
	for i < len(p.input) && isWordByte(p.input[i]) {
		i++
	}
	return p.input[p.pos:i]
}

func isWordByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.peekWord() != "or" {
			return left, nil
		}
		p.pos += len("or")
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.peekWord() != "and" {
			return left, nil
		}
		p.pos += len("and")
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	p.skipSpace()
	if p.peekWord() == "not" {
		p.pos += len("not")
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, p.errorf("unexpected end of expression")
	}

	if p.input[p.pos] == '(' {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, p.errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	}

	name := p.peekWord()
	if name == "" {
		return nil, p.errorf("expected filter function or parenthesized expression")
	}
	p.pos += len(name)

	p.skipSpace()
	if p.pos >= len(p.input) || p.input[p.pos] != '(' {
		return nil, p.errorf("expected '(' after %q", name)
	}
	p.pos++

	// The argument is raw text up to the closing parenthesis. Arguments are
	// plain names or substrings; nested parentheses inside arguments are not
	// part of the language.
	end := strings.IndexByte(p.input[p.pos:], ')')
	if end < 0 {
		return nil, p.errorf("unterminated argument for %q", name)
	}
	arg := p.input[p.pos : p.pos+end]
	p.pos += end + 1

	return p.makeFunc(name, arg)
}

func (p *parser) makeFunc(name, arg string) (Expr, error) {
	switch name {
	case "test":
		if arg == "" {
			return nil, p.errorf("test() requires an argument")
		}
		return TestName{Substr: arg}, nil
	case "package":
		if arg == "" {
			return nil, p.errorf("package() requires an argument")
		}
		return Package{Name: arg}, nil
	case "tag":
		if arg == "" {
			return nil, p.errorf("tag() requires an argument")
		}
		return Tag{Name: arg}, nil
	case "all":
		if arg != "" {
			return nil, p.errorf("all() takes no argument")
		}
		return All{}, nil
	default:
		return nil, p.errorf("unknown filter function %q", name)
	}
}

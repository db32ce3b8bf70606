package markers

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	errs "github.com/matzehuels/stacklock/pkg/errors"
)

// Variables names every environment attribute a marker may reference.
var Variables = map[string]bool{
	"os_name":                        true,
	"sys_platform":                   true,
	"platform_machine":               true,
	"platform_python_implementation": true,
	"platform_release":               true,
	"platform_system":                true,
	"platform_version":               true,
	"python_version":                 true,
	"python_full_version":            true,
	"implementation_name":            true,
	"implementation_version":         true,
	"extra":                          true,
}

// Marker is a parsed environment marker. A nil *Marker is valid and always
// evaluates to true.
type Marker struct {
	root node
}

type node interface {
	eval(env Environment) bool
	write(b *strings.Builder, parent string)
}

type boolNode struct {
	op          string // "and" or "or"
	left, right node
}

type compareNode struct {
	lhs, rhs operand
	op       string
}

type operand struct {
	variable string
	literal  string
}

func (o operand) value(env Environment) string {
	if o.variable != "" {
		return env[o.variable]
	}
	return o.literal
}

var parsed, _ = lru.New[string, *Marker](1024)

// Parse parses a PEP 508 marker expression such as
// `python_version >= "3.6" and sys_platform != "win32"`.
// An empty string yields a nil marker. Results are memoized.
func Parse(s string) (*Marker, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if m, ok := parsed.Get(s); ok {
		return m, nil
	}
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{input: s, toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	m := &Marker{root: root}
	parsed.Add(s, m)
	return m, nil
}

// MustParse is like [Parse] but panics on error.
func MustParse(s string) *Marker {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

type parser struct {
	input string
	toks  []token
	pos   int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return errs.Parse("invalid marker %q: %s", p.input, fmt.Sprintf(format, args...))
}

func (p *parser) keyword(word string) bool {
	t := p.peek()
	if t.kind == tokIdent && t.text == word {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = &boolNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAtom() (node, error) {
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, p.errorf("missing closing parenthesis")
		}
		return inner, nil
	}
	lhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if lhs.variable == "" && rhs.variable == "" {
		return nil, p.errorf("comparison of two literals")
	}
	return &compareNode{lhs: lhs, rhs: rhs, op: op}, nil
}

func (p *parser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return operand{literal: t.text}, nil
	case tokIdent:
		if !Variables[t.text] {
			return operand{}, p.errorf("unknown variable %q", t.text)
		}
		return operand{variable: t.text}, nil
	case tokEOF:
		return operand{}, p.errorf("unexpected end of marker")
	}
	return operand{}, p.errorf("unexpected %q at %d", t.text, t.pos)
}

func (p *parser) parseOperator() (string, error) {
	t := p.next()
	switch {
	case t.kind == tokOp:
		return t.text, nil
	case t.kind == tokIdent && t.text == "in":
		return "in", nil
	case t.kind == tokIdent && t.text == "not":
		if p.keyword("in") {
			return "not in", nil
		}
	}
	return "", p.errorf("expected comparison operator at %d", t.pos)
}

// String renders the marker in canonical form with single-quoted literals.
// A nil marker renders as "".
func (m *Marker) String() string {
	if m == nil || m.root == nil {
		return ""
	}
	var b strings.Builder
	m.root.write(&b, "")
	return b.String()
}

func (n *boolNode) write(b *strings.Builder, parent string) {
	paren := parent == "and" && n.op == "or"
	if paren {
		b.WriteByte('(')
	}
	n.left.write(b, n.op)
	b.WriteString(" " + n.op + " ")
	n.right.write(b, n.op)
	if paren {
		b.WriteByte(')')
	}
}

func (n *compareNode) write(b *strings.Builder, _ string) {
	n.lhs.write(b)
	b.WriteString(" " + n.op + " ")
	n.rhs.write(b)
}

func (o operand) write(b *strings.Builder) {
	if o.variable != "" {
		b.WriteString(o.variable)
		return
	}
	quote := "'"
	if strings.Contains(o.literal, "'") {
		quote = `"`
	}
	b.WriteString(quote + o.literal + quote)
}

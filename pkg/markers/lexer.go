package markers

import (
	"strings"
	"unicode"

	errs "github.com/matzehuels/stacklock/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

var comparisonOps = []string{"===", "==", "!=", "<=", ">=", "~=", "<", ">"}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(input[i+1:], c)
			if end < 0 {
				return nil, errs.Parse("invalid marker %q: unterminated string at %d", input, i)
			}
			toks = append(toks, token{tokString, input[i+1 : i+1+end], i})
			i += end + 2
		case isIdentByte(c):
			start := i
			for i < len(input) && (isIdentByte(input[i]) || input[i] == '.') {
				i++
			}
			toks = append(toks, token{tokIdent, input[start:i], start})
		default:
			op := ""
			for _, candidate := range comparisonOps {
				if strings.HasPrefix(input[i:], candidate) {
					op = candidate
					break
				}
			}
			if op == "" {
				return nil, errs.Parse("invalid marker %q: unexpected %q at %d", input, c, i)
			}
			toks = append(toks, token{tokOp, op, i})
			i += len(op)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(input)}), nil
}

func isIdentByte(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

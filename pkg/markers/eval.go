package markers

import (
	"regexp"
	"strings"

	"github.com/matzehuels/stacklock/pkg/pep440"
)

// Evaluate reports whether the marker holds in env. Variables missing from
// env evaluate as the empty string, so `extra == "socks"` is false unless
// env binds extra.
func (m *Marker) Evaluate(env Environment) bool {
	if m == nil || m.root == nil {
		return true
	}
	return m.root.eval(env)
}

// EvaluateAny reports whether the marker holds in at least one environment.
// An empty list means no environment constraint, which always holds.
func (m *Marker) EvaluateAny(envs []Environment) bool {
	if len(envs) == 0 {
		return true
	}
	for _, env := range envs {
		if m.Evaluate(env) {
			return true
		}
	}
	return false
}

func (n *boolNode) eval(env Environment) bool {
	if n.op == "and" {
		return n.left.eval(env) && n.right.eval(env)
	}
	return n.left.eval(env) || n.right.eval(env)
}

func (n *compareNode) eval(env Environment) bool {
	lhs, rhs := n.lhs.value(env), n.rhs.value(env)
	if n.lhs.variable == "extra" || n.rhs.variable == "extra" {
		lhs, rhs = normalizeExtra(lhs), normalizeExtra(rhs)
	}
	switch n.op {
	case "in":
		return strings.Contains(rhs, lhs)
	case "not in":
		return !strings.Contains(rhs, lhs)
	}
	if spec, err := pep440.ParseSpecifier(n.op + rhs); err == nil {
		if v, err := pep440.Parse(lhs); err == nil {
			return spec.Allows(v)
		}
	}
	switch n.op {
	case "==", "===":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case "<":
		return lhs < rhs
	case "<=":
		return lhs <= rhs
	case ">":
		return lhs > rhs
	case ">=":
		return lhs >= rhs
	}
	return false
}

var extraRunRE = regexp.MustCompile(`[-_.]+`)

func normalizeExtra(s string) string {
	return extraRunRE.ReplaceAllString(strings.ToLower(s), "-")
}

// Extras returns the extra names the marker compares against, normalized
// and in order of appearance.
func (m *Marker) Extras() []string {
	if m == nil || m.root == nil {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	var walk func(node)
	walk = func(n node) {
		switch n := n.(type) {
		case *boolNode:
			walk(n.left)
			walk(n.right)
		case *compareNode:
			var lit string
			switch {
			case n.lhs.variable == "extra":
				lit = n.rhs.literal
			case n.rhs.variable == "extra":
				lit = n.lhs.literal
			default:
				return
			}
			if name := normalizeExtra(lit); !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	walk(m.root)
	return out
}

// WithoutExtras returns the marker with every extra comparison removed. The
// result describes the environments in which the requirement applies once the
// gating extra has been requested. It is nil when nothing else remains.
func (m *Marker) WithoutExtras() *Marker {
	if m == nil || m.root == nil {
		return nil
	}
	root := stripExtras(m.root)
	if root == nil {
		return nil
	}
	return &Marker{root: root}
}

// stripExtras returns nil for a subtree that is unconditionally true once
// extras are ignored.
func stripExtras(n node) node {
	switch n := n.(type) {
	case *compareNode:
		if n.lhs.variable == "extra" || n.rhs.variable == "extra" {
			return nil
		}
		return n
	case *boolNode:
		left, right := stripExtras(n.left), stripExtras(n.right)
		switch {
		case left == nil && right == nil:
			return nil
		case n.op == "or" && (left == nil || right == nil):
			return nil
		case left == nil:
			return right
		case right == nil:
			return left
		}
		return &boolNode{op: n.op, left: left, right: right}
	}
	return n
}

// And returns the conjunction of a and b. Either may be nil.
func And(a, b *Marker) *Marker {
	switch {
	case a == nil || a.root == nil:
		return b
	case b == nil || b.root == nil:
		return a
	case a.String() == b.String():
		return a
	}
	return &Marker{root: &boolNode{op: "and", left: a.root, right: b.root}}
}

// Or returns the disjunction of a and b. A nil operand is unconditionally
// true, so the result is nil as well.
func Or(a, b *Marker) *Marker {
	switch {
	case a == nil || a.root == nil, b == nil || b.root == nil:
		return nil
	case a.String() == b.String():
		return a
	}
	return &Marker{root: &boolNode{op: "or", left: a.root, right: b.root}}
}

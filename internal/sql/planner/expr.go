package planner

import (
	"slices"

	"github.com/tuannm99/novaplan/internal/sql/parser"
)

// Predicate is a boolean condition kept in token form.
type Predicate struct {
	Tokens []parser.Token
}

func NewPredicate(tokens []parser.Token) Predicate {
	return Predicate{Tokens: slices.Clone(tokens)}
}

// ParsePredicate tokenizes a condition such as "users.id = 3".
func ParsePredicate(text string) (Predicate, error) {
	toks, err := parser.Tokenize(text)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Tokens: toks}, nil
}

func (p Predicate) Empty() bool { return len(p.Tokens) == 0 }

func (p Predicate) String() string { return parser.Join(p.Tokens) }

func (p Predicate) Clone() Predicate { return Predicate{Tokens: slices.Clone(p.Tokens)} }

// HasOr reports a top-level OR.
func (p Predicate) HasOr() bool {
	depth := 0
	for _, t := range p.Tokens {
		switch {
		case t.Kind == parser.TokSymbol && t.Text == "(":
			depth++
		case t.Kind == parser.TokSymbol && t.Text == ")":
			depth--
		case depth == 0 && t.IsKeyword("OR"):
			return true
		}
	}
	return false
}

// Conjuncts splits on top-level AND. A predicate with a top-level OR is
// returned whole.
func (p Predicate) Conjuncts() []Predicate {
	if p.Empty() {
		return nil
	}
	if p.HasOr() {
		return []Predicate{p}
	}

	var (
		out   []Predicate
		cur   []parser.Token
		depth int
	)
	for _, t := range p.Tokens {
		switch {
		case t.Kind == parser.TokSymbol && t.Text == "(":
			depth++
		case t.Kind == parser.TokSymbol && t.Text == ")":
			depth--
		case depth == 0 && t.IsKeyword("AND"):
			if len(cur) > 0 {
				out = append(out, Predicate{Tokens: cur})
			}
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		out = append(out, Predicate{Tokens: cur})
	}
	return out
}

// And joins predicates with AND. Parts holding a top-level OR are
// parenthesized.
func And(preds ...Predicate) Predicate {
	var out []parser.Token
	for _, p := range preds {
		if p.Empty() {
			continue
		}
		if len(out) > 0 {
			out = append(out, parser.Token{Kind: parser.TokKeyword, Text: "AND"})
		}
		if p.HasOr() {
			out = append(out, parser.Token{Kind: parser.TokSymbol, Text: "("})
			out = append(out, p.Tokens...)
			out = append(out, parser.Token{Kind: parser.TokSymbol, Text: ")"})
			continue
		}
		out = append(out, p.Tokens...)
	}
	return Predicate{Tokens: out}
}

// Attrs lists the attribute references in order of first appearance.
func (p Predicate) Attrs() []string {
	var out []string
	for _, t := range p.Tokens {
		if t.Kind == parser.TokIdent && !slices.Contains(out, t.Text) {
			out = append(out, t.Text)
		}
	}
	return out
}

// Tables lists the distinct table qualifiers, sorted.
func (p Predicate) Tables() []string {
	var out []string
	for _, t := range p.Tokens {
		if q, _ := t.Qualifier(); q != "" && !slices.Contains(out, q) {
			out = append(out, q)
		}
	}
	slices.Sort(out)
	return out
}

// Qualify rewrites unqualified attributes through fn. fn returns the
// qualified name, or "" to leave the attribute as is.
func (p Predicate) Qualify(fn func(col string) string) Predicate {
	out := slices.Clone(p.Tokens)
	for i, t := range out {
		if t.Kind != parser.TokIdent {
			continue
		}
		if q, col := t.Qualifier(); q == "" {
			if full := fn(col); full != "" {
				out[i].Text = full
			}
		}
	}
	return Predicate{Tokens: out}
}

// Comparison is a single "lhs op rhs" condition.
type Comparison struct {
	Left  []parser.Token
	Op    string
	Right []parser.Token
}

// Comparison parses p as one comparison. It fails for conjunctions and
// for conditions without a comparison operator.
func (p Predicate) Comparison() (Comparison, bool) {
	for _, t := range p.Tokens {
		if t.Kind == parser.TokKeyword {
			return Comparison{}, false
		}
	}
	for i, t := range p.Tokens {
		if t.Kind == parser.TokOperator && parser.IsComparison(t.Text) {
			return Comparison{Left: p.Tokens[:i], Op: t.Text, Right: p.Tokens[i+1:]}, i > 0 && i < len(p.Tokens)-1
		}
	}
	return Comparison{}, false
}

func firstAttr(tokens []parser.Token) string {
	for _, t := range tokens {
		if t.Kind == parser.TokIdent {
			return t.Text
		}
	}
	return ""
}

// Attr returns the attribute the comparison selects on: the first
// attribute of the left side, else of the right side.
func (c Comparison) Attr() string {
	if a := firstAttr(c.Left); a != "" {
		return a
	}
	return firstAttr(c.Right)
}

// AttrEquality reports "A = B" between two bare attribute references and
// returns them.
func (c Comparison) AttrEquality() (string, string, bool) {
	if c.Op != "=" || len(c.Left) != 1 || len(c.Right) != 1 {
		return "", "", false
	}
	l, r := c.Left[0], c.Right[0]
	if l.Kind != parser.TokIdent || r.Kind != parser.TokIdent {
		return "", "", false
	}
	return l.Text, r.Text, true
}

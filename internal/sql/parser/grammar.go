package parser

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
)

//go:embed grammar.dfa
var defaultGrammarText string

var placeholderRe = regexp.MustCompile(`^<[A-Z_]+>$`)

var tableAttrRe = regexp.MustCompile(`^\w+\(\w+\)$`)

// matchers for typed placeholders. Keyword tokens never match a placeholder.
var matchers = map[string]func(Token) bool{
	"<ATTR>": func(t Token) bool { return t.Kind == TokIdent },
	"<WORD>": func(t Token) bool { return t.Kind == TokIdent && !strings.Contains(t.Text, ".") },
	"<X>": func(t Token) bool {
		return t.Kind == TokIdent || t.Kind == TokNumber || t.Kind == TokString
	},
	"<INT>": func(t Token) bool {
		return t.Kind == TokNumber && !strings.Contains(t.Text, ".")
	},
	"<CO>":         func(t Token) bool { return t.Kind == TokOperator && IsComparison(t.Text) },
	"<MO>":         func(t Token) bool { return t.Kind == TokOperator && IsArithmetic(t.Text) },
	"<TABLE_ATTR>": func(t Token) bool { return t.Kind != TokKeyword && tableAttrRe.MatchString(t.Text) },
}

type Transition struct {
	Pattern string
	Next    string
}

func (tr Transition) matches(t Token) bool {
	if m, ok := matchers[tr.Pattern]; ok {
		return m(t)
	}
	return t.Text == tr.Pattern
}

// Grammar is a deterministic automaton over tokens. Transitions of a state
// are tried in declaration order and the first match wins.
type Grammar struct {
	Start       string
	Final       map[string]struct{}
	Transitions map[string][]Transition
}

// LoadGrammar reads the text form:
//
//	START <state>
//	FINAL <state> <state> ...
//	<state> <pattern> <next> [<pattern> <next> ...]
//
// Blank lines and lines starting with '#' are ignored. A state may span
// several lines; later lines append lower-priority transitions.
func LoadGrammar(r io.Reader) (*Grammar, error) {
	g := &Grammar{
		Final:       make(map[string]struct{}),
		Transitions: make(map[string][]Transition),
	}

	sc := bufio.NewScanner(r)
	lineNo := 0
	header := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch header {
		case 0:
			if fields[0] != "START" || len(fields) != 2 {
				return nil, fmt.Errorf("grammar line %d: want START <state>", lineNo)
			}
			g.Start = fields[1]
			header++
			continue
		case 1:
			if fields[0] != "FINAL" || len(fields) < 2 {
				return nil, fmt.Errorf("grammar line %d: want FINAL <state> ...", lineNo)
			}
			for _, s := range fields[1:] {
				g.Final[s] = struct{}{}
			}
			header++
			continue
		}

		if len(fields)%2 != 1 {
			return nil, fmt.Errorf("grammar line %d: unpaired transition for state %s", lineNo, fields[0])
		}
		state := fields[0]
		for i := 1; i < len(fields); i += 2 {
			pat := fields[i]
			if placeholderRe.MatchString(pat) {
				if _, ok := matchers[pat]; !ok {
					return nil, fmt.Errorf("grammar line %d: unknown placeholder %s", lineNo, pat)
				}
			}
			g.Transitions[state] = append(g.Transitions[state], Transition{Pattern: pat, Next: fields[i+1]})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read grammar: %w", err)
	}
	if header < 2 {
		return nil, fmt.Errorf("grammar: missing START or FINAL line")
	}
	if _, ok := g.Transitions[g.Start]; !ok {
		return nil, fmt.Errorf("grammar: start state %s has no transitions", g.Start)
	}
	return g, nil
}

func LoadGrammarFile(path string) (*Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grammar: %w", err)
	}
	defer f.Close()
	return LoadGrammar(f)
}

var defaultGrammar = sync.OnceValues(func() (*Grammar, error) {
	return LoadGrammar(strings.NewReader(defaultGrammarText))
})

// DefaultGrammar returns the grammar compiled into the binary.
func DefaultGrammar() *Grammar {
	g, err := defaultGrammar()
	if err != nil {
		panic(fmt.Sprintf("parser: embedded grammar: %v", err))
	}
	return g
}

// Validate runs tokens through the automaton and returns the normalized
// statement text.
func (g *Grammar) Validate(tokens []Token) (string, error) {
	state := g.Start
	for i, tok := range tokens {
		next := ""
		for _, tr := range g.Transitions[state] {
			if tr.matches(tok) {
				next = tr.Next
				break
			}
		}
		if next == "" {
			return "", newSyntaxError(tokens, i)
		}
		state = next
	}
	if _, ok := g.Final[state]; !ok {
		return "", ErrIncompleteQuery
	}
	return Join(tokens), nil
}

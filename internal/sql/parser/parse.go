package parser

import (
	"strings"
)

// Query is a validated, alias-resolved statement.
type Query struct {
	Kind       StatementKind
	Normalized string
	Tokens     []Token
	Clauses    *Clauses
	Aliases    AliasMap
}

type Parser struct {
	grammar *Grammar
}

// New returns a parser over g, or over the embedded grammar when g is nil.
func New(g *Grammar) *Parser {
	if g == nil {
		g = DefaultGrammar()
	}
	return &Parser{grammar: g}
}

func (p *Parser) Grammar() *Grammar { return p.grammar }

// Parse parses a single statement. One trailing ';' is optional.
func (p *Parser) Parse(sql string) (*Query, error) {
	s := strings.TrimSpace(sql)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return nil, ErrEmptyStatement
	}

	tokens, err := Tokenize(s)
	if err != nil {
		return nil, err
	}
	normalized, err := p.grammar.Validate(tokens)
	if err != nil {
		return nil, err
	}

	clauses, err := Extract(tokens)
	if err != nil {
		return nil, err
	}
	aliases, err := ResolveAliases(clauses)
	if err != nil {
		return nil, err
	}

	return &Query{
		Kind:       clauses.Kind,
		Normalized: normalized,
		Tokens:     tokens,
		Clauses:    clauses,
		Aliases:    aliases,
	}, nil
}

// Parse parses sql with the embedded grammar.
func Parse(sql string) (*Query, error) {
	return New(nil).Parse(sql)
}

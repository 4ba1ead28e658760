package parser

import (
	"fmt"
	"slices"
	"strings"
)

// AliasMap maps an alias to the table it names.
type AliasMap map[string]string

// ResolveAliases builds the alias map from FROM and rewrites every
// alias-qualified reference in SELECT, FROM, WHERE and ORDER BY to its
// table name. Statements without FROM are left untouched.
func ResolveAliases(c *Clauses) (AliasMap, error) {
	aliases := make(AliasMap)
	if len(c.From) == 0 || c.Kind == StmtUpdate {
		return aliases, nil
	}

	tables := make(map[string]struct{}, len(c.From))
	for _, f := range c.From {
		tables[f.Table] = struct{}{}
	}
	for _, f := range c.From {
		if f.Alias == "" {
			continue
		}
		if prev, ok := aliases[f.Alias]; ok && prev != f.Table {
			return nil, fmt.Errorf("%w: %s names both %s and %s", ErrDuplicateAlias, f.Alias, prev, f.Table)
		}
		aliases[f.Alias] = f.Table
	}

	r := &aliasRewriter{aliases: aliases, tables: tables, undefined: make(map[string]struct{})}

	for i, attr := range c.Select {
		c.Select[i] = r.rewriteText(attr)
	}
	for i := range c.From {
		c.From[i].On = r.rewrite(c.From[i].On)
	}
	c.Where = r.rewrite(c.Where)
	if c.Order != nil {
		c.Order.Attr = r.rewriteText(c.Order.Attr)
	}

	if len(r.undefined) > 0 {
		names := make([]string, 0, len(r.undefined))
		for n := range r.undefined {
			names = append(names, n)
		}
		slices.Sort(names)
		return nil, &UndefinedAliasError{Aliases: names}
	}
	return aliases, nil
}

type aliasRewriter struct {
	aliases   AliasMap
	tables    map[string]struct{}
	undefined map[string]struct{}
}

func (r *aliasRewriter) rewrite(tokens []Token) []Token {
	if len(tokens) == 0 {
		return tokens
	}
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		out[i] = t
		q, col := t.Qualifier()
		if q == "" {
			continue
		}
		if table, ok := r.aliases[q]; ok {
			out[i].Text = table + "." + col
			continue
		}
		if _, ok := r.tables[q]; !ok {
			r.undefined[q] = struct{}{}
		}
	}
	return out
}

func (r *aliasRewriter) rewriteText(s string) string {
	q, col, ok := strings.Cut(s, ".")
	if !ok || s == "*" {
		return s
	}
	return Join(r.rewrite([]Token{{Kind: TokIdent, Text: q + "." + col}}))
}

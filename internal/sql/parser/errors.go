package parser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyStatement     = errors.New("novaplan: empty statement")
	ErrUnterminatedString = errors.New("novaplan: unterminated string literal")
	ErrIncompleteQuery    = errors.New("novaplan: query is incomplete")
	ErrDuplicateAlias     = errors.New("novaplan: duplicate alias")
	ErrInvalidClause      = errors.New("novaplan: invalid clause")
)

// SyntaxError reports the first token the grammar rejected. Window holds up
// to two tokens on each side of it.
type SyntaxError struct {
	Pos    int
	Token  string
	Window []string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("novaplan: syntax error at token %d %q near [%s]", e.Pos, e.Token, strings.Join(e.Window, " "))
}

func newSyntaxError(tokens []Token, pos int) *SyntaxError {
	lo := max(0, pos-2)
	hi := min(len(tokens), pos+3)
	w := make([]string, 0, hi-lo)
	for _, t := range tokens[lo:hi] {
		w = append(w, t.Text)
	}
	return &SyntaxError{Pos: pos, Token: tokens[pos].Text, Window: w}
}

// UndefinedAliasError lists every qualifier that is neither a declared
// alias nor a table named in FROM.
type UndefinedAliasError struct {
	Aliases []string
}

func (e *UndefinedAliasError) Error() string {
	return fmt.Sprintf("novaplan: undefined alias: %s", strings.Join(e.Aliases, ", "))
}

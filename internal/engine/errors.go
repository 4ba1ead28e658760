package engine

import (
	"context"
	"errors"

	"github.com/tuannm99/novaplan/internal/catalog"
	"github.com/tuannm99/novaplan/internal/sql/parser"
)

// ErrorKind is the client-facing class of a planning failure.
type ErrorKind string

const (
	KindSyntax             ErrorKind = "syntax"
	KindIncomplete         ErrorKind = "incomplete"
	KindUnterminatedString ErrorKind = "unterminated_string"
	KindUndefinedAlias     ErrorKind = "undefined_alias"
	KindDuplicateAlias     ErrorKind = "duplicate_alias"
	KindInvalidClause      ErrorKind = "invalid_clause"
	KindEmptyStatement     ErrorKind = "empty_statement"
	KindStatsNotFound      ErrorKind = "stats_not_found"
	KindCanceled           ErrorKind = "canceled"
	KindBadRequest         ErrorKind = "bad_request"
	KindInternal           ErrorKind = "internal"
)

// Classify maps an error returned by the engine to its kind.
func Classify(err error) ErrorKind {
	var (
		syn   *parser.SyntaxError
		alias *parser.UndefinedAliasError
	)
	switch {
	case errors.As(err, &syn):
		return KindSyntax
	case errors.As(err, &alias):
		return KindUndefinedAlias
	case errors.Is(err, parser.ErrIncompleteQuery):
		return KindIncomplete
	case errors.Is(err, parser.ErrUnterminatedString):
		return KindUnterminatedString
	case errors.Is(err, parser.ErrDuplicateAlias):
		return KindDuplicateAlias
	case errors.Is(err, parser.ErrInvalidClause):
		return KindInvalidClause
	case errors.Is(err, parser.ErrEmptyStatement):
		return KindEmptyStatement
	case errors.Is(err, catalog.ErrStatsNotFound):
		return KindStatsNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// UserError reports whether err is caused by the statement or the
// statistics rather than by a fault in the planner.
func UserError(err error) bool {
	k := Classify(err)
	return k != KindInternal && k != KindCanceled
}

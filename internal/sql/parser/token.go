package parser

import (
	"regexp"
	"strings"
	"unicode"
)

type TokenKind uint8

const (
	TokOther TokenKind = iota
	TokKeyword
	TokIdent
	TokNumber
	TokString
	TokOperator
	TokSymbol
)

func (k TokenKind) String() string {
	switch k {
	case TokKeyword:
		return "keyword"
	case TokIdent:
		return "ident"
	case TokNumber:
		return "number"
	case TokString:
		return "string"
	case TokOperator:
		return "operator"
	case TokSymbol:
		return "symbol"
	default:
		return "other"
	}
}

// Token is one classified lexeme.
type Token struct {
	Kind TokenKind
	Text string
}

var keywords = map[string]struct{}{
	"SELECT": {}, "DELETE": {}, "FROM": {}, "WHERE": {}, "JOIN": {}, "NATURAL": {},
	"ON": {}, "ORDER": {}, "BY": {}, "LIMIT": {}, "UPDATE": {}, "SET": {}, "AS": {},
	"DESC": {}, "ASC": {}, "CREATE": {}, "INDEX": {}, "USING": {}, "AND": {}, "OR": {},
}

var (
	comparisonOps = []string{"<=", ">=", "<>", "<", ">", "="}
	arithmeticOps = []string{"+", "-", "*", "/"}
)

var (
	identRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	numberRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
)

// IsKeyword reports whether s (any case) is a reserved word.
func IsKeyword(s string) bool {
	_, ok := keywords[strings.ToUpper(s)]
	return ok
}

func IsComparison(s string) bool {
	for _, op := range comparisonOps {
		if s == op {
			return true
		}
	}
	return false
}

func IsArithmetic(s string) bool {
	for _, op := range arithmeticOps {
		if s == op {
			return true
		}
	}
	return false
}

func isSymbol(c byte) bool {
	return c == ',' || c == '(' || c == ')'
}

func isOperatorByte(c byte) bool {
	switch c {
	case '<', '>', '=', '+', '-', '*', '/':
		return true
	}
	return false
}

// Tokenize splits a statement into tokens. Keywords are upper-cased,
// everything else keeps its original spelling.
func Tokenize(sql string) ([]Token, error) {
	var (
		out []Token
		buf strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, newToken(buf.String()))
			buf.Reset()
		}
	}

	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c < 0x80 && unicode.IsSpace(rune(c)):
			flush()
			i++
		case isSymbol(c):
			flush()
			out = append(out, Token{Kind: TokSymbol, Text: string(c)})
			i++
		case i+1 < len(sql) && IsComparison(sql[i:i+2]):
			flush()
			out = append(out, Token{Kind: TokOperator, Text: sql[i : i+2]})
			i += 2
		case isOperatorByte(c):
			flush()
			out = append(out, Token{Kind: TokOperator, Text: string(c)})
			i++
		case c == '"':
			flush()
			end := strings.IndexByte(sql[i+1:], '"')
			if end < 0 {
				return nil, ErrUnterminatedString
			}
			out = append(out, Token{Kind: TokString, Text: sql[i : i+end+2]})
			i += end + 2
		default:
			buf.WriteByte(c)
			i++
		}
	}
	flush()
	return out, nil
}

func newToken(text string) Token {
	if IsKeyword(text) {
		return Token{Kind: TokKeyword, Text: strings.ToUpper(text)}
	}
	switch {
	case identRe.MatchString(text):
		return Token{Kind: TokIdent, Text: text}
	case numberRe.MatchString(text):
		return Token{Kind: TokNumber, Text: text}
	default:
		return Token{Kind: TokOther, Text: text}
	}
}

// Qualifier splits an identifier into its table qualifier and column.
// Unqualified identifiers return an empty qualifier.
func (t Token) Qualifier() (string, string) {
	if t.Kind != TokIdent {
		return "", t.Text
	}
	q, col, ok := strings.Cut(t.Text, ".")
	if !ok {
		return "", t.Text
	}
	return q, col
}

func (t Token) IsKeyword(kw string) bool {
	return t.Kind == TokKeyword && t.Text == kw
}

// Join renders tokens separated by single spaces.
func Join(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

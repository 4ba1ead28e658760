package parser

import (
	"fmt"
	"strconv"
	"strings"
)

type StatementKind uint8

const (
	StmtSelect StatementKind = iota
	StmtUpdate
	StmtDelete
	StmtCreateIndex
)

func (k StatementKind) String() string {
	switch k {
	case StmtSelect:
		return "SELECT"
	case StmtUpdate:
		return "UPDATE"
	case StmtDelete:
		return "DELETE"
	case StmtCreateIndex:
		return "CREATE INDEX"
	default:
		return "UNKNOWN"
	}
}

// Connector joins a FROM term to the terms before it.
type Connector uint8

const (
	ConnNone Connector = iota
	ConnComma
	ConnJoin
	ConnNatural
)

func (c Connector) String() string {
	switch c {
	case ConnComma:
		return ","
	case ConnJoin:
		return "JOIN"
	case ConnNatural:
		return "NATURAL JOIN"
	default:
		return ""
	}
}

// FromTerm is one table of the FROM list. The first term has ConnNone.
type FromTerm struct {
	Connector Connector
	Table     string
	Alias     string
	On        []Token
}

type OrderBy struct {
	Attr string
	Desc bool
}

func (o OrderBy) Direction() string {
	if o.Desc {
		return "DESC"
	}
	return "ASC"
}

type IndexDef struct {
	Table  string
	Column string
	Method string
}

// Clauses holds the top-level clause values of one statement.
type Clauses struct {
	Kind StatementKind

	Select []string
	Update string
	From   []FromTerm
	Set    []Token
	Where  []Token
	Order  *OrderBy
	Limit  int // -1 when absent
	Index  *IndexDef
}

// Star reports a SELECT * projection.
func (c *Clauses) Star() bool {
	return len(c.Select) == 1 && c.Select[0] == "*"
}

// Tables returns the FROM table names, or the UPDATE target.
func (c *Clauses) Tables() []string {
	if c.Kind == StmtUpdate {
		return []string{c.Update}
	}
	out := make([]string, 0, len(c.From))
	for _, f := range c.From {
		out = append(out, f.Table)
	}
	return out
}

type clauseKey int

const (
	clSelect clauseKey = iota
	clUpdate
	clDelete
	clFrom
	clSet
	clWhere
	clOrderBy
	clLimit
	numClauses
)

// clauseOrder is the declared order clause keywords are looked up in.
var clauseOrder = [numClauses]string{"SELECT", "UPDATE", "DELETE", "FROM", "SET", "WHERE", "ORDER BY", "LIMIT"}

// findClause returns the index of the first keyword token starting a
// clause, and how many tokens the keyword spans.
func findClause(tokens []Token, key clauseKey) (int, int) {
	kw := clauseOrder[key]
	if key == clOrderBy {
		for i := 0; i+1 < len(tokens); i++ {
			if tokens[i].IsKeyword("ORDER") && tokens[i+1].IsKeyword("BY") {
				return i, 2
			}
		}
		return -1, 0
	}
	for i, t := range tokens {
		if t.IsKeyword(kw) {
			return i, 1
		}
	}
	return -1, 0
}

// Extract splits a validated token sequence into clause values. Each clause
// runs up to the next present clause keyword in declared order.
func Extract(tokens []Token) (*Clauses, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyStatement
	}
	if tokens[0].IsKeyword("CREATE") {
		return extractCreateIndex(tokens)
	}

	var (
		pos  [numClauses]int
		span [numClauses]int
	)
	for k := clauseKey(0); k < numClauses; k++ {
		pos[k], span[k] = findClause(tokens, k)
	}

	values := make(map[clauseKey][]Token, numClauses)
	for k := clauseKey(0); k < numClauses; k++ {
		if pos[k] < 0 {
			continue
		}
		start := pos[k] + span[k]
		end := len(tokens)
		for j := k + 1; j < numClauses; j++ {
			if pos[j] >= 0 {
				end = pos[j]
				break
			}
		}
		if end < start {
			return nil, fmt.Errorf("%w: clause %s out of order", ErrInvalidClause, clauseOrder[k])
		}
		values[k] = tokens[start:end]
	}

	c := &Clauses{Limit: -1}
	switch {
	case pos[clSelect] >= 0:
		c.Kind = StmtSelect
	case pos[clUpdate] >= 0:
		c.Kind = StmtUpdate
	case pos[clDelete] >= 0:
		c.Kind = StmtDelete
	default:
		return nil, fmt.Errorf("%w: unsupported statement starting with %q", ErrInvalidClause, tokens[0].Text)
	}

	if v, ok := values[clSelect]; ok {
		c.Select = splitSelect(v)
		if len(c.Select) == 0 {
			return nil, fmt.Errorf("%w: empty SELECT list", ErrInvalidClause)
		}
	}
	if v, ok := values[clUpdate]; ok {
		if len(v) != 1 {
			return nil, fmt.Errorf("%w: UPDATE expects one table, got %q", ErrInvalidClause, Join(v))
		}
		c.Update = v[0].Text
	}
	if v, ok := values[clFrom]; ok {
		from, err := splitFrom(v)
		if err != nil {
			return nil, err
		}
		c.From = from
	}
	if c.Kind != StmtUpdate && len(c.From) == 0 {
		return nil, fmt.Errorf("%w: %s without FROM", ErrInvalidClause, c.Kind)
	}
	if v, ok := values[clSet]; ok {
		c.Set = v
	}
	if v, ok := values[clWhere]; ok && len(v) > 0 {
		c.Where = v
	}
	if v, ok := values[clOrderBy]; ok {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty ORDER BY", ErrInvalidClause)
		}
		o := &OrderBy{Attr: v[0].Text}
		if len(v) > 1 && v[1].IsKeyword("DESC") {
			o.Desc = true
		}
		c.Order = o
	}
	if v, ok := values[clLimit]; ok {
		if len(v) != 1 {
			return nil, fmt.Errorf("%w: LIMIT expects one integer, got %q", ErrInvalidClause, Join(v))
		}
		n, err := strconv.Atoi(v[0].Text)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid LIMIT %q", ErrInvalidClause, v[0].Text)
		}
		c.Limit = n
	}
	return c, nil
}

func splitSelect(tokens []Token) []string {
	var out []string
	for _, part := range splitComma(tokens) {
		if len(part) > 0 {
			out = append(out, Join(part))
		}
	}
	return out
}

// splitComma splits on top-level ',' symbols.
func splitComma(tokens []Token) [][]Token {
	var (
		out   [][]Token
		cur   []Token
		depth int
	)
	for _, t := range tokens {
		if t.Kind == TokSymbol {
			switch t.Text {
			case "(":
				depth++
			case ")":
				depth--
			case ",":
				if depth == 0 {
					out = append(out, cur)
					cur = nil
					continue
				}
			}
		}
		cur = append(cur, t)
	}
	return append(out, cur)
}

// splitFrom turns "a AS x , b JOIN c ON ... NATURAL JOIN d" into terms.
func splitFrom(tokens []Token) ([]FromTerm, error) {
	var (
		terms []FromTerm
		cur   []Token
		conn  = ConnNone
	)
	emit := func(next Connector) error {
		t, err := parseFromTerm(conn, cur)
		if err != nil {
			return err
		}
		terms = append(terms, t)
		cur = nil
		conn = next
		return nil
	}

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.Kind == TokSymbol && t.Text == ",":
			if err := emit(ConnComma); err != nil {
				return nil, err
			}
		case t.IsKeyword("NATURAL") && i+1 < len(tokens) && tokens[i+1].IsKeyword("JOIN"):
			if err := emit(ConnNatural); err != nil {
				return nil, err
			}
			i++
		case t.IsKeyword("JOIN"):
			if err := emit(ConnJoin); err != nil {
				return nil, err
			}
		default:
			cur = append(cur, t)
		}
	}
	if err := emit(ConnNone); err != nil {
		return nil, err
	}
	return terms, nil
}

func parseFromTerm(conn Connector, tokens []Token) (FromTerm, error) {
	if len(tokens) == 0 {
		return FromTerm{}, fmt.Errorf("%w: missing table after %q", ErrInvalidClause, conn.String())
	}
	ft := FromTerm{Connector: conn, Table: tokens[0].Text}
	rest := tokens[1:]
	if len(rest) >= 2 && rest[0].IsKeyword("AS") {
		ft.Alias = rest[1].Text
		rest = rest[2:]
	}
	if len(rest) > 0 {
		if !rest[0].IsKeyword("ON") || conn != ConnJoin {
			return FromTerm{}, fmt.Errorf("%w: unexpected %q after table %s", ErrInvalidClause, Join(rest), ft.Table)
		}
		ft.On = rest[1:]
		if len(ft.On) == 0 {
			return FromTerm{}, fmt.Errorf("%w: empty ON condition for table %s", ErrInvalidClause, ft.Table)
		}
	}
	return ft, nil
}

// CREATE INDEX ON t ( c ) USING m, or CREATE INDEX ON t(c) USING m.
func extractCreateIndex(tokens []Token) (*Clauses, error) {
	bad := fmt.Errorf("%w: malformed CREATE INDEX %q", ErrInvalidClause, Join(tokens))
	if len(tokens) < 6 || !tokens[1].IsKeyword("INDEX") || !tokens[2].IsKeyword("ON") {
		return nil, bad
	}

	def := &IndexDef{}
	rest := tokens[3:]
	if tableAttrRe.MatchString(rest[0].Text) {
		tbl, col, _ := strings.Cut(strings.TrimSuffix(rest[0].Text, ")"), "(")
		def.Table, def.Column = tbl, col
		rest = rest[1:]
	} else {
		if len(rest) < 4 || rest[1].Text != "(" || rest[3].Text != ")" {
			return nil, bad
		}
		def.Table, def.Column = rest[0].Text, rest[2].Text
		rest = rest[4:]
	}
	if len(rest) != 2 || !rest[0].IsKeyword("USING") {
		return nil, bad
	}
	def.Method = strings.ToUpper(rest[1].Text)

	return &Clauses{
		Kind:  StmtCreateIndex,
		From:  []FromTerm{{Table: def.Table}},
		Limit: -1,
		Index: def,
	}, nil
}

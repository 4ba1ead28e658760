package planner

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tuannm99/novaplan/internal/sql/parser"
)

// SchemaSource lists the columns of a table. The builder uses it to
// qualify bare attributes and to find natural-join columns.
type SchemaSource interface {
	Columns(table string) ([]string, error)
}

type builder struct {
	tree    *Tree
	schemas SchemaSource
	tables  []string
	columns map[string][]string
}

// BuildTree turns a parsed statement into a plan tree:
//
//	ROOT -> LIMIT -> ORDER BY -> SELECT -> UPDATE -> WHERE... -> joins -> TABLE
//
// Absent clauses are skipped. schemas may be nil, in which case bare
// attributes stay unqualified and natural joins share no columns.
func BuildTree(q *parser.Query, schemas SchemaSource) (*Tree, error) {
	c := q.Clauses
	if c == nil {
		return nil, fmt.Errorf("planner: query has no clauses")
	}

	b := &builder{
		tree:    NewTree(),
		schemas: schemas,
		tables:  c.Tables(),
		columns: make(map[string][]string),
	}
	if err := b.loadColumns(); err != nil {
		return nil, err
	}

	t := b.tree
	top, err := b.stack(c)
	if err != nil {
		return nil, err
	}
	if c.Kind == parser.StmtCreateIndex || c.Kind == parser.StmtUpdate {
		return t, nil
	}

	from, err := b.joinChain(c.From)
	if err != nil {
		return nil, err
	}
	if err := t.AddChild(top, from); err != nil {
		return nil, err
	}
	return t, nil
}

// stack builds the unary nodes from ROOT down in the fixed vertical order
// and returns the node the FROM chain hangs under. CREATE INDEX and UPDATE
// are complete once it returns.
func (b *builder) stack(c *parser.Clauses) (NodeID, error) {
	top := b.tree.Root
	push := func(op Op) error {
		id, err := b.push(top, op)
		if err != nil {
			return err
		}
		top = id
		return nil
	}

	if c.Kind == parser.StmtCreateIndex {
		if err := push(CreateIndex{Table: c.Index.Table, Column: c.Index.Column, Method: c.Index.Method}); err != nil {
			return NoNode, err
		}
		return top, push(TableRef{Name: c.Index.Table})
	}

	if c.Limit >= 0 {
		if err := push(Limit{N: c.Limit}); err != nil {
			return NoNode, err
		}
	}
	if c.Order != nil {
		if err := push(OrderBy{Attr: b.qualify(c.Order.Attr), Desc: c.Order.Desc}); err != nil {
			return NoNode, err
		}
	}
	if c.Kind == parser.StmtSelect {
		proj := Projection{Star: c.Star()}
		if !proj.Star {
			proj.Attrs = make([]string, 0, len(c.Select))
			for _, a := range c.Select {
				proj.Attrs = append(proj.Attrs, b.qualify(a))
			}
		}
		if err := push(proj); err != nil {
			return NoNode, err
		}
	}
	if c.Kind == parser.StmtUpdate {
		if err := push(Update{Table: c.Update, Set: parser.Join(c.Set)}); err != nil {
			return NoNode, err
		}
	}

	where := b.qualifyPred(NewPredicate(c.Where))
	for _, conj := range where.Conjuncts() {
		if err := push(Filter{Pred: conj}); err != nil {
			return NoNode, err
		}
	}

	if c.Kind == parser.StmtUpdate {
		return top, push(TableRef{Name: c.Update})
	}
	return top, nil
}

// push attaches a fresh node under parent and returns it.
func (b *builder) push(parent NodeID, op Op) (NodeID, error) {
	id := b.tree.Add(op)
	if err := b.tree.AddChild(parent, id); err != nil {
		return NoNode, err
	}
	return id, nil
}

func (b *builder) loadColumns() error {
	if b.schemas == nil {
		return nil
	}
	for _, tbl := range b.tables {
		if _, ok := b.columns[tbl]; ok {
			continue
		}
		cols, err := b.schemas.Columns(tbl)
		if err != nil {
			return err
		}
		b.columns[tbl] = cols
	}
	return nil
}

// qualify prefixes a bare attribute with the first FROM table that has it.
func (b *builder) qualify(attr string) string {
	if attr == "*" || strings.Contains(attr, ".") {
		return attr
	}
	if full := b.owner(attr); full != "" {
		return full
	}
	return attr
}

func (b *builder) owner(col string) string {
	want := strings.ToLower(col)
	for _, tbl := range b.tables {
		for _, c := range b.columns[tbl] {
			if strings.ToLower(c) == want {
				return tbl + "." + col
			}
		}
	}
	return ""
}

func (b *builder) qualifyPred(p Predicate) Predicate {
	if b.schemas == nil || p.Empty() {
		return p
	}
	return p.Qualify(b.owner)
}

// joinChain builds a left-deep chain from the FROM terms.
func (b *builder) joinChain(terms []parser.FromTerm) (NodeID, error) {
	if len(terms) == 0 {
		return NoNode, fmt.Errorf("planner: empty FROM")
	}
	t := b.tree

	left := t.Add(TableRef{Name: terms[0].Table})
	leftCols := slices.Clone(b.columns[terms[0].Table])

	for _, term := range terms[1:] {
		right := t.Add(TableRef{Name: term.Table})
		rightCols := b.columns[term.Table]

		var op Op
		switch term.Connector {
		case parser.ConnNatural:
			op = NaturalJoin{Attrs: sharedColumns(leftCols, rightCols)}
		case parser.ConnJoin:
			op = Join{Cond: b.qualifyPred(NewPredicate(term.On))}
		default:
			op = Join{}
		}

		j := t.Add(op)
		if err := t.AddChild(j, left); err != nil {
			return NoNode, err
		}
		if err := t.AddChild(j, right); err != nil {
			return NoNode, err
		}
		left = j
		for _, c := range rightCols {
			if !containsFold(leftCols, c) {
				leftCols = append(leftCols, c)
			}
		}
	}
	return left, nil
}

// sharedColumns intersects two column lists, keeping left order.
func sharedColumns(left, right []string) []string {
	var out []string
	for _, c := range left {
		if containsFold(right, c) && !containsFold(out, c) {
			out = append(out, strings.ToLower(c))
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	return slices.ContainsFunc(list, func(x string) bool { return strings.EqualFold(x, s) })
}

package planner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaplan/internal/sql/parser"
)

type schemaMap map[string][]string

func (m schemaMap) Columns(table string) ([]string, error) {
	cols, ok := m[table]
	if !ok {
		return nil, fmt.Errorf("no table %s", table)
	}
	return cols, nil
}

var testSchemas = schemaMap{
	"users":    {"id", "name", "age"},
	"products": {"id", "price", "owner"},
	"orders":   {"id", "user_id", "total"},
}

func build(t *testing.T, sql string) *Tree {
	t.Helper()
	q, err := parser.Parse(sql)
	require.NoError(t, err)
	tree, err := BuildTree(q, testSchemas)
	require.NoError(t, err)
	require.NoError(t, tree.Validate())
	return tree
}

// chain follows single children from the root and returns the kinds met
// until the first node that does not have exactly one child.
func chain(tree *Tree) ([]NodeKind, NodeID) {
	var kinds []NodeKind
	cur := tree.Root
	for {
		kinds = append(kinds, tree.Kind(cur))
		if len(tree.Children(cur)) != 1 {
			return kinds, cur
		}
		cur = tree.Child(cur, 0)
	}
}

func TestBuildTree_EndToEndShape(t *testing.T) {
	tree := build(t, "SELECT u.id FROM users AS u JOIN products AS p ON p.id = u.id WHERE u.id > 1")

	kinds, last := chain(tree)
	assert.Equal(t, []NodeKind{KindRoot, KindSelect, KindWhere, KindJoin}, kinds)

	sel := tree.Op(tree.Child(tree.Root, 0)).(Projection)
	assert.Equal(t, []string{"users.id"}, sel.Attrs)

	where := tree.Op(tree.Parent(last)).(Filter)
	assert.Equal(t, "users.id > 1", where.Pred.String())

	join := tree.Op(last).(Join)
	assert.Equal(t, "products.id = users.id", join.Cond.String())
	assert.Equal(t, []string{"users", "products"}, tree.Tables(last))
}

func TestBuildTree_VerticalOrder(t *testing.T) {
	tree := build(t, "SELECT name FROM users WHERE age > 3 AND id = 2 ORDER BY name DESC LIMIT 7")

	kinds, last := chain(tree)
	assert.Equal(t, []NodeKind{KindRoot, KindLimit, KindOrderBy, KindSelect, KindWhere, KindWhere, KindTable}, kinds)
	assert.Equal(t, TableRef{Name: "users"}, tree.Op(last))

	lim := tree.Op(tree.Child(tree.Root, 0)).(Limit)
	assert.Equal(t, 7, lim.N)

	ob := tree.Op(tree.Child(tree.Child(tree.Root, 0), 0)).(OrderBy)
	assert.Equal(t, OrderBy{Attr: "users.name", Desc: true}, ob)

	w1 := tree.Op(tree.Parent(tree.Parent(last))).(Filter)
	w2 := tree.Op(tree.Parent(last)).(Filter)
	assert.Equal(t, "users.age > 3", w1.Pred.String())
	assert.Equal(t, "users.id = 2", w2.Pred.String())
}

func TestBuildTree_OrKeptWhole(t *testing.T) {
	tree := build(t, "SELECT name FROM users WHERE age > 3 AND id = 2 OR id = 5")
	kinds, _ := chain(tree)
	assert.Equal(t, []NodeKind{KindRoot, KindSelect, KindWhere, KindTable}, kinds)
}

func TestBuildTree_JoinChain(t *testing.T) {
	tree := build(t, "SELECT users.id FROM users , orders NATURAL JOIN products")

	_, top := chain(tree)
	nj, ok := tree.Op(top).(NaturalJoin)
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, nj.Attrs)

	cross := tree.Child(top, 0)
	j, ok := tree.Op(cross).(Join)
	require.True(t, ok)
	assert.True(t, j.Cross())
	assert.Equal(t, []string{"users", "orders"}, tree.Tables(cross))
	assert.Equal(t, []string{"users", "orders", "products"}, tree.Tables(top))
}

func TestBuildTree_TableCountMatchesFrom(t *testing.T) {
	tree := build(t, "SELECT users.id FROM users JOIN orders ON orders.user_id = users.id , products")
	assert.Len(t, tree.Collect(tree.Root, KindTable), 3)
	for _, id := range tree.Collect(tree.Root, KindJoin, KindNaturalJoin) {
		assert.Len(t, tree.Children(id), 2)
	}
	assert.Len(t, tree.Collect(tree.Root, KindRoot), 1)
}

func TestBuildTree_Star(t *testing.T) {
	tree := build(t, "SELECT * FROM users")
	sel := tree.Op(tree.Child(tree.Root, 0)).(Projection)
	assert.True(t, sel.Star)
}

func TestBuildTree_Update(t *testing.T) {
	tree := build(t, "UPDATE users SET age = age + 1 WHERE id = 3")
	kinds, _ := chain(tree)
	assert.Equal(t, []NodeKind{KindRoot, KindUpdate, KindWhere, KindTable}, kinds)

	upd := tree.Op(tree.Child(tree.Root, 0)).(Update)
	assert.Equal(t, Update{Table: "users", Set: "age = age + 1"}, upd)
}

func TestBuildTree_Delete(t *testing.T) {
	tree := build(t, "DELETE FROM users WHERE id = 3")
	kinds, _ := chain(tree)
	assert.Equal(t, []NodeKind{KindRoot, KindWhere, KindTable}, kinds)
}

func TestBuildTree_CreateIndex(t *testing.T) {
	tree := build(t, "CREATE INDEX ON users ( age ) USING hash")
	kinds, _ := chain(tree)
	assert.Equal(t, []NodeKind{KindRoot, KindCreateIndex, KindTable}, kinds)
	assert.Equal(t, CreateIndex{Table: "users", Column: "age", Method: "HASH"}, tree.Op(tree.Child(tree.Root, 0)))
}

func TestBuildTree_WithoutSchemas(t *testing.T) {
	q, err := parser.Parse("SELECT name FROM users NATURAL JOIN orders WHERE age > 1")
	require.NoError(t, err)
	tree, err := BuildTree(q, nil)
	require.NoError(t, err)

	_, top := chain(tree)
	assert.Empty(t, tree.Op(top).(NaturalJoin).Attrs)
	sel := tree.Op(tree.Child(tree.Root, 0)).(Projection)
	assert.Equal(t, []string{"name"}, sel.Attrs)
}

func TestBuildTree_UnknownTable(t *testing.T) {
	q, err := parser.Parse("SELECT a FROM nope")
	require.NoError(t, err)
	_, err = BuildTree(q, testSchemas)
	require.Error(t, err)
}

func TestBuilderPush_PropagatesAttachError(t *testing.T) {
	b := &builder{tree: NewTree()}

	id, err := b.push(b.tree.Root, Limit{N: 1})
	require.NoError(t, err)
	assert.Equal(t, b.tree.Root, b.tree.Parent(id))

	_, err = b.push(NodeID(999), Limit{N: 1})
	require.ErrorIs(t, err, ErrInvalidTree)
}

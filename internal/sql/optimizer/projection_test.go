package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaplan/internal/sql/planner"
)

func localProjection(t *planner.Tree, table string) []string {
	leaf := t.FindTable(t.Root, table)
	if p, ok := t.Op(t.Parent(leaf)).(planner.Projection); ok {
		return p.Attrs
	}
	return nil
}

func TestPushProjection_KeepsJoinAndFilterColumns(t *testing.T) {
	cat := testCatalog()
	o := newTestOptimizer(cat)
	tree := buildTree(t, cat, "SELECT users.name FROM users JOIN orders ON orders.user_id = users.id WHERE users.age > 3")

	changed, err := o.PushProjection(tree)
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, tree.Validate())

	assert.Equal(t, []string{"users.name", "users.age", "users.id"}, localProjection(tree, "users"))
	assert.Equal(t, []string{"orders.user_id"}, localProjection(tree, "orders"))

	// the global list is narrower than the union of local ones
	assert.Equal(t, planner.KindSelect, tree.Kind(tree.Child(tree.Root, 0)))

	changed, err = o.PushProjection(tree)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestPushProjection_DropsRedundantGlobal(t *testing.T) {
	cat := testCatalog()
	o := newTestOptimizer(cat)
	tree := buildTree(t, cat, "SELECT users.id , orders.user_id FROM users JOIN orders ON orders.user_id = users.id")

	changed, err := o.PushProjection(tree)
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, tree.Validate())

	assert.Equal(t, planner.KindJoin, tree.Kind(tree.Child(tree.Root, 0)))
	assert.Len(t, tree.Collect(tree.Root, planner.KindSelect), 2)
}

func TestPushProjection_OrderByAndNaturalJoin(t *testing.T) {
	cat := testCatalog()
	o := newTestOptimizer(cat)
	tree := buildTree(t, cat, "SELECT users.name FROM users NATURAL JOIN products ORDER BY products.price DESC LIMIT 5")

	changed, err := o.PushProjection(tree)
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, tree.Validate())

	assert.Equal(t, []string{"users.name", "users.id"}, localProjection(tree, "users"))
	assert.Equal(t, []string{"products.price", "products.id"}, localProjection(tree, "products"))
}

func TestPushProjection_NoOp(t *testing.T) {
	cat := testCatalog()
	o := newTestOptimizer(cat)

	for _, sql := range []string{
		"SELECT * FROM users JOIN orders ON orders.user_id = users.id",
		"SELECT users.name FROM users WHERE users.age > 3",
		"UPDATE users SET age = 3 WHERE id = 1",
	} {
		tree := buildTree(t, cat, sql)
		before := tree.String()
		changed, err := o.PushProjection(tree)
		require.NoError(t, err, sql)
		assert.False(t, changed, sql)
		assert.Equal(t, before, tree.String(), sql)
	}
}

package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaplan/internal/sql/planner"
)

func leafName(t *planner.Tree, id planner.NodeID) string {
	return t.Op(id).(planner.TableRef).Name
}

func TestChooseAccessPath(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		method planner.JoinMethod
		outer  string
		inner  string
	}{
		{
			name:   "shallower b+tree on outer side commutes",
			sql:    "SELECT * FROM users JOIN orders ON orders.user_id = users.id",
			method: planner.MethodBPlus,
			outer:  "orders",
			inner:  "users",
		},
		{
			name:   "hash on both sides prefers inner",
			sql:    "SELECT * FROM users JOIN products ON products.id = users.age",
			method: planner.MethodHash,
			outer:  "users",
			inner:  "products",
		},
		{
			name:   "b+tree beats hash",
			sql:    "SELECT * FROM users JOIN products ON products.id = users.id",
			method: planner.MethodBPlus,
			outer:  "products",
			inner:  "users",
		},
		{
			name:   "no index",
			sql:    "SELECT * FROM a JOIN b ON a.k = b.k",
			method: planner.MethodNestedLoop,
			outer:  "a",
			inner:  "b",
		},
		{
			name:   "cross product",
			sql:    "SELECT * FROM a , c",
			method: planner.MethodNestedLoop,
			outer:  "a",
			inner:  "c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := testCatalog()
			o := newTestOptimizer(cat)
			tree := buildTree(t, cat, tt.sql)
			j := firstOf(tree, planner.KindJoin)

			changed, err := o.ChooseAccessPath(tree, j)
			require.NoError(t, err)
			assert.True(t, changed)
			require.NoError(t, tree.Validate())

			assert.Equal(t, tt.method, tree.Op(j).(planner.Join).Method)
			assert.Equal(t, tt.outer, leafName(tree, tree.Child(j, 0)))
			assert.Equal(t, tt.inner, leafName(tree, tree.Child(j, 1)))

			changed, err = o.ChooseAccessPath(tree, j)
			require.NoError(t, err)
			assert.False(t, changed, "second pass is a no-op")
		})
	}
}

func TestChooseAccessPath_NaturalJoin(t *testing.T) {
	cat := testCatalog()
	o := newTestOptimizer(cat)
	tree := buildTree(t, cat, "SELECT * FROM users NATURAL JOIN products")
	nj := firstOf(tree, planner.KindNaturalJoin)

	changed, err := o.ChooseAccessPath(tree, nj)
	require.NoError(t, err)
	require.True(t, changed)

	op := tree.Op(nj).(planner.NaturalJoin)
	assert.Equal(t, planner.MethodBPlus, op.Method)
	assert.Equal(t, "users", leafName(tree, tree.Child(nj, 1)))
	assert.Equal(t, "NATURAL JOIN (id) [BPLUS JOIN]", planner.Describe(op))
}

func TestChooseAccessPath_IgnoresOtherNodes(t *testing.T) {
	cat := testCatalog()
	o := newTestOptimizer(cat)
	tree := buildTree(t, cat, "SELECT users.id FROM users")

	changed, err := o.ChooseAccessPath(tree, tree.Child(tree.Root, 0))
	require.NoError(t, err)
	assert.False(t, changed)
}

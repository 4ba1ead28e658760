package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaplan/internal/sql/cost"
	"github.com/tuannm99/novaplan/internal/sql/planner"
)

const aliasedSQL = "SELECT u.id FROM users AS u JOIN products AS p ON p.id = u.id WHERE u.id > 1"

func TestOptimize_EndToEnd(t *testing.T) {
	cat := testCatalog()
	o := newTestOptimizer(cat)
	tree := buildTree(t, cat, aliasedSQL)

	require.NoError(t, o.Optimize(context.Background(), tree))
	require.NoError(t, tree.Validate())

	want := `ROOT
  SELECT users.id
    JOIN ON products.id = users.id [BPLUS JOIN]
      SELECT products.id
        TABLE products
      WHERE users.id > 1
        SELECT users.id
          TABLE users
`
	assert.Equal(t, want, tree.String())
}

func TestOptimize_CrossProductBecomesJoin(t *testing.T) {
	cat := testCatalog()
	o := newTestOptimizer(cat)
	tree := buildTree(t, cat, "SELECT * FROM users , orders WHERE orders.user_id = users.id AND users.age = 30")

	require.NoError(t, o.Optimize(context.Background(), tree))

	j := firstOf(tree, planner.KindJoin)
	op := tree.Op(j).(planner.Join)
	assert.Equal(t, "orders.user_id = users.id", op.Cond.String())
	assert.Equal(t, planner.MethodBPlus, op.Method)

	users := tree.FindTable(tree.Root, "users")
	assert.Equal(t, "users.age = 30", tree.Op(tree.Parent(users)).(planner.Filter).Pred.String())
}

func TestOptimize_RulesDisabled(t *testing.T) {
	cat := testCatalog()
	o := newTestOptimizer(cat, WithRules(Rules{}))
	tree := buildTree(t, cat, aliasedSQL)

	before := tree.String()
	require.NoError(t, o.Optimize(context.Background(), tree))
	assert.Equal(t, before, tree.String())
}

func TestOptimize_SingleRule(t *testing.T) {
	cat := testCatalog()
	o := newTestOptimizer(cat, WithRules(Rules{AccessPath: true}))
	tree := buildTree(t, cat, aliasedSQL)

	require.NoError(t, o.Optimize(context.Background(), tree))
	assert.Len(t, tree.Collect(tree.Root, planner.KindSelect), 1)
	assert.Equal(t, planner.MethodBPlus, tree.Op(firstOf(tree, planner.KindJoin)).(planner.Join).Method)
}

func TestOptimize_Cancelled(t *testing.T) {
	cat := testCatalog()
	o := newTestOptimizer(cat)
	tree := buildTree(t, cat, aliasedSQL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := o.Optimize(ctx, tree)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOptimize_MissingStats(t *testing.T) {
	cat := testCatalog()
	o := New(cat, "nowhere")
	tree := buildTree(t, cat, aliasedSQL)

	err := o.Optimize(context.Background(), tree)
	require.Error(t, err)
}

func TestOptimize_ThreeWayChain(t *testing.T) {
	cat := testCatalog()
	o := newTestOptimizer(cat)
	tree := buildTree(t, cat, chainSQL)

	require.NoError(t, o.Optimize(context.Background(), tree))
	require.NoError(t, tree.Validate())
	assert.True(t, scopeOK(tree))

	for _, id := range tree.Collect(tree.Root, planner.KindJoin) {
		assert.NotEqual(t, planner.MethodUnset, tree.Op(id).(planner.Join).Method)
	}
}

func TestOptimize_ProjectionPushdownAddsLocalSelectsToCost(t *testing.T) {
	cat := testCatalog()
	est := cost.New(cat, db)

	without := AllRules()
	without.ProjectionPushdown = false

	plain := buildTree(t, cat, aliasedSQL)
	require.NoError(t, newTestOptimizer(cat, WithRules(without)).Optimize(context.Background(), plain))
	plainCost, err := est.Cost(plain)
	require.NoError(t, err)

	pushed := buildTree(t, cat, aliasedSQL)
	require.NoError(t, newTestOptimizer(cat).Optimize(context.Background(), pushed))
	pushedCost, err := est.Cost(pushed)
	require.NoError(t, err)

	// local SELECT products.id over 200 rows and SELECT users.id over 1000 rows
	assert.Equal(t, plainCost+1200, pushedCost)
	assert.Len(t, plain.Collect(plain.Root, planner.KindSelect), 1)
	assert.Len(t, pushed.Collect(pushed.Root, planner.KindSelect), 3)
}

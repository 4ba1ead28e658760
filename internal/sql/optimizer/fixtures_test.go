package optimizer

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaplan/internal/catalog"
	"github.com/tuannm99/novaplan/internal/record"
	"github.com/tuannm99/novaplan/internal/sql/parser"
	"github.com/tuannm99/novaplan/internal/sql/planner"
)

const db = "shop"

func col(name string, distinct int) catalog.ColumnMeta {
	return catalog.ColumnMeta{Name: name, Type: record.ColInt32, Distinct: distinct}
}

func bplus(c catalog.ColumnMeta, level int) catalog.ColumnMeta {
	c.BPlus, c.BPlusLevel = true, level
	return c
}

func hash(c catalog.ColumnMeta) catalog.ColumnMeta {
	c.Hash = true
	return c
}

func testCatalog() *catalog.MemoryCatalog {
	cat := catalog.NewMemoryCatalog(4096)
	cat.Put(db, &catalog.TableMeta{Name: "users", RowCount: 1000, Columns: []catalog.ColumnMeta{
		bplus(col("id", 1000), 2), col("name", 900), hash(col("age", 60)),
	}})
	cat.Put(db, &catalog.TableMeta{Name: "products", RowCount: 200, Columns: []catalog.ColumnMeta{
		hash(col("id", 200)), col("price", 150), col("owner", 100),
	}})
	cat.Put(db, &catalog.TableMeta{Name: "orders", RowCount: 5000, Columns: []catalog.ColumnMeta{
		col("oid", 5000), bplus(col("user_id", 1000), 3), col("product_id", 200),
	}})

	// a JOIN b on k is nearly a cross product, b JOIN c on id is tiny
	cat.Put(db, &catalog.TableMeta{Name: "a", RowCount: 1000, Columns: []catalog.ColumnMeta{col("k", 1)}})
	cat.Put(db, &catalog.TableMeta{Name: "b", RowCount: 1000, Columns: []catalog.ColumnMeta{col("k", 1), col("id", 1000)}})
	cat.Put(db, &catalog.TableMeta{Name: "c", RowCount: 10, Columns: []catalog.ColumnMeta{col("id", 10)}})
	return cat
}

func newTestOptimizer(cat catalog.Provider, opts ...Option) *Optimizer {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(cat, db, opts...)
}

func buildTree(t *testing.T, cat catalog.Provider, sql string) *planner.Tree {
	t.Helper()
	q, err := parser.Parse(sql)
	require.NoError(t, err)
	tree, err := planner.BuildTree(q, catalog.SchemaView{Provider: cat, Database: db})
	require.NoError(t, err)
	require.NoError(t, tree.Validate())
	return tree
}

func firstOf(t *planner.Tree, kind planner.NodeKind) planner.NodeID {
	ids := t.Collect(t.Root, kind)
	if len(ids) == 0 {
		return planner.NoNode
	}
	return ids[len(ids)-1]
}

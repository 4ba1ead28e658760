// Package cost estimates intermediate result sizes of a plan tree under
// uniform-distribution and independence assumptions.
package cost

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/tuannm99/novaplan/internal/catalog"
	"github.com/tuannm99/novaplan/internal/sql/planner"
)

// StatsSource provides base-table statistics.
type StatsSource interface {
	Stats(database, table string) (*catalog.Statistic, error)
}

// Estimator derives a Statistic for every subtree. Intermediate results
// key V by qualified "table.column" names. Base statistics are fetched
// fresh on every call.
type Estimator struct {
	stats    StatsSource
	database string
}

func New(stats StatsSource, database string) *Estimator {
	return &Estimator{stats: stats, database: database}
}

// Estimate returns the statistic of the subtree rooted at id.
func (e *Estimator) Estimate(t *planner.Tree, id planner.NodeID) (*catalog.Statistic, error) {
	w := walk{e: e, t: t}
	return w.estimate(id)
}

// Cost sums n_r over every non-root node of the plan.
func (e *Estimator) Cost(t *planner.Tree) (int64, error) {
	return e.SubtreeCost(t, t.Root)
}

// SubtreeCost sums n_r over the non-root nodes under id, id included.
func (e *Estimator) SubtreeCost(t *planner.Tree, id planner.NodeID) (int64, error) {
	w := walk{e: e, t: t}
	if _, err := w.estimate(id); err != nil {
		return 0, err
	}
	return w.total, nil
}

type walk struct {
	e     *Estimator
	t     *planner.Tree
	total int64
}

func (w *walk) estimate(id planner.NodeID) (*catalog.Statistic, error) {
	n := w.t.Node(id)
	if n == nil {
		return nil, fmt.Errorf("cost: no node %d", id)
	}

	var (
		res *catalog.Statistic
		err error
	)
	switch op := n.Op.(type) {
	case planner.TableRef:
		res, err = w.table(op.Name)
	case planner.Projection:
		res, err = w.unary(n, func(in *catalog.Statistic) (*catalog.Statistic, error) {
			return w.project(in, op)
		})
	case planner.Filter:
		res, err = w.unary(n, func(in *catalog.Statistic) (*catalog.Statistic, error) {
			return w.where(in, op.Pred)
		})
	case planner.Join:
		res, err = w.binary(n, func(l, r *catalog.Statistic) (*catalog.Statistic, error) {
			return w.join(l, r, op.Cond)
		})
	case planner.NaturalJoin:
		res, err = w.binary(n, func(l, r *catalog.Statistic) (*catalog.Statistic, error) {
			return w.naturalJoin(l, r, op.Attrs)
		})
	default:
		res, err = w.unary(n, func(in *catalog.Statistic) (*catalog.Statistic, error) {
			return in, nil
		})
	}
	if err != nil {
		return nil, err
	}

	if n.Kind() != planner.KindRoot {
		w.total = satAdd(w.total, int64(res.NR))
	}
	return res, nil
}

func (w *walk) table(name string) (*catalog.Statistic, error) {
	st, err := w.e.stats.Stats(w.e.database, catalog.NormalizeName(name))
	if err != nil {
		return nil, err
	}
	table := catalog.NormalizeName(name)
	out := &catalog.Statistic{
		NR:      st.NR,
		BR:      st.BR,
		LR:      st.LR,
		FR:      st.FR,
		V:       make(map[string]int, len(st.V)),
		Columns: make([]string, 0, len(st.Columns)),
	}
	cols := st.Columns
	if len(cols) == 0 {
		cols = slices.Sorted(maps.Keys(st.V))
	}
	for _, c := range cols {
		key := table + "." + catalog.NormalizeName(c)
		out.Columns = append(out.Columns, key)
		out.V[key] = st.V[c]
	}
	return out, nil
}

func (w *walk) unary(n *planner.Node, fn func(*catalog.Statistic) (*catalog.Statistic, error)) (*catalog.Statistic, error) {
	if len(n.Children) != 1 {
		return nil, fmt.Errorf("cost: %s node %d has %d children", n.Kind(), n.ID, len(n.Children))
	}
	in, err := w.estimate(n.Children[0])
	if err != nil {
		return nil, err
	}
	if in.Degenerate() && n.Kind() != planner.KindRoot {
		return degenerate(in), nil
	}
	return fn(in)
}

func (w *walk) binary(n *planner.Node, fn func(l, r *catalog.Statistic) (*catalog.Statistic, error)) (*catalog.Statistic, error) {
	if len(n.Children) != 2 {
		return nil, fmt.Errorf("cost: %s node %d has %d children", n.Kind(), n.ID, len(n.Children))
	}
	l, err := w.estimate(n.Children[0])
	if err != nil {
		return nil, err
	}
	r, err := w.estimate(n.Children[1])
	if err != nil {
		return nil, err
	}
	if l.Degenerate() || r.Degenerate() {
		return degenerate(merge(l, r, 0)), nil
	}
	return fn(l, r)
}

// degenerate is the empty relation over in's attributes.
func degenerate(in *catalog.Statistic) *catalog.Statistic {
	out := &catalog.Statistic{
		V:       make(map[string]int, len(in.V)),
		Columns: slices.Clone(in.Columns),
	}
	for k := range in.V {
		out.V[k] = 0
	}
	return out
}

// merge concatenates the attributes of both sides with V clamped to nr.
func merge(l, r *catalog.Statistic, nr int) *catalog.Statistic {
	out := &catalog.Statistic{
		NR:      nr,
		V:       make(map[string]int, len(l.V)+len(r.V)),
		Columns: make([]string, 0, len(l.Columns)+len(r.Columns)),
	}
	for _, side := range []*catalog.Statistic{l, r} {
		for _, c := range side.Columns {
			if _, dup := out.V[c]; !dup {
				out.Columns = append(out.Columns, c)
			}
			out.V[c] = min(side.V[c], nr)
		}
	}
	return out
}

func clamp(in *catalog.Statistic, nr int) *catalog.Statistic {
	out := &catalog.Statistic{
		NR:      nr,
		V:       make(map[string]int, len(in.V)),
		Columns: slices.Clone(in.Columns),
	}
	for k, v := range in.V {
		out.V[k] = min(v, nr)
	}
	return out
}

// lookup resolves an attribute reference to its key in s. Bare names
// match the first column with that name.
func lookup(s *catalog.Statistic, attr string) (string, bool) {
	key := catalog.NormalizeName(attr)
	if _, ok := s.V[key]; ok {
		return key, true
	}
	if strings.Contains(key, ".") {
		return "", false
	}
	for _, c := range s.Columns {
		if strings.HasSuffix(c, "."+key) {
			return c, true
		}
	}
	return "", false
}

func (w *walk) missing(attr string) error {
	table, col, ok := strings.Cut(catalog.NormalizeName(attr), ".")
	if !ok {
		table, col = "", table
	}
	return &catalog.StatsNotFoundError{Database: w.e.database, Table: table, Column: col}
}

func satMul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt/b {
		return math.MaxInt
	}
	return a * b
}

func satAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

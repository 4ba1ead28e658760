package cost

import (
	"strings"

	"github.com/tuannm99/novaplan/internal/catalog"
	"github.com/tuannm99/novaplan/internal/sql/planner"
)

// project: n_r' = min(n_r, prod V(Ai,r)).
func (w *walk) project(in *catalog.Statistic, p planner.Projection) (*catalog.Statistic, error) {
	if p.Star {
		return in, nil
	}

	out := &catalog.Statistic{V: make(map[string]int, len(p.Attrs))}
	prod := 1
	for _, a := range p.Attrs {
		key, ok := lookup(in, a)
		if !ok {
			return nil, w.missing(a)
		}
		if _, dup := out.V[key]; dup {
			continue
		}
		out.V[key] = in.V[key]
		out.Columns = append(out.Columns, key)
		prod = satMul(prod, in.V[key])
	}
	out.NR = min(in.NR, prod)
	return out, nil
}

// where applies each conjunct of pred in turn. A top-level OR leaves the
// input unchanged.
func (w *walk) where(in *catalog.Statistic, pred planner.Predicate) (*catalog.Statistic, error) {
	if pred.HasOr() {
		return in, nil
	}
	return w.reduceAll(in, pred.Conjuncts())
}

func (w *walk) reduceAll(in *catalog.Statistic, conjuncts []planner.Predicate) (*catalog.Statistic, error) {
	cur := in
	for _, c := range conjuncts {
		if cur.Degenerate() {
			return degenerate(cur), nil
		}
		next, err := w.reduce(cur, c)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// reduce applies one comparison:
//
//	A = c   n_r / V(A,r)
//	A <> c  n_r - n_r / V(A,r)
//	other   n_r / 2
func (w *walk) reduce(in *catalog.Statistic, conj planner.Predicate) (*catalog.Statistic, error) {
	cmp, ok := conj.Comparison()
	if !ok {
		return in, nil
	}
	attr := cmp.Attr()
	if attr == "" {
		return in, nil
	}
	key, ok := lookup(in, attr)
	if !ok {
		return nil, w.missing(attr)
	}

	v := in.V[key]
	var nr int
	switch cmp.Op {
	case "=":
		nr = in.NR / v
	case "<>":
		nr = in.NR - in.NR/v
	default:
		nr = in.NR / 2
	}
	return clamp(in, nr), nil
}

// join estimates a theta join. An empty condition is a cross product and
// so is one with a top-level OR. Otherwise the first attribute equality
// spanning both sides drives an equi-join estimate and the other
// conjuncts reduce the result like WHERE.
func (w *walk) join(l, r *catalog.Statistic, cond planner.Predicate) (*catalog.Statistic, error) {
	n := satMul(l.NR, r.NR)
	if cond.Empty() || cond.HasOr() {
		return merge(l, r, n), nil
	}

	conjuncts := cond.Conjuncts()
	for i, c := range conjuncts {
		va, vb, ok := equiJoinDistinct(l, r, c)
		if !ok {
			continue
		}
		res := merge(l, r, min(n/vb, n/va))
		rest := append(append([]planner.Predicate{}, conjuncts[:i]...), conjuncts[i+1:]...)
		return w.reduceAll(res, rest)
	}
	return w.reduceAll(merge(l, r, n), conjuncts)
}

// equiJoinDistinct returns V(A,l) and V(B,r) when c is "A = B" with A on
// the left input and B on the right, in either written order.
func equiJoinDistinct(l, r *catalog.Statistic, c planner.Predicate) (int, int, bool) {
	cmp, ok := c.Comparison()
	if !ok {
		return 0, 0, false
	}
	a, b, ok := cmp.AttrEquality()
	if !ok {
		return 0, 0, false
	}
	for _, pair := range [2][2]string{{a, b}, {b, a}} {
		ka, okA := lookup(l, pair[0])
		kb, okB := lookup(r, pair[1])
		if okA && okB {
			return l.V[ka], r.V[kb], true
		}
	}
	return 0, 0, false
}

// naturalJoin uses the largest distinct count among the shared columns
// on each side.
func (w *walk) naturalJoin(l, r *catalog.Statistic, attrs []string) (*catalog.Statistic, error) {
	n := satMul(l.NR, r.NR)
	if len(attrs) == 0 {
		return merge(l, r, n), nil
	}

	maxL, maxR := 0, 0
	for _, a := range attrs {
		vl, okL := maxDistinct(l, a)
		vr, okR := maxDistinct(r, a)
		if !okL || !okR {
			return nil, w.missing(a)
		}
		maxL = max(maxL, vl)
		maxR = max(maxR, vr)
	}
	return merge(l, r, min(n/maxR, n/maxL)), nil
}

func maxDistinct(s *catalog.Statistic, col string) (int, bool) {
	col = catalog.NormalizeName(col)
	best, found := 0, false
	for _, c := range s.Columns {
		if c == col || strings.HasSuffix(c, "."+col) {
			best = max(best, s.V[c])
			found = true
		}
	}
	return best, found
}

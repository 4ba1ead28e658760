package optimizer

import (
	"slices"
	"strings"

	"github.com/tuannm99/novaplan/internal/sql/planner"
)

func isJoin(op planner.Op) bool {
	k := op.Kind()
	return k == planner.KindJoin || k == planner.KindNaturalJoin
}

// Commute swaps the inputs of a join when that makes the plan strictly
// cheaper. Ties keep the current order.
func (o *Optimizer) Commute(t *planner.Tree, id planner.NodeID) (bool, error) {
	if !isJoin(t.Op(id)) {
		return false, nil
	}
	base, err := o.est.Cost(t)
	if err != nil {
		return false, err
	}

	cand := t.Clone()
	if err := cand.SwapChildren(id); err != nil {
		return false, err
	}
	swapped, err := o.est.Cost(cand)
	if err != nil {
		return false, err
	}
	if swapped >= base {
		return false, nil
	}
	return true, t.SwapChildren(id)
}

type step func(t *planner.Tree) error

type candidate struct {
	name  string
	steps []step
}

// ReorderJoin evaluates commuting the join, re-associating it with a
// parent join of the same kind, and both, and keeps the strictly cheapest
// plan. Re-association is skipped when the parent's condition does not
// reference the child, and a candidate is dropped when any join condition
// would name a table outside its subtree.
func (o *Optimizer) ReorderJoin(t *planner.Tree, id planner.NodeID) (bool, error) {
	if !isJoin(t.Op(id)) {
		return false, nil
	}
	best, err := o.est.Cost(t)
	if err != nil {
		return false, err
	}

	commute := func(target planner.NodeID) step {
		return func(t *planner.Tree) error { return t.SwapChildren(target) }
	}
	cands := []candidate{{name: "commute", steps: []step{commute(id)}}}

	if o.canAssociate(t, id) {
		parent := t.Parent(id)
		rotate := func(t *planner.Tree) error { return o.rotate(t, id) }
		cands = append(cands,
			candidate{name: "associate", steps: []step{rotate}},
			candidate{name: "commute+associate", steps: []step{commute(id), rotate}},
			candidate{name: "associate+commute_inner", steps: []step{rotate, commute(parent)}},
		)
	}

	var winner *candidate
	for i := range cands {
		c := &cands[i]
		trial := t.Clone()
		if err := apply(trial, c.steps); err != nil {
			return false, err
		}
		if !scopeOK(trial) {
			o.log.Debug("rewrite rejected", "rule", c.name, "node", id, "reason", "join condition out of scope")
			continue
		}
		cost, err := o.est.Cost(trial)
		if err != nil {
			return false, err
		}
		if cost < best {
			best, winner = cost, c
		}
	}
	if winner == nil {
		return false, nil
	}

	o.log.Debug("join reordered", "node", id, "candidate", winner.name, "cost", best)
	return true, apply(t, winner.steps)
}

func apply(t *planner.Tree, steps []step) error {
	for _, s := range steps {
		if err := s(t); err != nil {
			return err
		}
	}
	return nil
}

func (o *Optimizer) canAssociate(t *planner.Tree, id planner.NodeID) bool {
	parent := t.Parent(id)
	if parent == planner.NoNode || t.Kind(parent) != t.Kind(id) {
		return false
	}
	pj, ok := t.Op(parent).(planner.Join)
	if !ok {
		return true
	}
	below := t.Tables(id)
	for _, tbl := range pj.Cond.Tables() {
		if slices.Contains(below, tbl) {
			return true
		}
	}
	return false
}

// rotate re-associates id with its parent and moves every join condition
// to the lowest of the two joins that covers its tables.
func (o *Optimizer) rotate(t *planner.Tree, id planner.NodeID) error {
	inner := t.Parent(id)
	if err := t.Rotate(id); err != nil {
		return err
	}

	switch outerOp := t.Op(id).(type) {
	case planner.Join:
		innerOp := t.Op(inner).(planner.Join)
		innerTables := t.Tables(inner)

		var in, out []planner.Predicate
		for _, c := range planner.And(innerOp.Cond, outerOp.Cond).Conjuncts() {
			tbls := c.Tables()
			if len(tbls) > 0 && subset(tbls, innerTables) {
				in = append(in, c)
			} else {
				out = append(out, c)
			}
		}
		t.SetOp(inner, planner.Join{Cond: planner.And(in...)})
		t.SetOp(id, planner.Join{Cond: planner.And(out...)})

	case planner.NaturalJoin:
		for _, n := range []planner.NodeID{inner, id} {
			attrs, err := o.sharedAttrs(t, n)
			if err != nil {
				return err
			}
			t.SetOp(n, planner.NaturalJoin{Attrs: attrs})
		}
	}
	return nil
}

func (o *Optimizer) sharedAttrs(t *planner.Tree, id planner.NodeID) ([]string, error) {
	left, err := o.columnsOf(t.Tables(t.Child(id, 0)))
	if err != nil {
		return nil, err
	}
	right, err := o.columnsOf(t.Tables(t.Child(id, 1)))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, c := range left {
		if slices.Contains(right, c) && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (o *Optimizer) columnsOf(tables []string) ([]string, error) {
	var out []string
	for _, tbl := range tables {
		cols, err := o.columns(tbl)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			c = strings.ToLower(c)
			if !slices.Contains(out, c) {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// scopeOK reports whether every join condition only names tables of its
// own subtree.
func scopeOK(t *planner.Tree) bool {
	for _, id := range t.Collect(t.Root, planner.KindJoin) {
		j := t.Op(id).(planner.Join)
		if !subset(j.Cond.Tables(), t.Tables(id)) {
			return false
		}
	}
	return true
}

func subset(a, b []string) bool {
	for _, x := range a {
		if !slices.Contains(b, x) {
			return false
		}
	}
	return true
}

package optimizer

import (
	"slices"

	"github.com/tuannm99/novaplan/internal/sql/planner"
)

type indexCandidate struct {
	table  string
	column string
	inner  bool
}

type indexChoice struct {
	method planner.JoinMethod
	level  int
	inner  bool
}

// better orders choices: B+Tree over hash, then the shallower B+Tree,
// then the inner side.
func (c indexChoice) better(o indexChoice) bool {
	if c.method != o.method {
		return c.method > o.method
	}
	if c.method == planner.MethodBPlus && c.level != o.level {
		return c.level < o.level
	}
	return c.inner && !o.inner
}

// ChooseAccessPath tags a join with BPLUS, HASH or NESTED LOOP depending
// on the indexes of its join attributes. When the chosen index sits on
// the outer input the join is commuted so the index is probed.
func (o *Optimizer) ChooseAccessPath(t *planner.Tree, id planner.NodeID) (bool, error) {
	var cands []indexCandidate
	switch op := t.Op(id).(type) {
	case planner.Join:
		cands = o.joinCandidates(t, id, op)
	case planner.NaturalJoin:
		var err error
		if cands, err = o.naturalCandidates(t, id, op); err != nil {
			return false, err
		}
	default:
		return false, nil
	}

	var best *indexChoice
	for _, c := range cands {
		ip, err := o.cat.IndexPresence(o.database, c.table, c.column)
		if err != nil {
			return false, err
		}
		var ch indexChoice
		switch {
		case ip.BPlus:
			ch = indexChoice{method: planner.MethodBPlus, level: ip.BPlusLevel, inner: c.inner}
		case ip.Hash:
			ch = indexChoice{method: planner.MethodHash, inner: c.inner}
		default:
			continue
		}
		if best == nil || ch.better(*best) {
			best = &ch
		}
	}

	method := planner.MethodNestedLoop
	swapped := false
	if best != nil {
		method = best.method
		if !best.inner {
			if err := t.SwapChildren(id); err != nil {
				return false, err
			}
			swapped = true
		}
	}

	changed := swapped
	switch op := t.Op(id).(type) {
	case planner.Join:
		changed = changed || op.Method != method
		op.Method = method
		t.SetOp(id, op)
	case planner.NaturalJoin:
		changed = changed || op.Method != method
		op.Method = method
		t.SetOp(id, op)
	}
	return changed, nil
}

// joinCandidates takes both attributes of every "A = B" conjunct.
func (o *Optimizer) joinCandidates(t *planner.Tree, id planner.NodeID, j planner.Join) []indexCandidate {
	outer := t.Tables(t.Child(id, 0))
	inner := t.Tables(t.Child(id, 1))

	var out []indexCandidate
	for _, conj := range j.Cond.Conjuncts() {
		cmp, ok := conj.Comparison()
		if !ok {
			continue
		}
		a, b, ok := cmp.AttrEquality()
		if !ok {
			continue
		}
		for _, attr := range []string{a, b} {
			tbl, col, ok := splitAttr(attr)
			if !ok {
				continue
			}
			switch {
			case slices.Contains(inner, tbl):
				out = append(out, indexCandidate{table: tbl, column: col, inner: true})
			case slices.Contains(outer, tbl):
				out = append(out, indexCandidate{table: tbl, column: col})
			}
		}
	}
	return out
}

// naturalCandidates takes every shared column on every table that has it,
// inner side first.
func (o *Optimizer) naturalCandidates(t *planner.Tree, id planner.NodeID, j planner.NaturalJoin) ([]indexCandidate, error) {
	var out []indexCandidate
	sides := []struct {
		child planner.NodeID
		inner bool
	}{{t.Child(id, 1), true}, {t.Child(id, 0), false}}

	for _, attr := range j.Attrs {
		for _, side := range sides {
			for _, tbl := range t.Tables(side.child) {
				cols, err := o.columns(tbl)
				if err != nil {
					return nil, err
				}
				if slices.Contains(cols, attr) {
					out = append(out, indexCandidate{table: tbl, column: attr, inner: side.inner})
				}
			}
		}
	}
	return out, nil
}

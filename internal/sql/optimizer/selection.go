package optimizer

import (
	"slices"

	"github.com/tuannm99/novaplan/internal/sql/parser"
	"github.com/tuannm99/novaplan/internal/sql/planner"
)

// PushSelection moves a single-table WHERE node directly above the leaf
// of its table. A predicate already sitting on its leaf, possibly behind
// other WHERE or SELECT nodes, is left alone.
func (o *Optimizer) PushSelection(t *planner.Tree, id planner.NodeID) (bool, error) {
	f, ok := t.Op(id).(planner.Filter)
	if !ok || alreadyPushed(t, id) || !fullyQualified(f.Pred) {
		return false, nil
	}
	tables := f.Pred.Tables()
	if len(tables) != 1 {
		return false, nil
	}
	leaf := t.FindTable(id, tables[0])
	if leaf == planner.NoNode {
		return false, nil
	}

	if err := t.Unlink(id); err != nil {
		return false, err
	}
	if err := t.InsertAbove(id, leaf); err != nil {
		return false, err
	}
	return true, nil
}

func alreadyPushed(t *planner.Tree, id planner.NodeID) bool {
	cur := t.Child(id, 0)
	for cur != planner.NoNode {
		switch t.Kind(cur) {
		case planner.KindTable:
			return true
		case planner.KindWhere, planner.KindSelect:
			cur = t.Child(cur, 0)
		default:
			return false
		}
	}
	return false
}

func fullyQualified(p planner.Predicate) bool {
	for _, tok := range p.Tokens {
		if q, _ := tok.Qualifier(); q == "" && tok.Kind == parser.TokIdent {
			return false
		}
	}
	return true
}

// CombineSelection turns a cross product into a join. Every WHERE ancestor
// whose predicate spans both sides of the cross product, and no other
// table, is removed and its condition ANDed into the join. Equalities come
// first in the resulting condition.
func (o *Optimizer) CombineSelection(t *planner.Tree, id planner.NodeID) (bool, error) {
	if !isCrossProduct(t.Op(id)) {
		return false, nil
	}

	spanned := t.Tables(id)
	left := t.Tables(t.Child(id, 0))
	right := t.Tables(t.Child(id, 1))

	var eq, other []planner.Predicate
	cur := t.Parent(id)
	for cur != planner.NoNode && t.Kind(cur) != planner.KindRoot {
		next := t.Parent(cur)
		if f, ok := t.Op(cur).(planner.Filter); ok && combinable(f.Pred, spanned, left, right) {
			if err := t.Unlink(cur); err != nil {
				return false, err
			}
			if isAttrEquality(f.Pred) {
				eq = append(eq, f.Pred)
			} else {
				other = append(other, f.Pred)
			}
		}
		cur = next
	}
	if len(eq)+len(other) == 0 {
		return false, nil
	}

	t.SetOp(id, planner.Join{Cond: planner.And(append(eq, other...)...)})
	return true, nil
}

func isCrossProduct(op planner.Op) bool {
	switch j := op.(type) {
	case planner.Join:
		return j.Cross()
	case planner.NaturalJoin:
		return len(j.Attrs) == 0
	}
	return false
}

func combinable(p planner.Predicate, spanned, left, right []string) bool {
	if p.HasOr() || !fullyQualified(p) {
		return false
	}
	tables := p.Tables()
	if len(tables) == 0 {
		return false
	}
	touchesLeft, touchesRight := false, false
	for _, tbl := range tables {
		if !slices.Contains(spanned, tbl) {
			return false
		}
		touchesLeft = touchesLeft || slices.Contains(left, tbl)
		touchesRight = touchesRight || slices.Contains(right, tbl)
	}
	return touchesLeft && touchesRight
}

func isAttrEquality(p planner.Predicate) bool {
	c, ok := p.Comparison()
	if !ok {
		return false
	}
	_, _, ok = c.AttrEquality()
	return ok
}

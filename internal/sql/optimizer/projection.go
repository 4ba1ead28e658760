package optimizer

import (
	"slices"
	"strings"

	"github.com/tuannm99/novaplan/internal/sql/planner"
)

func splitAttr(attr string) (string, string, bool) {
	return strings.Cut(attr, ".")
}

// attrSet groups qualified attributes by table, keeping first-seen order.
type attrSet struct {
	byTable map[string][]string
}

func newAttrSet() *attrSet {
	return &attrSet{byTable: make(map[string][]string)}
}

func (s *attrSet) add(attr string) bool {
	tbl, _, ok := splitAttr(attr)
	if !ok {
		return false
	}
	if !slices.Contains(s.byTable[tbl], attr) {
		s.byTable[tbl] = append(s.byTable[tbl], attr)
	}
	return true
}

// globalProjection finds the SELECT under ROOT, looking through LIMIT and
// ORDER BY.
func globalProjection(t *planner.Tree) planner.NodeID {
	cur := t.Child(t.Root, 0)
	for cur != planner.NoNode {
		switch t.Kind(cur) {
		case planner.KindSelect:
			return cur
		case planner.KindLimit, planner.KindOrderBy:
			cur = t.Child(cur, 0)
		default:
			return planner.NoNode
		}
	}
	return planner.NoNode
}

// PushProjection partitions the SELECT list by table and puts a local
// SELECT directly above each table leaf. Attributes used by WHERE, JOIN,
// NATURAL JOIN and ORDER BY are kept in the partitions. The global SELECT
// is removed only when the local ones project exactly the same columns.
// Plans without a join, SELECT * and unqualified attributes are left
// alone.
func (o *Optimizer) PushProjection(t *planner.Tree) (bool, error) {
	sel := globalProjection(t)
	if sel == planner.NoNode {
		return false, nil
	}
	proj := t.Op(sel).(planner.Projection)
	if proj.Star || len(t.Collect(sel, planner.KindJoin, planner.KindNaturalJoin)) == 0 {
		return false, nil
	}

	needed := newAttrSet()
	for _, a := range proj.Attrs {
		if !needed.add(a) {
			return false, nil
		}
	}
	for cur := t.Parent(sel); cur != planner.NoNode; cur = t.Parent(cur) {
		if ob, ok := t.Op(cur).(planner.OrderBy); ok && !needed.add(ob.Attr) {
			return false, nil
		}
	}

	ok := true
	var walkErr error
	t.Walk(sel, func(n *planner.Node) bool {
		if n.ID == sel || !ok || walkErr != nil {
			return n.ID == sel
		}
		switch op := n.Op.(type) {
		case planner.Filter:
			ok = addAll(needed, op.Pred.Attrs())
		case planner.Join:
			ok = addAll(needed, op.Cond.Attrs())
		case planner.Projection:
			ok = !op.Star && addAll(needed, op.Attrs)
		case planner.NaturalJoin:
			for _, attr := range op.Attrs {
				for _, tbl := range t.Tables(n.ID) {
					cols, err := o.columns(tbl)
					if err != nil {
						walkErr = err
						return false
					}
					if slices.Contains(cols, attr) {
						needed.add(tbl + "." + attr)
					}
				}
			}
		}
		return true
	})
	if walkErr != nil {
		return false, walkErr
	}
	if !ok {
		return false, nil
	}

	changed := false
	var local []string
	for _, leaf := range t.Collect(sel, planner.KindTable) {
		attrs := needed.byTable[t.Op(leaf).(planner.TableRef).Name]
		if len(attrs) == 0 {
			continue
		}
		local = append(local, attrs...)

		parent := t.Parent(leaf)
		if p, isProj := t.Op(parent).(planner.Projection); isProj && parent != sel {
			merged := slices.Clone(p.Attrs)
			for _, a := range attrs {
				if !slices.Contains(merged, a) {
					merged = append(merged, a)
				}
			}
			if len(merged) != len(p.Attrs) {
				t.SetOp(parent, planner.Projection{Attrs: merged})
				changed = true
			}
			continue
		}

		node := t.Add(planner.Projection{Attrs: slices.Clone(attrs)})
		if err := t.InsertAbove(node, leaf); err != nil {
			return false, err
		}
		changed = true
	}

	if sameSet(local, proj.Attrs) {
		if err := t.Unlink(sel); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, nil
}

func addAll(s *attrSet, attrs []string) bool {
	for _, a := range attrs {
		if !s.add(a) {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	for _, x := range a {
		if !slices.Contains(b, x) {
			return false
		}
	}
	for _, x := range b {
		if !slices.Contains(a, x) {
			return false
		}
	}
	return true
}

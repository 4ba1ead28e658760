package planner

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrInvalidTree = errors.New("novaplan: invalid query tree")

// NodeID indexes a node in its Tree. IDs are never reused, so a node keeps
// its identity across rewrites.
type NodeID int

const NoNode NodeID = -1

type Node struct {
	ID       NodeID
	Op       Op
	Parent   NodeID
	Children []NodeID
}

func (n *Node) Kind() NodeKind { return n.Op.Kind() }

// Tree is an arena of plan nodes. Edges are indices, so rewrites relink
// nodes without copying subtrees. Nodes removed from the plan stay in the
// arena detached.
type Tree struct {
	nodes []*Node
	Root  NodeID
}

func NewTree() *Tree {
	t := &Tree{}
	t.Root = t.Add(Root{})
	return t
}

// Add creates a detached node.
func (t *Tree) Add(op Op) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, &Node{ID: id, Op: op, Parent: NoNode})
	return id
}

func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) Op(id NodeID) Op { return t.nodes[id].Op }

func (t *Tree) Kind(id NodeID) NodeKind { return t.nodes[id].Op.Kind() }

func (t *Tree) SetOp(id NodeID, op Op) { t.nodes[id].Op = op }

func (t *Tree) Parent(id NodeID) NodeID { return t.nodes[id].Parent }

func (t *Tree) Children(id NodeID) []NodeID { return t.nodes[id].Children }

// Child returns the i-th child or NoNode.
func (t *Tree) Child(id NodeID, i int) NodeID {
	c := t.nodes[id].Children
	if i < 0 || i >= len(c) {
		return NoNode
	}
	return c[i]
}

func (t *Tree) attached(id NodeID) bool {
	return id == t.Root || t.nodes[id].Parent != NoNode
}

func (t *Tree) check(ids ...NodeID) error {
	for _, id := range ids {
		if t.Node(id) == nil {
			return fmt.Errorf("%w: no node %d", ErrInvalidTree, id)
		}
	}
	return nil
}

// AddChild appends a detached child to parent.
func (t *Tree) AddChild(parent, child NodeID) error {
	if err := t.check(parent, child); err != nil {
		return err
	}
	if t.attached(child) {
		return fmt.Errorf("%w: node %d is already attached", ErrInvalidTree, child)
	}
	t.nodes[parent].Children = append(t.nodes[parent].Children, child)
	t.nodes[child].Parent = parent
	return nil
}

// ReplaceChild puts the detached node repl in old's slot under parent and
// detaches old.
func (t *Tree) ReplaceChild(parent, old, repl NodeID) error {
	if err := t.check(parent, old, repl); err != nil {
		return err
	}
	if t.attached(repl) {
		return fmt.Errorf("%w: node %d is already attached", ErrInvalidTree, repl)
	}
	p := t.nodes[parent]
	i := slices.Index(p.Children, old)
	if i < 0 {
		return fmt.Errorf("%w: node %d is not a child of %d", ErrInvalidTree, old, parent)
	}
	p.Children[i] = repl
	t.nodes[repl].Parent = parent
	t.nodes[old].Parent = NoNode
	return nil
}

// Unlink removes a single-child node from the plan. Its child takes its
// slot; the node is left detached with no children.
func (t *Tree) Unlink(id NodeID) error {
	if err := t.check(id); err != nil {
		return err
	}
	n := t.nodes[id]
	if id == t.Root || n.Parent == NoNode {
		return fmt.Errorf("%w: cannot unlink detached node %d", ErrInvalidTree, id)
	}
	if len(n.Children) != 1 {
		return fmt.Errorf("%w: cannot unlink %s node %d with %d children", ErrInvalidTree, n.Kind(), id, len(n.Children))
	}

	child := n.Children[0]
	p := t.nodes[n.Parent]
	i := slices.Index(p.Children, id)
	p.Children[i] = child
	t.nodes[child].Parent = n.Parent

	n.Parent = NoNode
	n.Children = nil
	return nil
}

// InsertAbove places the detached, childless node id between target and
// target's parent.
func (t *Tree) InsertAbove(id, target NodeID) error {
	if err := t.check(id, target); err != nil {
		return err
	}
	n := t.nodes[id]
	if t.attached(id) || len(n.Children) != 0 {
		return fmt.Errorf("%w: node %d must be detached and childless", ErrInvalidTree, id)
	}
	tn := t.nodes[target]
	if tn.Parent == NoNode {
		return fmt.Errorf("%w: cannot insert above unparented node %d", ErrInvalidTree, target)
	}

	p := t.nodes[tn.Parent]
	i := slices.Index(p.Children, target)
	p.Children[i] = id
	n.Parent = tn.Parent
	n.Children = []NodeID{target}
	tn.Parent = id
	return nil
}

// SwapChildren exchanges the two children of a binary node.
func (t *Tree) SwapChildren(id NodeID) error {
	if err := t.check(id); err != nil {
		return err
	}
	c := t.nodes[id].Children
	if len(c) != 2 {
		return fmt.Errorf("%w: node %d has %d children, want 2", ErrInvalidTree, id, len(c))
	}
	c[0], c[1] = c[1], c[0]
	return nil
}

// Rotate re-associates the binary node id with its binary parent p. id
// takes p's slot and p becomes the inner node:
//
//	p(id(A, B), C) -> id(A, p(B, C))
//	p(C, id(A, B)) -> id(p(C, A), B)
func (t *Tree) Rotate(id NodeID) error {
	if err := t.check(id); err != nil {
		return err
	}
	n := t.nodes[id]
	if len(n.Children) != 2 || n.Parent == NoNode {
		return fmt.Errorf("%w: node %d cannot rotate", ErrInvalidTree, id)
	}
	p := t.nodes[n.Parent]
	if len(p.Children) != 2 || p.Parent == NoNode {
		return fmt.Errorf("%w: parent %d of node %d is not binary", ErrInvalidTree, p.ID, id)
	}
	g := t.nodes[p.Parent]

	a, b := n.Children[0], n.Children[1]
	if p.Children[0] == id {
		c := p.Children[1]
		p.Children = []NodeID{b, c}
		n.Children = []NodeID{a, p.ID}
		t.nodes[b].Parent = p.ID
	} else {
		c := p.Children[0]
		p.Children = []NodeID{c, a}
		n.Children = []NodeID{p.ID, b}
		t.nodes[a].Parent = p.ID
	}

	i := slices.Index(g.Children, p.ID)
	g.Children[i] = id
	n.Parent = g.ID
	p.Parent = id
	return nil
}

// Clone returns a deep copy. Node IDs are preserved.
func (t *Tree) Clone() *Tree {
	out := &Tree{Root: t.Root, nodes: make([]*Node, len(t.nodes))}
	for i, n := range t.nodes {
		out.nodes[i] = &Node{
			ID:       n.ID,
			Op:       cloneOp(n.Op),
			Parent:   n.Parent,
			Children: slices.Clone(n.Children),
		}
	}
	return out
}

// Walk visits the subtree of id in pre-order. Returning false from fn
// skips the children of that node.
func (t *Tree) Walk(id NodeID, fn func(n *Node) bool) {
	n := t.Node(id)
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		t.Walk(c, fn)
	}
}

// Collect returns the nodes of the given kind under id in post-order, so
// deeper nodes come first.
func (t *Tree) Collect(id NodeID, kinds ...NodeKind) []NodeID {
	var out []NodeID
	var visit func(NodeID)
	visit = func(cur NodeID) {
		n := t.nodes[cur]
		for _, c := range n.Children {
			visit(c)
		}
		if slices.Contains(kinds, n.Kind()) {
			out = append(out, cur)
		}
	}
	if t.Node(id) != nil {
		visit(id)
	}
	return out
}

// Tables lists the table leaves under id from left to right.
func (t *Tree) Tables(id NodeID) []string {
	var out []string
	t.Walk(id, func(n *Node) bool {
		if tr, ok := n.Op.(TableRef); ok {
			out = append(out, tr.Name)
		}
		return true
	})
	return out
}

// FindTable returns the leaf for table under id.
func (t *Tree) FindTable(id NodeID, table string) NodeID {
	found := NoNode
	t.Walk(id, func(n *Node) bool {
		if found != NoNode {
			return false
		}
		if tr, ok := n.Op.(TableRef); ok && tr.Name == table {
			found = n.ID
		}
		return true
	})
	return found
}

// Depth is the number of edges between id and the root.
func (t *Tree) Depth(id NodeID) int {
	d := 0
	for cur := t.nodes[id].Parent; cur != NoNode; cur = t.nodes[cur].Parent {
		d++
	}
	return d
}

// Validate checks the structural invariants of the attached plan.
func (t *Tree) Validate() error {
	if t.Node(t.Root) == nil || t.Kind(t.Root) != KindRoot {
		return fmt.Errorf("%w: missing root", ErrInvalidTree)
	}
	if t.nodes[t.Root].Parent != NoNode {
		return fmt.Errorf("%w: root has a parent", ErrInvalidTree)
	}

	seen := make(map[NodeID]bool, len(t.nodes))
	var visit func(id NodeID) error
	visit = func(id NodeID) error {
		if seen[id] {
			return fmt.Errorf("%w: node %d reached twice", ErrInvalidTree, id)
		}
		seen[id] = true

		n := t.nodes[id]
		switch k := n.Kind(); k {
		case KindRoot:
			if id != t.Root {
				return fmt.Errorf("%w: second root %d", ErrInvalidTree, id)
			}
			if len(n.Children) != 1 {
				return fmt.Errorf("%w: root has %d children", ErrInvalidTree, len(n.Children))
			}
		case KindJoin, KindNaturalJoin:
			if len(n.Children) != 2 {
				return fmt.Errorf("%w: %s node %d has %d children", ErrInvalidTree, k, id, len(n.Children))
			}
		case KindTable:
			if len(n.Children) != 0 {
				return fmt.Errorf("%w: table node %d has children", ErrInvalidTree, id)
			}
		default:
			if len(n.Children) != 1 {
				return fmt.Errorf("%w: %s node %d has %d children", ErrInvalidTree, k, id, len(n.Children))
			}
		}

		for _, c := range n.Children {
			if t.Node(c) == nil {
				return fmt.Errorf("%w: node %d has dangling child %d", ErrInvalidTree, id, c)
			}
			if t.nodes[c].Parent != id {
				return fmt.Errorf("%w: node %d parent is %d, want %d", ErrInvalidTree, c, t.nodes[c].Parent, id)
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(t.Root); err != nil {
		return err
	}

	for _, n := range t.nodes {
		if !seen[n.ID] && n.Parent != NoNode {
			return fmt.Errorf("%w: node %d is unreachable but has parent %d", ErrInvalidTree, n.ID, n.Parent)
		}
	}
	return nil
}

// String renders the plan as indented EXPLAIN text.
func (t *Tree) String() string {
	var sb strings.Builder
	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(Describe(t.nodes[id].Op))
		sb.WriteByte('\n')
		for _, c := range t.nodes[id].Children {
			visit(c, depth+1)
		}
	}
	visit(t.Root, 0)
	return sb.String()
}

// NodeView is a JSON-friendly nested form of a plan node.
type NodeView struct {
	ID        NodeID     `json:"id"`
	Kind      string     `json:"kind"`
	Detail    string     `json:"detail,omitempty"`
	Table     string     `json:"table,omitempty"`
	Attrs     []string   `json:"attrs,omitempty"`
	Condition string     `json:"condition,omitempty"`
	Method    string     `json:"method,omitempty"`
	Limit     *int       `json:"limit,omitempty"`
	Children  []NodeView `json:"children,omitempty"`
}

func (t *Tree) View() NodeView { return t.view(t.Root) }

func (t *Tree) view(id NodeID) NodeView {
	n := t.nodes[id]
	v := NodeView{ID: id, Kind: n.Kind().String(), Detail: Describe(n.Op)}
	switch o := n.Op.(type) {
	case Limit:
		lim := o.N
		v.Limit = &lim
	case OrderBy:
		v.Attrs = []string{o.Attr}
	case Projection:
		if o.Star {
			v.Attrs = []string{"*"}
		} else {
			v.Attrs = slices.Clone(o.Attrs)
		}
	case Update:
		v.Table = o.Table
		v.Condition = o.Set
	case CreateIndex:
		v.Table = o.Table
		v.Attrs = []string{o.Column}
		v.Method = o.Method
	case Filter:
		v.Condition = o.Pred.String()
	case Join:
		v.Condition = o.Cond.String()
		v.Method = o.Method.String()
	case NaturalJoin:
		v.Attrs = slices.Clone(o.Attrs)
		v.Method = o.Method.String()
	case TableRef:
		v.Table = o.Name
	}
	for _, c := range n.Children {
		v.Children = append(v.Children, t.view(c))
	}
	return v
}

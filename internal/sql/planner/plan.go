package planner

import (
	"slices"
	"strconv"
	"strings"
)

type NodeKind uint8

const (
	KindRoot NodeKind = iota
	KindLimit
	KindOrderBy
	KindSelect
	KindUpdate
	KindCreateIndex
	KindWhere
	KindJoin
	KindNaturalJoin
	KindTable
)

func (k NodeKind) String() string {
	switch k {
	case KindRoot:
		return "ROOT"
	case KindLimit:
		return "LIMIT"
	case KindOrderBy:
		return "ORDER BY"
	case KindSelect:
		return "SELECT"
	case KindUpdate:
		return "UPDATE"
	case KindCreateIndex:
		return "CREATE INDEX"
	case KindWhere:
		return "WHERE"
	case KindJoin:
		return "JOIN"
	case KindNaturalJoin:
		return "NATURAL JOIN"
	case KindTable:
		return "TABLE"
	default:
		return "UNKNOWN"
	}
}

// JoinMethod is the access path chosen for a join.
type JoinMethod uint8

const (
	MethodUnset JoinMethod = iota
	MethodNestedLoop
	MethodHash
	MethodBPlus
)

func (m JoinMethod) String() string {
	switch m {
	case MethodNestedLoop:
		return "NESTED LOOP JOIN"
	case MethodHash:
		return "HASH JOIN"
	case MethodBPlus:
		return "BPLUS JOIN"
	default:
		return ""
	}
}

// Op is the kind-specific payload of a tree node.
type Op interface {
	Kind() NodeKind
	planNode()
}

type Root struct{}

func (Root) Kind() NodeKind { return KindRoot }
func (Root) planNode()      {}

type Limit struct {
	N int
}

func (Limit) Kind() NodeKind { return KindLimit }
func (Limit) planNode()      {}

type OrderBy struct {
	Attr string
	Desc bool
}

func (OrderBy) Kind() NodeKind { return KindOrderBy }
func (OrderBy) planNode()      {}

// Projection is a SELECT list. Star projects every column.
type Projection struct {
	Attrs []string
	Star  bool
}

func (Projection) Kind() NodeKind { return KindSelect }
func (Projection) planNode()      {}

type Update struct {
	Table string
	Set   string
}

func (Update) Kind() NodeKind { return KindUpdate }
func (Update) planNode()      {}

type CreateIndex struct {
	Table  string
	Column string
	Method string
}

func (CreateIndex) Kind() NodeKind { return KindCreateIndex }
func (CreateIndex) planNode()      {}

// Filter is a WHERE node holding one predicate.
type Filter struct {
	Pred Predicate
}

func (Filter) Kind() NodeKind { return KindWhere }
func (Filter) planNode()      {}

// Join is a binary join. An empty condition is a cross product.
type Join struct {
	Cond   Predicate
	Method JoinMethod
}

func (Join) Kind() NodeKind { return KindJoin }
func (Join) planNode()      {}

func (j Join) Cross() bool { return j.Cond.Empty() }

// NaturalJoin equates the listed shared column names.
type NaturalJoin struct {
	Attrs  []string
	Method JoinMethod
}

func (NaturalJoin) Kind() NodeKind { return KindNaturalJoin }
func (NaturalJoin) planNode()      {}

type TableRef struct {
	Name string
}

func (TableRef) Kind() NodeKind { return KindTable }
func (TableRef) planNode()      {}

func cloneOp(op Op) Op {
	switch o := op.(type) {
	case Projection:
		o.Attrs = slices.Clone(o.Attrs)
		return o
	case NaturalJoin:
		o.Attrs = slices.Clone(o.Attrs)
		return o
	case Filter:
		o.Pred = o.Pred.Clone()
		return o
	case Join:
		o.Cond = o.Cond.Clone()
		return o
	default:
		return op
	}
}

// Describe renders the payload as one EXPLAIN line.
func Describe(op Op) string {
	switch o := op.(type) {
	case Limit:
		return "LIMIT " + strconv.Itoa(o.N)
	case OrderBy:
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		return "ORDER BY " + o.Attr + " " + dir
	case Projection:
		if o.Star {
			return "SELECT *"
		}
		return "SELECT " + strings.Join(o.Attrs, ", ")
	case Update:
		return "UPDATE " + o.Table + " SET " + o.Set
	case CreateIndex:
		return "CREATE INDEX " + o.Table + "(" + o.Column + ") USING " + o.Method
	case Filter:
		return "WHERE " + o.Pred.String()
	case Join:
		s := "JOIN"
		if o.Cross() {
			s = "CROSS JOIN"
		} else {
			s += " ON " + o.Cond.String()
		}
		if o.Method != MethodUnset {
			s += " [" + o.Method.String() + "]"
		}
		return s
	case NaturalJoin:
		s := "NATURAL JOIN (" + strings.Join(o.Attrs, ", ") + ")"
		if o.Method != MethodUnset {
			s += " [" + o.Method.String() + "]"
		}
		return s
	case TableRef:
		return "TABLE " + o.Name
	default:
		return op.Kind().String()
	}
}

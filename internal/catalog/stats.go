package catalog

import (
	"maps"

	"github.com/tuannm99/novaplan/internal/record"
)

// Statistic is a read-only snapshot of one relation, either a base table
// as reported by storage or an intermediate result derived by the cost
// estimator (which only fills NR, V and Columns).
type Statistic struct {
	NR int // tuple count
	BR int // block count
	LR int // tuple size in bytes
	FR int // blocking factor

	// V maps column name to its distinct-value count V(A,r).
	V map[string]int
	// Columns is the schema column order of a base table.
	Columns []string

	ColType    map[string]record.ColumnType
	ColIndex   map[string]IndexPresence
	BPlusLevel map[string]int
}

// IndexPresence describes which indexes exist on a single column.
type IndexPresence struct {
	BPlus      bool `json:"bplus"`
	Hash       bool `json:"hash"`
	BPlusLevel int  `json:"bplus_level"`
}

// Provider is the storage collaborator. Implementations must be free of
// side effects; the planner may call them repeatedly during one pass.
type Provider interface {
	Stats(database, table string) (*Statistic, error)
	IndexPresence(database, table, column string) (IndexPresence, error)
}

func (s *Statistic) Clone() *Statistic {
	if s == nil {
		return nil
	}
	out := *s
	out.V = maps.Clone(s.V)
	out.Columns = append([]string(nil), s.Columns...)
	out.ColType = maps.Clone(s.ColType)
	out.ColIndex = maps.Clone(s.ColIndex)
	out.BPlusLevel = maps.Clone(s.BPlusLevel)
	return &out
}

// Degenerate reports whether the relation is known to be empty: no tuples,
// or some attribute without a single distinct value.
func (s *Statistic) Degenerate() bool {
	if s.NR == 0 {
		return true
	}
	for _, v := range s.V {
		if v == 0 {
			return true
		}
	}
	return false
}

// Distinct returns V(A,r) for an already normalized column name.
func (s *Statistic) Distinct(col string) (int, bool) {
	v, ok := s.V[col]
	return v, ok
}

// SchemaView lists table columns of one database through a Provider.
type SchemaView struct {
	Provider Provider
	Database string
}

func (v SchemaView) Columns(table string) ([]string, error) {
	st, err := v.Provider.Stats(v.Database, table)
	if err != nil {
		return nil, err
	}
	return st.Columns, nil
}

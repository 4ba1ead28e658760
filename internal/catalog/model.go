package catalog

import (
	"strings"

	"github.com/tuannm99/novaplan/internal/record"
)

// DefaultBlockSize is the block size used to derive f_r and b_r when none
// is configured.
const DefaultBlockSize = 4096

type ColumnMeta struct {
	Name       string            `json:"name" yaml:"name"`
	Type       record.ColumnType `json:"type" yaml:"type"`
	Distinct   int               `json:"distinct" yaml:"distinct"`
	BPlus      bool              `json:"bplus,omitempty" yaml:"bplus,omitempty"`
	Hash       bool              `json:"hash,omitempty" yaml:"hash,omitempty"`
	BPlusLevel int               `json:"bplus_level,omitempty" yaml:"bplus_level,omitempty"`
}

// TableMeta is what the storage layer reports about one table.
type TableMeta struct {
	Name     string       `json:"name" yaml:"name"`
	RowCount int          `json:"rows" yaml:"rows"`
	Columns  []ColumnMeta `json:"columns" yaml:"columns"`
}

func (m *TableMeta) Schema() record.Schema {
	cols := make([]record.Column, 0, len(m.Columns))
	for _, c := range m.Columns {
		cols = append(cols, record.Column{Name: c.Name, Type: c.Type, Nullable: true})
	}
	return record.Schema{Cols: cols}
}

func (m *TableMeta) column(name string) (ColumnMeta, bool) {
	name = NormalizeName(name)
	for _, c := range m.Columns {
		if NormalizeName(c.Name) == name {
			return c, true
		}
	}
	return ColumnMeta{}, false
}

// Statistic derives the statistics snapshot for this table.
//
// l_r is the schema tuple width, f_r = blockSize / l_r and
// b_r = ceil(n_r / f_r). Distinct counts larger than n_r are clamped.
func (m *TableMeta) Statistic(blockSize int) *Statistic {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	s := &Statistic{
		NR:         m.RowCount,
		LR:         m.Schema().TupleSize(),
		V:          make(map[string]int, len(m.Columns)),
		ColType:    make(map[string]record.ColumnType, len(m.Columns)),
		ColIndex:   make(map[string]IndexPresence, len(m.Columns)),
		BPlusLevel: make(map[string]int, len(m.Columns)),
	}
	if s.LR > 0 {
		s.FR = blockSize / s.LR
	}
	if s.FR > 0 {
		s.BR = (s.NR + s.FR - 1) / s.FR
	}

	for _, c := range m.Columns {
		name := NormalizeName(c.Name)
		s.Columns = append(s.Columns, name)

		d := c.Distinct
		if d > s.NR {
			d = s.NR
		}
		s.V[name] = d
		s.ColType[name] = c.Type
		s.ColIndex[name] = IndexPresence{BPlus: c.BPlus, Hash: c.Hash, BPlusLevel: c.BPlusLevel}
		if c.BPlus {
			s.BPlusLevel[name] = c.BPlusLevel
		}
	}
	return s
}

// NormalizeName trims and lower-cases a table or column name.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

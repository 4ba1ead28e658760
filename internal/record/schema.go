package record

import (
	"fmt"
	"strings"
)

type ColumnType uint8

const (
	ColInt32 ColumnType = iota
	ColInt64
	ColBool
	ColFloat32
	ColFloat64
	ColText  // UTF-8
	ColBytes // opaque bytes
)

// TextWidth is the fixed width assumed for variable-length columns when
// sizing a tuple.
const TextWidth = 50

var typeNames = map[string]ColumnType{
	"INT":     ColInt32,
	"INTEGER": ColInt32,
	"BIGINT":  ColInt64,
	"BOOL":    ColBool,
	"BOOLEAN": ColBool,
	"FLOAT":   ColFloat32,
	"REAL":    ColFloat32,
	"DOUBLE":  ColFloat64,
	"TEXT":    ColText,
	"VARCHAR": ColText,
	"BYTES":   ColBytes,
	"BLOB":    ColBytes,
}

// ParseColumnType maps a SQL type name (case-insensitive) to a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	t, ok := typeNames[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unsupported column type: %s", s)
	}
	return t, nil
}

// Size returns the number of bytes one value of this type occupies in a tuple.
func (t ColumnType) Size() int {
	switch t {
	case ColInt32, ColFloat32:
		return 4
	case ColInt64, ColFloat64:
		return 8
	case ColBool:
		return 1
	case ColText, ColBytes:
		return TextWidth
	default:
		return 0
	}
}

func (t ColumnType) String() string {
	switch t {
	case ColInt32:
		return "INTEGER"
	case ColInt64:
		return "BIGINT"
	case ColBool:
		return "BOOL"
	case ColFloat32:
		return "FLOAT"
	case ColFloat64:
		return "DOUBLE"
	case ColText:
		return "TEXT"
	case ColBytes:
		return "BYTES"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

func (t ColumnType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ColumnType) UnmarshalText(b []byte) error {
	v, err := ParseColumnType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

type Schema struct {
	Cols []Column
}

func (s Schema) NumCols() int { return len(s.Cols) }

// TupleSize is l_r: the byte width of one tuple of this schema.
func (s Schema) TupleSize() int {
	n := 0
	for _, c := range s.Cols {
		n += c.Type.Size()
	}
	return n
}

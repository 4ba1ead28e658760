package catalog

import "github.com/tuannm99/novaplan/internal/record"

func usersMeta() *TableMeta {
	return &TableMeta{
		Name:     "users",
		RowCount: 1000,
		Columns: []ColumnMeta{
			{Name: "id", Type: record.ColInt32, Distinct: 1000, BPlus: true, BPlusLevel: 2},
			{Name: "name", Type: record.ColText, Distinct: 900},
			{Name: "age", Type: record.ColInt32, Distinct: 60, Hash: true},
		},
	}
}

func productsMeta() *TableMeta {
	return &TableMeta{
		Name:     "products",
		RowCount: 200,
		Columns: []ColumnMeta{
			{Name: "id", Type: record.ColInt32, Distinct: 200, Hash: true},
			{Name: "price", Type: record.ColFloat32, Distinct: 150},
		},
	}
}

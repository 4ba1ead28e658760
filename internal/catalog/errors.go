package catalog

import (
	"errors"
	"fmt"
)

var ErrStatsNotFound = errors.New("novaplan: statistics not found")

// StatsNotFoundError is returned when storage cannot resolve a database,
// table or column.
type StatsNotFoundError struct {
	Database string
	Table    string
	Column   string
}

func (e *StatsNotFoundError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("novaplan: no statistics for column %s.%s in database %q", e.Table, e.Column, e.Database)
	case e.Table != "":
		return fmt.Sprintf("novaplan: no table %q in database %q", e.Table, e.Database)
	default:
		return fmt.Sprintf("novaplan: no database %q", e.Database)
	}
}

func (e *StatsNotFoundError) Is(target error) bool { return target == ErrStatsNotFound }

func notFound(database, table, column string) error {
	return &StatsNotFoundError{Database: database, Table: table, Column: column}
}

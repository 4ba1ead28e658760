package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/tuannm99/novaplan/internal/record"
	"github.com/tuannm99/novaplan/pkg/util"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS table_stats (
	database   TEXT NOT NULL,
	name       TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	PRIMARY KEY (database, name)
);
CREATE TABLE IF NOT EXISTS column_stats (
	database       TEXT NOT NULL,
	table_name     TEXT NOT NULL,
	ordinal        INTEGER NOT NULL,
	name           TEXT NOT NULL,
	type           TEXT NOT NULL,
	distinct_count INTEGER NOT NULL,
	bplus          INTEGER NOT NULL DEFAULT 0,
	hash           INTEGER NOT NULL DEFAULT 0,
	bplus_level    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (database, table_name, name)
);`

// SQLiteCatalog persists table metadata in a SQLite file.
type SQLiteCatalog struct {
	db        *sql.DB
	blockSize int
}

var _ Provider = (*SQLiteCatalog)(nil)

func OpenSQLite(path string, blockSize int) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite catalog: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		util.CloseFunc(db)
		return nil, fmt.Errorf("init sqlite catalog: %w", err)
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &SQLiteCatalog{db: db, blockSize: blockSize}, nil
}

func (s *SQLiteCatalog) Close() error {
	return s.db.Close()
}

// Put replaces the metadata of one table in a single transaction.
func (s *SQLiteCatalog) Put(database string, meta *TableMeta) error {
	db, name := NormalizeName(database), NormalizeName(meta.Name)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO table_stats (database, name, row_count) VALUES (?, ?, ?)",
		db, name, meta.RowCount,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec("DELETE FROM column_stats WHERE database = ? AND table_name = ?", db, name); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO column_stats
		(database, table_name, ordinal, name, type, distinct_count, bplus, hash, bplus_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer util.CloseFunc(stmt)

	for i, c := range meta.Columns {
		if _, err := stmt.Exec(db, name, i, NormalizeName(c.Name), c.Type.String(),
			c.Distinct, c.BPlus, c.Hash, c.BPlusLevel); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Table loads the metadata of one table.
func (s *SQLiteCatalog) Table(database, table string) (*TableMeta, error) {
	db, name := NormalizeName(database), NormalizeName(table)

	meta := &TableMeta{Name: name}
	err := s.db.QueryRow(
		"SELECT row_count FROM table_stats WHERE database = ? AND name = ?", db, name,
	).Scan(&meta.RowCount)
	if errors.Is(err, sql.ErrNoRows) {
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM table_stats WHERE database = ?", db).Scan(&n); err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, notFound(database, "", "")
		}
		return nil, notFound(database, table, "")
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT name, type, distinct_count, bplus, hash, bplus_level
		FROM column_stats WHERE database = ? AND table_name = ? ORDER BY ordinal ASC`, db, name)
	if err != nil {
		return nil, err
	}
	defer util.CloseFunc(rows)

	for rows.Next() {
		var (
			c       ColumnMeta
			typName string
		)
		if err := rows.Scan(&c.Name, &typName, &c.Distinct, &c.BPlus, &c.Hash, &c.BPlusLevel); err != nil {
			return nil, err
		}
		if c.Type, err = record.ParseColumnType(typName); err != nil {
			return nil, err
		}
		meta.Columns = append(meta.Columns, c)
	}
	return meta, rows.Err()
}

// Tables lists table names of a database in name order.
func (s *SQLiteCatalog) Tables(database string) ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM table_stats WHERE database = ? ORDER BY name ASC", NormalizeName(database))
	if err != nil {
		return nil, err
	}
	defer util.CloseFunc(rows)

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLiteCatalog) Stats(database, table string) (*Statistic, error) {
	meta, err := s.Table(database, table)
	if err != nil {
		return nil, err
	}
	return meta.Statistic(s.blockSize), nil
}

func (s *SQLiteCatalog) IndexPresence(database, table, column string) (IndexPresence, error) {
	var ip IndexPresence
	err := s.db.QueryRow(`SELECT bplus, hash, bplus_level FROM column_stats
		WHERE database = ? AND table_name = ? AND name = ?`,
		NormalizeName(database), NormalizeName(table), NormalizeName(column),
	).Scan(&ip.BPlus, &ip.Hash, &ip.BPlusLevel)
	if errors.Is(err, sql.ErrNoRows) {
		if _, terr := s.Table(database, table); terr != nil {
			return IndexPresence{}, terr
		}
		return IndexPresence{}, notFound(database, table, column)
	}
	return ip, err
}

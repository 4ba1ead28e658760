// Command catalog imports YAML statistics fixtures into a SQLite catalog
// and lists what it holds.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/tuannm99/novaplan/internal/catalog"
	"github.com/tuannm99/novaplan/pkg/util"
)

func main() {
	var (
		in        = flag.String("in", "", "YAML statistics fixture to import")
		out       = flag.String("db", "novaplan.db", "SQLite catalog file")
		blockSize = flag.Int("block-size", 0, "block size override (0 keeps the fixture's)")
		list      = flag.String("list", "", "print the tables of this database and exit")
	)
	flag.Parse()

	if err := run(os.Stdout, *in, *out, *blockSize, *list); err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, in, out string, blockSize int, list string) error {
	if in == "" && list == "" {
		return fmt.Errorf("one of -in or -list is required")
	}

	var fx *catalog.Fixture
	if in != "" {
		f, err := os.Open(in)
		if err != nil {
			return err
		}
		defer util.CloseFunc(f)
		if fx, err = catalog.DecodeYAML(f); err != nil {
			return err
		}
		if blockSize <= 0 {
			blockSize = fx.BlockSize
		}
	}

	cat, err := catalog.OpenSQLite(out, blockSize)
	if err != nil {
		return err
	}
	defer util.CloseFunc(cat)

	if fx != nil {
		n, err := importFixture(cat, fx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "imported %d tables into %s\n", n, out)
	}
	if list != "" {
		return listTables(w, cat, list)
	}
	return nil
}

func importFixture(cat *catalog.SQLiteCatalog, fx *catalog.Fixture) (int, error) {
	dbs := make([]string, 0, len(fx.Databases))
	for db := range fx.Databases {
		dbs = append(dbs, db)
	}
	sort.Strings(dbs)

	n := 0
	for _, db := range dbs {
		for _, t := range fx.Databases[db] {
			if err := cat.Put(db, t); err != nil {
				return n, fmt.Errorf("import %s.%s: %w", db, t.Name, err)
			}
			n++
		}
	}
	return n, nil
}

func listTables(w io.Writer, cat *catalog.SQLiteCatalog, database string) error {
	names, err := cat.Tables(database)
	if err != nil {
		return err
	}
	for _, name := range names {
		st, err := cat.Stats(database, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-20s rows=%-8d blocks=%-6d columns=%d\n", name, st.NR, st.BR, len(st.Columns))
	}
	return nil
}

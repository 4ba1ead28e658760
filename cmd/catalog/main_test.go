package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaplan/internal/catalog"
)

const fixture = `
block_size: 4096
databases:
  shop:
    - name: users
      rows: 1000
      columns:
        - {name: id, type: INTEGER, distinct: 1000, bplus: true, bplus_level: 2}
    - name: products
      rows: 200
      columns:
        - {name: id, type: INTEGER, distinct: 200, hash: true}
`

func TestRun_ImportAndList(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "stats.yaml")
	db := filepath.Join(dir, "stats.db")
	require.NoError(t, os.WriteFile(in, []byte(fixture), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(&out, in, db, 0, "shop"))
	assert.Contains(t, out.String(), "imported 2 tables")
	assert.Contains(t, out.String(), "products")
	assert.Contains(t, out.String(), "users")

	cat, err := catalog.OpenSQLite(db, 0)
	require.NoError(t, err)
	defer cat.Close()

	ip, err := cat.IndexPresence("shop", "users", "id")
	require.NoError(t, err)
	assert.Equal(t, catalog.IndexPresence{BPlus: true, BPlusLevel: 2}, ip)
}

func TestRun_NeedsInput(t *testing.T) {
	require.Error(t, run(&bytes.Buffer{}, "", filepath.Join(t.TempDir(), "x.db"), 0, ""))
}

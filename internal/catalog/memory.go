package catalog

import (
	"sync"

	"github.com/google/btree"
)

type tableItem struct {
	Database string
	Name     string
	Meta     *TableMeta
}

func (i tableItem) Less(than btree.Item) bool {
	o := than.(tableItem)
	if i.Database != o.Database {
		return i.Database < o.Database
	}
	return i.Name < o.Name
}

// MemoryCatalog keeps table metadata ordered by (database, table).
type MemoryCatalog struct {
	tree      *btree.BTree
	lock      sync.RWMutex
	blockSize int
}

var _ Provider = (*MemoryCatalog)(nil)

func NewMemoryCatalog(blockSize int) *MemoryCatalog {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &MemoryCatalog{
		tree:      btree.New(8),
		blockSize: blockSize,
	}
}

// Put registers or replaces the metadata of one table.
func (c *MemoryCatalog) Put(database string, meta *TableMeta) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.tree.ReplaceOrInsert(tableItem{
		Database: NormalizeName(database),
		Name:     NormalizeName(meta.Name),
		Meta:     meta,
	})
}

func (c *MemoryCatalog) Drop(database, table string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.tree.Delete(tableItem{Database: NormalizeName(database), Name: NormalizeName(table)}) != nil
}

// Table returns the stored metadata of one table.
func (c *MemoryCatalog) Table(database, table string) (*TableMeta, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	db := NormalizeName(database)
	res := c.tree.Get(tableItem{Database: db, Name: NormalizeName(table)})
	if res == nil {
		if !c.hasDatabase(db) {
			return nil, notFound(database, "", "")
		}
		return nil, notFound(database, table, "")
	}
	return res.(tableItem).Meta, nil
}

// Tables lists the tables of a database in name order.
func (c *MemoryCatalog) Tables(database string) []*TableMeta {
	c.lock.RLock()
	defer c.lock.RUnlock()

	db := NormalizeName(database)
	var out []*TableMeta
	c.tree.AscendGreaterOrEqual(tableItem{Database: db}, func(i btree.Item) bool {
		item := i.(tableItem)
		if item.Database != db {
			return false
		}
		out = append(out, item.Meta)
		return true
	})
	return out
}

// Databases lists every database that holds at least one table.
func (c *MemoryCatalog) Databases() []string {
	c.lock.RLock()
	defer c.lock.RUnlock()

	var out []string
	c.tree.Ascend(func(i btree.Item) bool {
		db := i.(tableItem).Database
		if len(out) == 0 || out[len(out)-1] != db {
			out = append(out, db)
		}
		return true
	})
	return out
}

func (c *MemoryCatalog) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.tree.Len()
}

func (c *MemoryCatalog) hasDatabase(db string) bool {
	found := false
	c.tree.AscendGreaterOrEqual(tableItem{Database: db}, func(i btree.Item) bool {
		found = i.(tableItem).Database == db
		return false
	})
	return found
}

func (c *MemoryCatalog) Stats(database, table string) (*Statistic, error) {
	meta, err := c.Table(database, table)
	if err != nil {
		return nil, err
	}
	return meta.Statistic(c.blockSize), nil
}

func (c *MemoryCatalog) IndexPresence(database, table, column string) (IndexPresence, error) {
	meta, err := c.Table(database, table)
	if err != nil {
		return IndexPresence{}, err
	}
	col, ok := meta.column(column)
	if !ok {
		return IndexPresence{}, notFound(database, table, column)
	}
	return IndexPresence{BPlus: col.BPlus, Hash: col.Hash, BPlusLevel: col.BPlusLevel}, nil
}

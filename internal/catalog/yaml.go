package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is the on-disk statistics format:
//
//	block_size: 4096
//	databases:
//	  shop:
//	    - name: users
//	      rows: 1000
//	      columns:
//	        - {name: id, type: INTEGER, distinct: 1000, bplus: true, bplus_level: 2}
type Fixture struct {
	BlockSize int                     `yaml:"block_size"`
	Databases map[string][]*TableMeta `yaml:"databases"`
}

// DecodeYAML reads a statistics fixture.
func DecodeYAML(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return &Fixture{}, nil
		}
		return nil, fmt.Errorf("decode stats fixture: %w", err)
	}
	for db, tables := range fx.Databases {
		for i, t := range tables {
			if t == nil || t.Name == "" {
				return nil, fmt.Errorf("decode stats fixture: database %q table #%d has no name", db, i)
			}
		}
	}
	return &fx, nil
}

// LoadYAML builds a MemoryCatalog from a fixture file. A non-zero
// blockSize overrides the fixture's block_size.
func LoadYAML(path string, blockSize int) (*MemoryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stats fixture: %w", err)
	}

	fx, err := DecodeYAML(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if blockSize <= 0 {
		blockSize = fx.BlockSize
	}

	cat := NewMemoryCatalog(blockSize)
	fx.Apply(cat)
	return cat, nil
}

// Apply registers every fixture table into the catalog.
func (fx *Fixture) Apply(cat *MemoryCatalog) {
	for db, tables := range fx.Databases {
		for _, t := range tables {
			cat.Put(db, t)
		}
	}
}

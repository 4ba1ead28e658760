package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCatalog_PutAndStats(t *testing.T) {
	cat := NewMemoryCatalog(0)
	cat.Put("Shop", usersMeta())
	cat.Put("shop", productsMeta())
	cat.Put("other", productsMeta())

	require.Equal(t, 3, cat.Len())
	assert.Equal(t, []string{"other", "shop"}, cat.Databases())

	tables := cat.Tables("shop")
	require.Len(t, tables, 2)
	assert.Equal(t, "products", tables[0].Name)
	assert.Equal(t, "users", tables[1].Name)

	s, err := cat.Stats("shop", "USERS")
	require.NoError(t, err)
	assert.Equal(t, 1000, s.NR)

	ip, err := cat.IndexPresence("shop", "products", "id")
	require.NoError(t, err)
	assert.True(t, ip.Hash)
	assert.False(t, ip.BPlus)
}

func TestMemoryCatalog_NotFound(t *testing.T) {
	cat := NewMemoryCatalog(4096)
	cat.Put("shop", usersMeta())

	_, err := cat.Stats("nope", "users")
	require.ErrorIs(t, err, ErrStatsNotFound)
	var nf *StatsNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "", nf.Table)

	_, err = cat.Stats("shop", "orders")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "orders", nf.Table)

	_, err = cat.IndexPresence("shop", "users", "email")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "email", nf.Column)
}

func TestMemoryCatalog_Drop(t *testing.T) {
	cat := NewMemoryCatalog(4096)
	cat.Put("shop", usersMeta())

	assert.True(t, cat.Drop("shop", "users"))
	assert.False(t, cat.Drop("shop", "users"))
	assert.Equal(t, 0, cat.Len())
}

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAliases_Substitutes(t *testing.T) {
	c := extract(t, "SELECT u.id , p.name FROM users AS u JOIN products AS p ON p.id = u.id WHERE u.id > 1 ORDER BY p.name")

	aliases, err := ResolveAliases(c)
	require.NoError(t, err)
	assert.Equal(t, AliasMap{"u": "users", "p": "products"}, aliases)

	assert.Equal(t, []string{"users.id", "products.name"}, c.Select)
	assert.Equal(t, "products.id = users.id", Join(c.From[1].On))
	assert.Equal(t, "users.id > 1", Join(c.Where))
	assert.Equal(t, "products.name", c.Order.Attr)
}

func TestResolveAliases_NoAliasLeftBehind(t *testing.T) {
	c := extract(t, "SELECT s.name FROM students AS s , courses AS c WHERE s.cid = c.id AND s.age > 20")
	aliases, err := ResolveAliases(c)
	require.NoError(t, err)

	refs := append([]Token{}, c.Where...)
	for _, s := range c.Select {
		refs = append(refs, Token{Kind: TokIdent, Text: s})
	}
	for _, tok := range refs {
		q, _ := tok.Qualifier()
		if q == "" {
			continue
		}
		_, isAlias := aliases[q]
		assert.False(t, isAlias, tok.Text)
		assert.Contains(t, []string{"students", "courses"}, q)
	}
}

func TestResolveAliases_TableNameQualifierIsValid(t *testing.T) {
	c := extract(t, "SELECT users.id FROM users WHERE users.id = 1")
	aliases, err := ResolveAliases(c)
	require.NoError(t, err)
	assert.Empty(t, aliases)
	assert.Equal(t, []string{"users.id"}, c.Select)
}

func TestResolveAliases_Undefined(t *testing.T) {
	c := extract(t, "SELECT x.a , y.b FROM students AS s WHERE x.a = 1")
	_, err := ResolveAliases(c)

	var ua *UndefinedAliasError
	require.ErrorAs(t, err, &ua)
	assert.Equal(t, []string{"x", "y"}, ua.Aliases)
}

func TestResolveAliases_Duplicate(t *testing.T) {
	c := extract(t, "SELECT a.x FROM t1 AS a , t2 AS a")
	_, err := ResolveAliases(c)
	require.ErrorIs(t, err, ErrDuplicateAlias)
}

func TestResolveAliases_UpdateSkipped(t *testing.T) {
	c := extract(t, "UPDATE users SET age = 1 WHERE z.id = 3")
	aliases, err := ResolveAliases(c)
	require.NoError(t, err)
	assert.Empty(t, aliases)
}

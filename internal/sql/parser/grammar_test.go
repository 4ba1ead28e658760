package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validate(t *testing.T, sql string) (string, error) {
	t.Helper()
	toks, err := Tokenize(sql)
	require.NoError(t, err)
	return DefaultGrammar().Validate(toks)
}

func TestGrammar_AcceptsSupportedForms(t *testing.T) {
	cases := []string{
		"SELECT * FROM users",
		"SELECT id, name FROM users",
		"SELECT u.id FROM users AS u JOIN products AS p ON p.id = u.id WHERE u.id > 1",
		"SELECT a.x FROM a , b WHERE a.x = b.y AND a.z <> 3",
		"SELECT a.x FROM a NATURAL JOIN b ORDER BY a.x DESC LIMIT 10",
		"SELECT a.x FROM a JOIN b ON a.x = b.x AND a.y < b.y JOIN c ON c.k = b.k",
		`SELECT name FROM users WHERE name = "Ann" OR age > 30`,
		"SELECT a FROM t WHERE a + 1 > b * 2",
		"UPDATE users SET age = age + 1 WHERE id = 3",
		"UPDATE users SET age = 1, name = \"x\"",
		"DELETE FROM users",
		"DELETE FROM users WHERE id = 1",
		"CREATE INDEX ON users ( id ) USING BPLUS",
	}
	for _, sql := range cases {
		t.Run(sql, func(t *testing.T) {
			_, err := validate(t, sql)
			require.NoError(t, err)
		})
	}
}

func TestGrammar_SyntaxErrorWindow(t *testing.T) {
	_, err := validate(t, "SELECT a FROM t WHERE WHERE a = 1")

	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 5, se.Pos)
	assert.Equal(t, "WHERE", se.Token)
	assert.Equal(t, []string{"t", "WHERE", "WHERE", "a", "="}, se.Window)
}

func TestGrammar_SyntaxErrorWindowAtEdges(t *testing.T) {
	_, err := validate(t, "FROM a")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Pos)
	assert.Equal(t, []string{"FROM", "a"}, se.Window)
}

func TestGrammar_Incomplete(t *testing.T) {
	for _, sql := range []string{"SELECT a FROM", "SELECT a FROM t WHERE a =", "SELECT a FROM t ORDER BY"} {
		_, err := validate(t, sql)
		require.ErrorIs(t, err, ErrIncompleteQuery, sql)
	}
}

func TestGrammar_KeywordIsNotAnAttribute(t *testing.T) {
	_, err := validate(t, "SELECT FROM FROM t")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
}

func TestGrammar_NormalizationIsIdempotent(t *testing.T) {
	out, err := validate(t, "select  u.id,u.name from users as u where u.id>=1 order by u.id")
	require.NoError(t, err)
	assert.Equal(t, "SELECT u.id , u.name FROM users AS u WHERE u.id >= 1 ORDER BY u.id", out)

	again, err := validate(t, out)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestGrammar_FirstMatchWins(t *testing.T) {
	g, err := LoadGrammar(strings.NewReader(`
START A
FINAL B C
A x B <WORD> C
`))
	require.NoError(t, err)

	toks := []Token{{Kind: TokIdent, Text: "x"}}
	_, err = g.Validate(toks)
	require.NoError(t, err)
	assert.Equal(t, "B", g.Transitions["A"][0].Next)

	// a state spanning two lines keeps declaration order
	g, err = LoadGrammar(strings.NewReader("START A\nFINAL C\nA <WORD> C\nA x B\n"))
	require.NoError(t, err)
	require.Len(t, g.Transitions["A"], 2)
	_, err = g.Validate(toks)
	require.NoError(t, err)
}

func TestLoadGrammar_Errors(t *testing.T) {
	_, err := LoadGrammar(strings.NewReader("FINAL A\n"))
	require.Error(t, err)

	_, err = LoadGrammar(strings.NewReader("START A\nA x B\n"))
	require.Error(t, err)

	_, err = LoadGrammar(strings.NewReader("START A\nFINAL B\nA x\n"))
	require.Error(t, err)

	_, err = LoadGrammar(strings.NewReader("START A\nFINAL B\nA <NOPE> B\n"))
	require.Error(t, err)
}

func TestLoadGrammarFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.dfa")
	require.NoError(t, os.WriteFile(path, []byte("START A\nFINAL B\nA <INT> B\n"), 0o644))

	g, err := LoadGrammarFile(path)
	require.NoError(t, err)

	out, err := g.Validate([]Token{{Kind: TokNumber, Text: "42"}})
	require.NoError(t, err)
	assert.Equal(t, "42", out)

	_, err = g.Validate([]Token{{Kind: TokNumber, Text: "4.2"}})
	require.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	tok := func(s string) Token { return newToken(s) }

	assert.True(t, matchers["<ATTR>"](tok("users.id")))
	assert.False(t, matchers["<ATTR>"](tok("a.b.c")))
	assert.True(t, matchers["<WORD>"](tok("users")))
	assert.False(t, matchers["<WORD>"](tok("users.id")))
	assert.True(t, matchers["<X>"](tok("3.14")))
	assert.True(t, matchers["<X>"](Token{Kind: TokString, Text: `"a"`}))
	assert.False(t, matchers["<X>"](tok("SELECT")))
	assert.True(t, matchers["<TABLE_ATTR>"](Token{Text: "users(id)"}))
	assert.True(t, matchers["<CO>"](Token{Kind: TokOperator, Text: "<>"}))
	assert.False(t, matchers["<CO>"](Token{Kind: TokOperator, Text: "+"}))
	assert.True(t, matchers["<MO>"](Token{Kind: TokOperator, Text: "/"}))
}

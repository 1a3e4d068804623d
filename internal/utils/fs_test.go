package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `toml:"name"`
	Ratio float64  `toml:"ratio"`
	List  []string `toml:"list"`
}

func TestSaveAndLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	in := sample{Name: "x", Ratio: 0.5, List: []string{"a", "b"}}
	require.NoError(t, SaveTOMLFile(in, path))

	var out sample
	require.NoError(t, LoadTOMLFile(path, &out))
	assert.Equal(t, in, out)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestParseTOMLWithRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	content := "[s]\nn = 3\nf = 1\ng = 0.25\nb = true\nstr = \"v\"\nl = [\"a\", 2, \"b\"]\none = \"solo\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	data, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)
	s, ok := ExtractSection(data, "s")
	require.True(t, ok)

	n, ok := ExtractInt64(s, "n")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	f, ok := ExtractFloat(s, "f")
	assert.True(t, ok)
	assert.Equal(t, 1.0, f)
	g, _ := ExtractFloat(s, "g")
	assert.Equal(t, 0.25, g)

	b, ok := ExtractBool(s, "b")
	assert.True(t, ok)
	assert.True(t, b)

	str, ok := ExtractString(s, "str")
	assert.True(t, ok)
	assert.Equal(t, "v", str)

	l, ok := ExtractStrings(s, "l")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, l)
	one, _ := ExtractStrings(s, "one")
	assert.Equal(t, []string{"solo"}, one)

	_, ok = ExtractBool(s, "n")
	assert.False(t, ok)
	_, ok = ExtractSection(data, "missing")
	assert.False(t, ok)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes"), ExpandHome("~/notes"))
	assert.Equal(t, "/abs", ExpandHome("/abs"))
	assert.Equal(t, "~user", ExpandHome("~user"))
}

package category

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddClassSequentialAndIdempotent(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.AddClass("cat"))
	assert.Equal(t, 1, r.AddClass("dog"))
	assert.Equal(t, 0, r.AddClass("cat"))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"cat", "dog"}, r.Names())
}

func TestLookups(t *testing.T) {
	r := NewRegistry()
	r.AddClass("cat")

	id, err := r.ClassNumber("cat")
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	_, err = r.ClassNumber("horse")
	assert.ErrorIs(t, err, ErrNotFound)

	name, err := r.Name(0)
	require.NoError(t, err)
	assert.Equal(t, "cat", name)

	_, err = r.Name(5)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Name(-1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"airplane", "car", "zebra", "bike"} {
		r.AddClass(n)
	}
	path := filepath.Join(t.TempDir(), "dict", "classes.json")
	require.NoError(t, r.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, r.Names(), got.Names())
	for _, n := range r.Names() {
		want, _ := r.ClassNumber(n)
		have, err := got.ClassNumber(n)
		require.NoError(t, err)
		assert.Equal(t, want, have)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)

	dup := filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(dup, []byte(`{"classes":["a","b","a"]}`), 0644))
	_, err = Load(dup)
	assert.Error(t, err)
}

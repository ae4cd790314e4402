package filecheck

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_knownValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	got, err := Digest(path)
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", got)
}

func TestDigest_sameContentDifferentPaths(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("intelix-block-"), 1000) // spans several read blocks

	a := filepath.Join(dir, "a.exe")
	b := filepath.Join(dir, "nested", "renamed.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(b), 0o755))
	require.NoError(t, os.WriteFile(a, content, 0o600))
	require.NoError(t, os.WriteFile(b, content, 0o600))

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)

	assert.Equal(t, da, db)
	assert.Len(t, da, 64)
}

func TestDigest_differentContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("one"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("two"), 0o600))

	da, _ := Digest(a)
	db, _ := Digest(b)
	assert.NotEqual(t, da, db)
}

func TestDigest_missingFile(t *testing.T) {
	_, err := Digest(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

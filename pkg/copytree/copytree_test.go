// Test Type: Unit Test
// Description: Tests for file and tree copying with ignore globs

package copytree_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/relpack/pkg/copytree"
	"github.com/arthur-debert/relpack/pkg/errors"
	"github.com/arthur-debert/relpack/pkg/ignore"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "b")

	require.NoError(t, copytree.Copy(src, dst, nil))

	assert.Equal(t, "a", readFile(t, filepath.Join(dst, "a.txt")))
	assert.Equal(t, "b", readFile(t, filepath.Join(dst, "sub", "b.txt")))
}

func TestCopyMergesAndOverwrites(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "new")
	writeFile(t, filepath.Join(dst, "a.txt"), "old")
	writeFile(t, filepath.Join(dst, "keep.txt"), "kept")

	require.NoError(t, copytree.Copy(src, dst, nil))

	// Last write wins, unrelated files survive.
	assert.Equal(t, "new", readFile(t, filepath.Join(dst, "a.txt")))
	assert.Equal(t, "kept", readFile(t, filepath.Join(dst, "keep.txt")))
}

func TestCopyHonorsIgnores(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "mod.py"), "code")
	writeFile(t, filepath.Join(src, "__pycache__", "mod.pyc"), "bytecode")
	writeFile(t, filepath.Join(src, "native.so"), "binary")

	ignores := ignore.NewSet([]string{"__pycache__", "*.so"})
	require.NoError(t, copytree.Copy(src, dst, ignores))

	assert.FileExists(t, filepath.Join(dst, "mod.py"))
	assert.NoFileExists(t, filepath.Join(dst, "native.so"))
	assert.NoDirExists(t, filepath.Join(dst, "__pycache__"))
}

func TestCopyFileIntoDirectory(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "nested", "dir")
	writeFile(t, filepath.Join(src, "single.txt"), "content")

	require.NoError(t, copytree.Copy(filepath.Join(src, "single.txt"), dst, nil))

	assert.Equal(t, "content", readFile(t, filepath.Join(dst, "single.txt")))
}

func TestCopyMissingSource(t *testing.T) {
	err := copytree.Copy(filepath.Join(t.TempDir(), "absent"), t.TempDir(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrNotFound, errors.GetCode(err))
}

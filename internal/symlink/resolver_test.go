package symlink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fileindex-mcp/pkg/types"
)

// canonicalTempDir returns a temp dir with its own links resolved, so that
// expected paths compare equal on systems where TMPDIR is itself a link
func canonicalTempDir(t *testing.T) string {
	t.Helper()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

// mustSymlink creates a link or skips when the platform does not allow it
func mustSymlink(t *testing.T, target, link string) {
	t.Helper()

	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
}

func TestResolve_SingleHop(t *testing.T) {
	dir := canonicalTempDir(t)
	target := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(target, []byte("a\n"), 0644))
	link := filepath.Join(dir, "link.txt")
	mustSymlink(t, "file.txt", link)

	resolved, err := Resolve(link)
	require.NoError(t, err)
	assert.Equal(t, target, resolved)
}

func TestResolve_Chain(t *testing.T) {
	dir := canonicalTempDir(t)
	target := filepath.Join(dir, "data", "file.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0755))
	require.NoError(t, os.WriteFile(target, []byte("a\n"), 0644))

	mustSymlink(t, target, filepath.Join(dir, "c"))
	mustSymlink(t, "c", filepath.Join(dir, "b"))
	mustSymlink(t, filepath.Join(dir, "b"), filepath.Join(dir, "a"))

	resolved, err := Resolve(filepath.Join(dir, "a"))
	require.NoError(t, err)
	assert.Equal(t, target, resolved)
}

func TestResolve_ThroughLinkedDirectory(t *testing.T) {
	dir := canonicalTempDir(t)
	realDir := filepath.Join(dir, "real")
	require.NoError(t, os.MkdirAll(realDir, 0755))
	target := filepath.Join(realDir, "file.txt")
	require.NoError(t, os.WriteFile(target, []byte("a\n"), 0644))

	mustSymlink(t, realDir, filepath.Join(dir, "alias"))
	link := filepath.Join(dir, "link.txt")
	mustSymlink(t, filepath.Join("alias", "file.txt"), link)

	resolved, err := Resolve(link)
	require.NoError(t, err)
	assert.Equal(t, target, resolved)
}

func TestResolve_Cycle(t *testing.T) {
	dir := canonicalTempDir(t)
	mustSymlink(t, "b", filepath.Join(dir, "a"))
	mustSymlink(t, "a", filepath.Join(dir, "b"))

	_, err := Resolve(filepath.Join(dir, "a"))
	assert.ErrorIs(t, err, types.ErrLinkCycle)
}

func TestResolve_SelfLink(t *testing.T) {
	dir := canonicalTempDir(t)
	mustSymlink(t, "self", filepath.Join(dir, "self"))

	_, err := Resolve(filepath.Join(dir, "self"))
	assert.ErrorIs(t, err, types.ErrLinkCycle)
}

func TestResolve_Broken(t *testing.T) {
	dir := canonicalTempDir(t)
	link := filepath.Join(dir, "dangling")
	mustSymlink(t, filepath.Join(dir, "missing.txt"), link)

	_, err := Resolve(link)
	assert.ErrorIs(t, err, types.ErrBrokenLink)
}

func TestResolve_BrokenMidChain(t *testing.T) {
	dir := canonicalTempDir(t)
	mustSymlink(t, "gone", filepath.Join(dir, "middle"))
	mustSymlink(t, "middle", filepath.Join(dir, "start"))

	_, err := Resolve(filepath.Join(dir, "start"))
	assert.ErrorIs(t, err, types.ErrBrokenLink)
}

func TestResolve_DirectoryTarget(t *testing.T) {
	dir := canonicalTempDir(t)
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	mustSymlink(t, sub, filepath.Join(dir, "subdir"))

	resolved, err := Resolve(filepath.Join(dir, "subdir"))
	require.NoError(t, err)
	assert.Equal(t, sub, resolved, "resolution succeeds; the indexer decides the policy")
}

func TestWithin(t *testing.T) {
	root := filepath.FromSlash("/repo")
	assert.True(t, Within(root, filepath.FromSlash("/repo/a.txt")))
	assert.True(t, Within(root, filepath.FromSlash("/repo/sub/b.txt")))
	assert.True(t, Within(root, root))
	assert.False(t, Within(root, filepath.FromSlash("/repository/a.txt")))
	assert.False(t, Within(root, filepath.FromSlash("/etc/passwd")))
	assert.True(t, Within(root, filepath.FromSlash("/repo/..data/x")))
}

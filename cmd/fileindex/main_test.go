package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fileindex-mcp/internal/storage"
)

// testEnv isolates the command from the caller's environment and .env
func testEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	t.Setenv("FILEINDEX_DB_PATH", dbPath)
	t.Setenv("FILEINDEX_LOG_LEVEL", "error")
	t.Setenv("FILEINDEX_EXCLUDE", "")
	t.Setenv("FILEINDEX_GITIGNORE", "")
	t.Setenv("FILEINDEX_FOLLOW_EXTERNAL", "")
	t.Chdir(t.TempDir())
	return dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func scenarioTree(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("one\ntwo\nthree\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "image.bin"), []byte{0x89, 'P', 'N', 'G', 0, 0, 0, 0}, 0o644))
	if err := os.Symlink("file.txt", filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("Cannot create symlink: %v", err)
	}
	return root
}

func TestIndexCommand(t *testing.T) {
	dbPath := testEnv(t)
	root := scenarioTree(t)

	out, err := execute(t, "index", root, "--wipe")
	require.NoError(t, err)
	assert.Contains(t, out, "hard files: 2")
	assert.Contains(t, out, "soft files: 1")
	assert.Contains(t, out, "failures:   0")

	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	hard, err := store.GetHardFile(context.Background(), filepath.Join(root, "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, 3, hard.NumberOfLines)
}

func TestIndexCommand_DBFlag(t *testing.T) {
	testEnv(t)
	root := scenarioTree(t)
	dbPath := filepath.Join(t.TempDir(), "nested", "other.db")

	_, err := execute(t, "--db", dbPath, "index", root)
	require.NoError(t, err)
	assert.FileExists(t, dbPath)
}

func TestIndexCommand_Exclude(t *testing.T) {
	testEnv(t)
	root := scenarioTree(t)

	out, err := execute(t, "index", root, "--exclude", "*.bin")
	require.NoError(t, err)
	assert.Contains(t, out, "hard files: 1")
}

func TestIndexCommand_InvalidRoot(t *testing.T) {
	testEnv(t)

	_, err := execute(t, "index", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory or does not exist")
}

func TestIndexCommand_RequiresRoot(t *testing.T) {
	testEnv(t)

	_, err := execute(t, "index")
	assert.Error(t, err)
}

func TestQueryCommands(t *testing.T) {
	testEnv(t)
	root := scenarioTree(t)
	_, err := execute(t, "index", root)
	require.NoError(t, err)

	out, err := execute(t, "query", "hard", "%.txt")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(root, "file.txt"))
	assert.Contains(t, out, "lines=3")
	assert.NotContains(t, out, "image.bin")

	out, err = execute(t, "query", "soft", "%")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "link.txt")+" -> "+filepath.Join(root, "file.txt")+"\n", out)
}

func TestMarkCommand(t *testing.T) {
	testEnv(t)
	root := scenarioTree(t)
	_, err := execute(t, "index", root)
	require.NoError(t, err)

	path := filepath.Join(root, "file.txt")
	out, err := execute(t, "mark", path)
	require.NoError(t, err)
	assert.Contains(t, out, "marked "+path)

	out, err = execute(t, "query", "hard", path)
	require.NoError(t, err)
	assert.Contains(t, out, "processed=true")

	_, err = execute(t, "mark", filepath.Join(root, "absent.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not indexed")
}

func TestVersionFlag(t *testing.T) {
	testEnv(t)

	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "fileindex "+version)
	assert.Contains(t, out, "SQLite Driver: "+storage.DriverName)
	assert.Contains(t, out, "Build Mode: "+storage.BuildMode)
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fileindex-mcp/pkg/types"
)

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}

// indexedTree builds file.txt, image.bin and link.txt -> file.txt and indexes it
func indexedTree(t *testing.T, server *Server) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, writeFile(filepath.Join(root, "file.txt"), "one\ntwo\nthree\n"))
	require.NoError(t, writeFile(filepath.Join(root, "image.bin"), "\x00\x01\x02\x03"))
	if err := os.Symlink("file.txt", filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("Cannot create symlink: %v", err)
	}

	_, err = server.handleIndexDirectory(context.Background(), callRequest("index_directory", map[string]interface{}{
		"path": root,
		"wipe": true,
	}))
	require.NoError(t, err)
	return root
}

func TestHandleIndexDirectory(t *testing.T) {
	server := newTestServer(t)
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, writeFile(filepath.Join(root, "a.txt"), "a\n"))
	require.NoError(t, writeFile(filepath.Join(root, "b.txt"), "b\n"))

	result, err := server.handleIndexDirectory(context.Background(), callRequest("index_directory", map[string]interface{}{
		"path": root,
		"wipe": true,
	}))
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, true, out["indexed"])
	assert.Equal(t, root, out["root"])
	assert.Equal(t, float64(2), out["hard_files"])
	assert.Equal(t, float64(0), out["soft_files"])
	assert.Equal(t, float64(0), out["failure_count"])
	assert.NotEmpty(t, out["run_id"])
	assert.NotContains(t, out, "failures")
}

func TestHandleIndexDirectory_ReportsFailures(t *testing.T) {
	server := newTestServer(t)
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	if err := os.Symlink("missing", filepath.Join(root, "broken")); err != nil {
		t.Skipf("Cannot create symlink: %v", err)
	}

	result, err := server.handleIndexDirectory(context.Background(), callRequest("index_directory", map[string]interface{}{
		"path": root,
	}))
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, float64(1), out["failure_count"])
	failures, ok := out["failures"].([]interface{})
	require.True(t, ok)
	assert.Contains(t, failures[0], "broken symbolic link")
}

func TestHandleIndexDirectory_Errors(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, writeFile(file, "x"))

	tests := []struct {
		name string
		args interface{}
		code int
	}{
		{"not a map", "nope", ErrorCodeInvalidParams},
		{"missing path", map[string]interface{}{}, ErrorCodeInvalidParams},
		{"relative path", map[string]interface{}{"path": "relative/dir"}, ErrorCodeInvalidParams},
		{"missing directory", map[string]interface{}{"path": filepath.Join(dir, "missing")}, ErrorCodeInvalidRoot},
		{"file root", map[string]interface{}{"path": file}, ErrorCodeInvalidRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcp.CallToolRequest{}
			req.Params.Arguments = tt.args
			_, err := server.handleIndexDirectory(ctx, req)
			requireMCPError(t, err, tt.code)
		})
	}
}

func TestIndexError(t *testing.T) {
	requireMCPError(t, indexError(fmt.Errorf("wrapped: %w", types.ErrIndexingInProgress)), ErrorCodeIndexingInProgress)
	requireMCPError(t, indexError(fmt.Errorf("/x %w", types.ErrInvalidRoot)), ErrorCodeInvalidRoot)
	requireMCPError(t, indexError(fmt.Errorf("%w: disk full", types.ErrStoreIO)), ErrorCodeInternalError)
}

func TestHandleGetFile(t *testing.T) {
	server := newTestServer(t)
	root := indexedTree(t, server)
	ctx := context.Background()

	t.Run("hard file", func(t *testing.T) {
		result, err := server.handleGetFile(ctx, callRequest("get_file", map[string]interface{}{
			"path": filepath.Join(root, "file.txt"),
		}))
		require.NoError(t, err)
		out := decodeResult(t, result)
		assert.Equal(t, "hard", out["kind"])
		assert.Equal(t, false, out["is_binary"])
		assert.Equal(t, float64(3), out["number_of_lines"])
		assert.Equal(t, float64(14), out["size"])
		assert.Equal(t, false, out["processed"])
	})

	t.Run("binary file", func(t *testing.T) {
		result, err := server.handleGetFile(ctx, callRequest("get_file", map[string]interface{}{
			"path": filepath.Join(root, "image.bin"),
		}))
		require.NoError(t, err)
		out := decodeResult(t, result)
		assert.Equal(t, true, out["is_binary"])
		assert.Equal(t, float64(0), out["number_of_lines"])
	})

	t.Run("soft file", func(t *testing.T) {
		result, err := server.handleGetFile(ctx, callRequest("get_file", map[string]interface{}{
			"path": filepath.Join(root, "link.txt"),
		}))
		require.NoError(t, err)
		out := decodeResult(t, result)
		assert.Equal(t, "soft", out["kind"])
		assert.Equal(t, filepath.Join(root, "file.txt"), out["hard_path"])
		target, ok := out["target"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(3), target["number_of_lines"])
	})

	t.Run("not indexed", func(t *testing.T) {
		_, err := server.handleGetFile(ctx, callRequest("get_file", map[string]interface{}{
			"path": filepath.Join(root, "nope"),
		}))
		requireMCPError(t, err, ErrorCodeNotIndexed)
	})
}

func TestHandleGetFile_ThroughSymlinkedDirectory(t *testing.T) {
	server := newTestServer(t)
	root := indexedTree(t, server)
	ctx := context.Background()

	alias := filepath.Join(t.TempDir(), "alias")
	if err := os.Symlink(root, alias); err != nil {
		t.Skipf("Cannot create symlink: %v", err)
	}

	result, err := server.handleGetFile(ctx, callRequest("get_file", map[string]interface{}{
		"path": filepath.Join(alias, "file.txt"),
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, "hard", out["kind"])
	assert.Equal(t, filepath.Join(root, "file.txt"), out["path"])

	result, err = server.handleGetFile(ctx, callRequest("get_file", map[string]interface{}{
		"path": filepath.Join(alias, "link.txt"),
	}))
	require.NoError(t, err)
	assert.Equal(t, "soft", decodeResult(t, result)["kind"])

	result, err = server.handleMarkProcessed(ctx, callRequest("mark_processed", map[string]interface{}{
		"path": filepath.Join(alias, "file.txt"),
	}))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "file.txt"), decodeResult(t, result)["path"])
}

func TestHandleMarkProcessedAndListUnprocessed(t *testing.T) {
	server := newTestServer(t)
	root := indexedTree(t, server)
	ctx := context.Background()

	result, err := server.handleListUnprocessed(ctx, callRequest("list_unprocessed", nil))
	require.NoError(t, err)
	assert.Equal(t, float64(2), decodeResult(t, result)["count"])

	result, err = server.handleMarkProcessed(ctx, callRequest("mark_processed", map[string]interface{}{
		"path": filepath.Join(root, "file.txt"),
	}))
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, result)["processed"])

	result, err = server.handleListUnprocessed(ctx, callRequest("list_unprocessed", map[string]interface{}{
		"limit": float64(10),
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, float64(1), out["count"])
	files := out["files"].([]interface{})
	assert.Equal(t, filepath.Join(root, "image.bin"), files[0].(map[string]interface{})["path"])

	_, err = server.handleMarkProcessed(ctx, callRequest("mark_processed", map[string]interface{}{
		"path": filepath.Join(root, "link.txt"),
	}))
	requireMCPError(t, err, ErrorCodeNotIndexed)

	_, err = server.handleListUnprocessed(ctx, callRequest("list_unprocessed", map[string]interface{}{
		"limit": float64(0),
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleListSoftFiles(t *testing.T) {
	server := newTestServer(t)
	root := indexedTree(t, server)
	ctx := context.Background()

	result, err := server.handleListSoftFiles(ctx, callRequest("list_soft_files", nil))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, float64(1), out["count"])
	link := out["soft_files"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, filepath.Join(root, "link.txt"), link["path"])
	assert.Equal(t, filepath.Join(root, "file.txt"), link["hard_path"])

	result, err = server.handleListSoftFiles(ctx, callRequest("list_soft_files", map[string]interface{}{
		"target": filepath.Join(root, "image.bin"),
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(0), decodeResult(t, result)["count"])

	result, err = server.handleListSoftFiles(ctx, callRequest("list_soft_files", map[string]interface{}{
		"pattern": "%link%",
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), decodeResult(t, result)["count"])
}

func TestHandleGetStatus(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	result, err := server.handleGetStatus(ctx, callRequest("get_status", nil))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.NotContains(t, out, "last_run")
	assert.Equal(t, false, out["indexing"])

	root := indexedTree(t, server)

	result, err = server.handleGetStatus(ctx, callRequest("get_status", nil))
	require.NoError(t, err)
	out = decodeResult(t, result)

	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["hard_files"])
	assert.Equal(t, float64(1), stats["soft_files"])
	assert.Equal(t, float64(1), stats["binary_files"])
	assert.Equal(t, float64(3), stats["total_lines"])

	last := out["last_run"].(map[string]interface{})
	assert.Equal(t, root, last["root"])
	assert.Equal(t, true, last["wipe"])
	assert.Contains(t, last, "finished_at")
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/fileindex-mcp/internal/indexer"
	"github.com/dshills/fileindex-mcp/internal/storage"
	"github.com/dshills/fileindex-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeInvalidRoot        = -32001 // Path is not a directory or does not exist
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Path has no row in the index
)

// maxReportedFailures caps the failures listed in an index response
const maxReportedFailures = 5

// handleIndexDirectory handles the index_directory tool invocation
func (s *Server) handleIndexDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requireAbsPath(args)
	if err != nil {
		return nil, err
	}

	wipe := getBoolDefault(args, "wipe", false)
	opts, err := indexer.NewOptions(s.config, path, wipe)
	if err != nil {
		return nil, indexError(err)
	}
	opts.SkipUnchanged = getBoolDefault(args, "skip_unchanged", false)

	stats, err := s.indexer.IndexTree(ctx, path, opts)
	if err != nil {
		return nil, indexError(err)
	}

	response := map[string]interface{}{
		"indexed":       true,
		"run_id":        stats.RunID,
		"root":          stats.Root,
		"wipe":          wipe,
		"hard_files":    stats.HardFiles,
		"soft_files":    stats.SoftFiles,
		"unchanged":     stats.Unchanged,
		"skipped":       stats.Skipped,
		"failure_count": len(stats.Failures),
		"duration_ms":   stats.Duration.Milliseconds(),
	}

	if len(stats.Failures) > 0 {
		// Include first few failures
		shown := stats.Failures
		if len(shown) > maxReportedFailures {
			shown = shown[:maxReportedFailures]
		}
		failures := make([]string, 0, len(shown))
		for _, f := range shown {
			failures = append(failures, f.Error())
		}
		response["failures"] = failures
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetFile handles the get_file tool invocation
func (s *Server) handleGetFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requireAbsPath(args)
	if err != nil {
		return nil, err
	}
	path = canonicalPath(path)

	hard, err := s.storage.GetHardFile(ctx, path)
	if err == nil {
		response := hardFileJSON(hard)
		response["kind"] = "hard"
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, internalError("failed to get file", err)
	}

	soft, err := s.storage.GetSoftFile(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notIndexedError(path)
	}
	if err != nil {
		return nil, internalError("failed to get file", err)
	}

	response := map[string]interface{}{
		"kind":      "soft",
		"path":      soft.Path,
		"hard_path": soft.HardPath,
	}
	if target, err := s.storage.GetHardFile(ctx, soft.HardPath); err == nil {
		response["target"] = hardFileJSON(target)
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleMarkProcessed handles the mark_processed tool invocation
func (s *Server) handleMarkProcessed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requireAbsPath(args)
	if err != nil {
		return nil, err
	}
	path = canonicalPath(path)

	err = s.storage.MarkProcessed(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notIndexedError(path)
	}
	if err != nil {
		return nil, internalError("failed to mark processed", err)
	}

	s.logger.Debug("marked processed", zap.String("path", path))
	response := map[string]interface{}{
		"path":      path,
		"processed": true,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListUnprocessed handles the list_unprocessed tool invocation
func (s *Server) handleListUnprocessed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	limit := getIntDefault(args, "limit", DefaultListLimit)
	if limit < 1 || limit > MaxListLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 1000", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	files, err := s.storage.ListUnprocessed(ctx, limit)
	if err != nil {
		return nil, internalError("failed to list unprocessed files", err)
	}

	items := make([]map[string]interface{}, 0, len(files))
	for _, f := range files {
		items = append(items, hardFileJSON(f))
	}
	response := map[string]interface{}{
		"count": len(items),
		"files": items,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListSoftFiles handles the list_soft_files tool invocation
func (s *Server) handleListSoftFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	var (
		links []*storage.SoftFile
		err   error
	)
	if target := getStringDefault(args, "target", ""); target != "" {
		links, err = s.storage.ListSoftFilesByTarget(ctx, target)
	} else {
		links, err = s.storage.QuerySoftFiles(ctx, getStringDefault(args, "pattern", "%"))
	}
	if err != nil {
		return nil, internalError("failed to list soft files", err)
	}

	items := make([]map[string]interface{}, 0, len(links))
	for _, l := range links {
		items = append(items, map[string]interface{}{
			"path":      l.Path,
			"hard_path": l.HardPath,
		})
	}
	response := map[string]interface{}{
		"count":      len(items),
		"soft_files": items,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, internalError("failed to get status", err)
	}

	response := map[string]interface{}{
		"indexing": s.indexer.Running(),
		"statistics": map[string]interface{}{
			"hard_files":   status.HardFilesCount,
			"soft_files":   status.SoftFilesCount,
			"binary_files": status.BinaryFilesCount,
			"unprocessed":  status.UnprocessedCount,
			"nodes":        status.NodesCount,
			"total_bytes":  status.TotalBytes,
			"total_lines":  status.TotalLines,
		},
		"schema_version": status.SchemaVersion,
	}

	if run := status.LastRun; run != nil {
		last := map[string]interface{}{
			"id":         run.ID,
			"root":       run.RootPath,
			"wipe":       run.Wipe,
			"started_at": run.StartedAt.Format(time.RFC3339),
			"hard_files": run.HardFiles,
			"soft_files": run.SoftFiles,
			"skipped":    run.Skipped,
			"failures":   run.Failures,
		}
		if !run.FinishedAt.IsZero() {
			last["finished_at"] = run.FinishedAt.Format(time.RFC3339)
		}
		response["last_run"] = last
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func internalError(message string, err error) error {
	return newMCPError(ErrorCodeInternalError, message, map[string]interface{}{
		"error": err.Error(),
	})
}

func notIndexedError(path string) error {
	return newMCPError(ErrorCodeNotIndexed, "path is not indexed", map[string]interface{}{
		"path": path,
	})
}

// indexError maps indexer errors to MCP error codes
func indexError(err error) error {
	switch {
	case errors.Is(err, types.ErrIndexingInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	case errors.Is(err, types.ErrInvalidRoot):
		return newMCPError(ErrorCodeInvalidRoot, err.Error(), nil)
	default:
		return internalError("indexing failed", err)
	}
}

// requireAbsPath extracts the required absolute "path" parameter
func requireAbsPath(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if !filepath.IsAbs(path) {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": "path must be absolute",
		})
	}
	return filepath.Clean(path), nil
}

// canonicalPath resolves symbolic links in the directory part of path so it
// matches the canonical form rows are stored under. The final element is kept
// as given since soft file rows are keyed by the link itself.
func canonicalPath(path string) string {
	dir, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return path
	}
	return filepath.Join(dir, filepath.Base(path))
}

func hardFileJSON(f *storage.HardFile) map[string]interface{} {
	out := map[string]interface{}{
		"path":            f.Path,
		"size":            f.Size,
		"is_binary":       f.IsBinary,
		"number_of_lines": f.NumberOfLines,
		"processed":       f.Processed,
	}
	if !f.ModTime.IsZero() {
		out["mod_time"] = f.ModTime.Format(time.RFC3339Nano)
	}
	return out
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// DefaultListLimit caps list results when no limit is given
	DefaultListLimit = 100
	// MaxListLimit is the largest accepted limit
	MaxListLimit = 1000
)

// indexDirectoryTool returns the tool definition for index_directory
func indexDirectoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_directory",
		Description: "Index the regular files and symbolic links of a directory tree",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the directory to index",
				},
				"wipe": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, delete every indexed row before walking (full rebuild)",
					"default":     false,
				},
				"skip_unchanged": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, keep stored rows whose size and modification time are unchanged",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// getFileTool returns the tool definition for get_file
func getFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_file",
		Description: "Get the indexed metadata of a hard file, or the target of a soft file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the file or symbolic link",
				},
			},
			Required: []string{"path"},
		},
	}
}

// markProcessedTool returns the tool definition for mark_processed
func markProcessedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "mark_processed",
		Description: "Mark a hard file as processed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of an indexed hard file",
				},
			},
			Required: []string{"path"},
		},
	}
}

// listUnprocessedTool returns the tool definition for list_unprocessed
func listUnprocessedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_unprocessed",
		Description: "List hard files not yet marked processed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of files to return (1-1000)",
					"default":     DefaultListLimit,
					"minimum":     1,
					"maximum":     MaxListLimit,
				},
			},
		},
	}
}

// listSoftFilesTool returns the tool definition for list_soft_files
func listSoftFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_soft_files",
		Description: "List symbolic links and the hard files they resolve to",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "SQL LIKE pattern on the link path (e.g. '/data/%')",
					"default":     "%",
				},
				"target": map[string]interface{}{
					"type":        "string",
					"description": "Only links resolving to this hard file path",
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query index statistics and the most recent run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

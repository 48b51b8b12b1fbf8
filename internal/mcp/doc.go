// Package mcp implements the Model Context Protocol (MCP) server for the
// file index.
//
// The server exposes the index to downstream consumers:
//   - index_directory: Index a directory tree (optionally wiping first)
//   - get_file: Metadata of a hard file, or the target of a soft file
//   - mark_processed: Flag a hard file as processed
//   - list_unprocessed: Hard files not yet processed
//   - list_soft_files: Symbolic links and their resolved hard files
//   - get_status: Row counts and the most recent run
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries the protocol, so all logging goes to stderr or a file.
//
// # Basic Usage
//
//	fileindex serve
//
// # Tool: index_directory
//
//	Request:
//	{
//	  "name": "index_directory",
//	  "arguments": {
//	    "path": "/data/tree",
//	    "wipe": true
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "run_id": "5f0c...",
//	  "root": "/data/tree",
//	  "hard_files": 2,
//	  "soft_files": 1,
//	  "unchanged": 0,
//	  "skipped": 0,
//	  "failure_count": 0,
//	  "duration_ms": 3
//	}
//
// Exclude patterns, worker count, batch size and the external link policy
// come from the server configuration.
//
// # Tool: get_file
//
//	{"name": "get_file", "arguments": {"path": "/data/tree/link.txt"}}
//
// A hard file returns its size, is_binary, number_of_lines and processed
// flag. A soft file returns its hard_path and the target's metadata.
//
// # Error Codes
//
//   - -32602: Invalid parameters
//   - -32603: Internal error (store failure)
//   - -32001: Path is not a directory or does not exist
//   - -32002: Indexing already in progress
//   - -32003: Path is not indexed
package mcp

// Package types provides shared type definitions for the fileindex MCP server.
//
// # Entry Kinds
//
// Every directory entry met during a walk is classified exactly once from its
// own mode bits (Lstat semantics, links are never followed):
//
//	kind := types.KindOf(dirEntry.Type())
//	switch kind {
//	case types.KindRegularFile:  // classify, upsert into hard_files
//	case types.KindSymbolicLink: // resolve, upsert into soft_files
//	case types.KindDirectory:    // traversal node only
//	default:                     // devices, sockets, pipes: skipped
//	}
//
// # Error Kinds
//
// Per-entry errors (ErrUnreadableEntry, ErrBrokenLink, ErrLinkCycle) are
// recovered locally by the indexer: the entry is skipped and reported at the
// end of the run. ErrStoreIO aborts the run. ErrConstraintViolation means a
// soft file was written before its hard file, which is an indexer bug.
//
//	if types.IsEntryError(err) {
//	    stats.Failures = append(stats.Failures, Failure{Path: path, Err: err})
//	}
package types

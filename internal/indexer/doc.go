// Package indexer walks a directory tree and records its regular files and
// symbolic links in the index store.
//
// # Basic Usage
//
//	idx := indexer.New(store, logger)
//
//	stats, err := idx.IndexTree(ctx, "/path/to/tree", &indexer.Options{
//	    Wipe: true,
//	})
//
//	fmt.Printf("Indexed %d files, %d links in %v\n",
//	    stats.HardFiles, stats.SoftFiles, stats.Duration)
//
// # Indexing Pipeline
//
// A run executes these phases:
//
//  1. Wipe: with Options.Wipe, every row is deleted first
//  2. Discover: filepath.WalkDir, which never follows symbolic links, sorts
//     entries into regular files and links; excluded paths are skipped
//  3. Classify: regular files are classified concurrently
//  4. Store hard files: rows are upserted in batched transactions
//  5. Store links: each link is resolved, its target's hard file row is
//     written if missing, then the soft file row is upserted
//
// Every hard file row from phase 4 is committed before phase 5 starts, so a
// soft file row never references a missing hard file.
//
// # Link Policy
//
//   - Broken links and cycles are per-entry failures
//   - Links to directories are never followed and are skipped
//   - Links to other non-regular files are skipped
//   - Links whose target lies outside the root are skipped unless
//     Options.FollowExternal is set
//   - Links whose target is excluded are skipped
//
// # Incremental Indexing
//
// Without Wipe, rows for paths that disappeared from the tree are left in
// place. This staleness is accepted; run with Wipe to drop them. With
// SkipUnchanged, files whose size and modification time match the stored
// row are not reclassified and keep their processed flag. Every other
// written row has processed reset to false.
//
// # Error Handling
//
// Unreadable entries, broken links and link cycles are collected in
// Statistics.Failures and the walk continues. Store errors and context
// cancellation abort the run; rows already committed stay valid.
//
// # Concurrency
//
// An Indexer runs one walk at a time. IndexTree and IndexPath return
// types.ErrIndexingInProgress while another run holds the lock.
package indexer

// Package storage provides SQLite-based persistence for the file index.
//
// # Database Schema
//
// Tables:
//   - hard_files: one row per regular file (size, binary flag, line count,
//     processed flag, modification time)
//   - soft_files: one row per symbolic link, with hard_path referencing
//     hard_files(path)
//   - nodes: named elements inside hard files, recorded by consumers
//   - index_runs: one row per indexer invocation
//   - schema_version: applied migrations
//
// Foreign keys are enforced on every connection. A soft file can only be
// written once its target hard file row exists, and hard file updates are
// performed in place so existing soft files keep a valid reference.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.fileindex/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.UpsertHardFile(ctx, &storage.HardFile{
//	    Path:          "/data/file.txt",
//	    Size:          12,
//	    NumberOfLines: 3,
//	})
//
// # Transactions
//
// Use transactions for atomic batches:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	for _, f := range batch {
//	    if err := tx.UpsertHardFile(ctx, f); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// There is a single underlying connection, so while a transaction is open
// all work must go through it.
//
// # Query Patterns
//
// Path filters use SQL LIKE syntax:
//
//	// Every hard file under /data
//	files, err := db.QueryHardFiles(ctx, "/data/%")
//
//	// Every link to a given file
//	links, err := db.ListSoftFilesByTarget(ctx, "/data/file.txt")
//
// # Errors
//
// Writes that would break referential integrity fail with
// types.ErrConstraintViolation. Other database failures wrap
// types.ErrStoreIO. Lookups of absent rows return ErrNotFound.
//
// # Build Tags
//
// Pure Go Build (default, or purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
//
// CGO Build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo"
package storage

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/fileindex-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A single connection serializes every write and keeps the
	// per-connection foreign_keys pragma in effect
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if needed) the index database at dbPath
// and brings its schema up to date
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.Initialize(context.Background(), false); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Initialize applies pending migrations. With dropExisting every table is
// dropped first, discarding all data.
func (s *SQLiteStorage) Initialize(ctx context.Context, dropExisting bool) error {
	if dropExisting {
		if err := RollbackAll(ctx, s.db); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}
	if err := ApplyMigrations(ctx, s.db); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction. Until it is committed or rolled back the
// storage's own methods block, since there is a single connection.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapStoreError("begin transaction", err)
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return wrapStoreError("commit transaction", err)
	}
	return nil
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// wrapStoreError classifies a driver error. Foreign key failures become
// ErrConstraintViolation, everything else ErrStoreIO.
func wrapStoreError(action string, err error) error {
	if isForeignKeyError(err) {
		return fmt.Errorf("%w: failed to %s: %w", types.ErrConstraintViolation, action, err)
	}
	return fmt.Errorf("%w: failed to %s: %w", types.ErrStoreIO, action, err)
}

// isForeignKeyError matches the message both drivers use for FK failures
func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// modTimeValue converts a time to the stored representation (NULL when zero)
func modTimeValue(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UnixNano()
}

// modTimeFrom converts the stored representation back to a time
func modTimeFrom(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(0, v.Int64)
}

// Hard file operations

// upsertHardFileWithQuerier is the internal implementation that uses a querier.
// ON CONFLICT updates in place; REPLACE would delete the row first and trip
// the foreign key of every soft file pointing at it.
func (s *SQLiteStorage) upsertHardFileWithQuerier(ctx context.Context, q querier, file *HardFile) error {
	if file.IsBinary {
		file.NumberOfLines = 0
	}

	query := `
		INSERT INTO hard_files (path, size, is_binary, number_of_lines, processed, mod_time)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			is_binary = excluded.is_binary,
			number_of_lines = excluded.number_of_lines,
			processed = excluded.processed,
			mod_time = excluded.mod_time
	`
	_, err := q.ExecContext(ctx, query,
		file.Path, file.Size, file.IsBinary, file.NumberOfLines,
		file.Processed, modTimeValue(file.ModTime))
	if err != nil {
		return wrapStoreError("upsert hard file", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertHardFile(ctx context.Context, file *HardFile) error {
	return s.upsertHardFileWithQuerier(ctx, s.querier(), file)
}

const hardFileColumns = `path, size, is_binary, number_of_lines, processed, mod_time`

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHardFile(row scanner) (*HardFile, error) {
	var file HardFile
	var modTime sql.NullInt64
	if err := row.Scan(&file.Path, &file.Size, &file.IsBinary,
		&file.NumberOfLines, &file.Processed, &modTime); err != nil {
		return nil, err
	}
	file.ModTime = modTimeFrom(modTime)
	return &file, nil
}

// getHardFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getHardFileWithQuerier(ctx context.Context, q querier, path string) (*HardFile, error) {
	query := `SELECT ` + hardFileColumns + ` FROM hard_files WHERE path = ?`
	file, err := scanHardFile(q.QueryRowContext(ctx, query, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStoreError("get hard file", err)
	}
	return file, nil
}

func (s *SQLiteStorage) GetHardFile(ctx context.Context, path string) (*HardFile, error) {
	return s.getHardFileWithQuerier(ctx, s.querier(), path)
}

// hardFileExistsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) hardFileExistsWithQuerier(ctx context.Context, q querier, path string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM hard_files WHERE path = ?)`, path).Scan(&exists)
	if err != nil {
		return false, wrapStoreError("check hard file", err)
	}
	return exists, nil
}

func (s *SQLiteStorage) HardFileExists(ctx context.Context, path string) (bool, error) {
	return s.hardFileExistsWithQuerier(ctx, s.querier(), path)
}

// markProcessedWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) markProcessedWithQuerier(ctx context.Context, q querier, path string) error {
	result, err := q.ExecContext(ctx, `UPDATE hard_files SET processed = 1 WHERE path = ?`, path)
	if err != nil {
		return wrapStoreError("mark processed", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapStoreError("mark processed", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) MarkProcessed(ctx context.Context, path string) error {
	return s.markProcessedWithQuerier(ctx, s.querier(), path)
}

// listHardFilesWithQuerier runs a hard_files query and collects the rows
func (s *SQLiteStorage) listHardFilesWithQuerier(ctx context.Context, q querier, action, query string, args ...interface{}) ([]*HardFile, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreError(action, err)
	}
	defer func() { _ = rows.Close() }()

	files := make([]*HardFile, 0)
	for rows.Next() {
		file, err := scanHardFile(rows)
		if err != nil {
			return nil, wrapStoreError(action, err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(action, err)
	}
	return files, nil
}

func (s *SQLiteStorage) queryHardFilesWithQuerier(ctx context.Context, q querier, pattern string) ([]*HardFile, error) {
	return s.listHardFilesWithQuerier(ctx, q, "query hard files",
		`SELECT `+hardFileColumns+` FROM hard_files WHERE path LIKE ? ORDER BY path`, pattern)
}

// QueryHardFiles returns hard files whose path matches a SQL LIKE pattern
// ("%" matches everything), ordered by path
func (s *SQLiteStorage) QueryHardFiles(ctx context.Context, pattern string) ([]*HardFile, error) {
	return s.queryHardFilesWithQuerier(ctx, s.querier(), pattern)
}

func (s *SQLiteStorage) listUnprocessedWithQuerier(ctx context.Context, q querier, limit int) ([]*HardFile, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.listHardFilesWithQuerier(ctx, q, "list unprocessed",
		`SELECT `+hardFileColumns+` FROM hard_files WHERE processed = 0 ORDER BY path LIMIT ?`, limit)
}

// ListUnprocessed returns up to limit hard files not yet marked processed.
// A limit <= 0 means no limit.
func (s *SQLiteStorage) ListUnprocessed(ctx context.Context, limit int) ([]*HardFile, error) {
	return s.listUnprocessedWithQuerier(ctx, s.querier(), limit)
}

// Soft file operations

// upsertSoftFileWithQuerier is the internal implementation that uses a querier.
// The target row is checked up front so the caller gets a clear error; the
// foreign key remains the backstop.
func (s *SQLiteStorage) upsertSoftFileWithQuerier(ctx context.Context, q querier, file *SoftFile) error {
	exists, err := s.hardFileExistsWithQuerier(ctx, q, file.HardPath)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: soft file %s references missing hard file %s",
			types.ErrConstraintViolation, file.Path, file.HardPath)
	}

	query := `
		INSERT INTO soft_files (path, hard_path)
		VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET
			hard_path = excluded.hard_path
	`
	if _, err := q.ExecContext(ctx, query, file.Path, file.HardPath); err != nil {
		return wrapStoreError("upsert soft file", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertSoftFile(ctx context.Context, file *SoftFile) error {
	return s.upsertSoftFileWithQuerier(ctx, s.querier(), file)
}

// getSoftFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getSoftFileWithQuerier(ctx context.Context, q querier, path string) (*SoftFile, error) {
	var file SoftFile
	err := q.QueryRowContext(ctx,
		`SELECT path, hard_path FROM soft_files WHERE path = ?`, path).Scan(&file.Path, &file.HardPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStoreError("get soft file", err)
	}
	return &file, nil
}

func (s *SQLiteStorage) GetSoftFile(ctx context.Context, path string) (*SoftFile, error) {
	return s.getSoftFileWithQuerier(ctx, s.querier(), path)
}

// listSoftFilesWithQuerier runs a soft_files query and collects the rows
func (s *SQLiteStorage) listSoftFilesWithQuerier(ctx context.Context, q querier, action, query string, args ...interface{}) ([]*SoftFile, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreError(action, err)
	}
	defer func() { _ = rows.Close() }()

	files := make([]*SoftFile, 0)
	for rows.Next() {
		var file SoftFile
		if err := rows.Scan(&file.Path, &file.HardPath); err != nil {
			return nil, wrapStoreError(action, err)
		}
		files = append(files, &file)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(action, err)
	}
	return files, nil
}

func (s *SQLiteStorage) querySoftFilesWithQuerier(ctx context.Context, q querier, pattern string) ([]*SoftFile, error) {
	return s.listSoftFilesWithQuerier(ctx, q, "query soft files",
		`SELECT path, hard_path FROM soft_files WHERE path LIKE ? ORDER BY path`, pattern)
}

// QuerySoftFiles returns soft files whose path matches a SQL LIKE pattern
func (s *SQLiteStorage) QuerySoftFiles(ctx context.Context, pattern string) ([]*SoftFile, error) {
	return s.querySoftFilesWithQuerier(ctx, s.querier(), pattern)
}

func (s *SQLiteStorage) softFilesByTargetWithQuerier(ctx context.Context, q querier, hardPath string) ([]*SoftFile, error) {
	return s.listSoftFilesWithQuerier(ctx, q, "list soft files by target",
		`SELECT path, hard_path FROM soft_files WHERE hard_path = ? ORDER BY path`, hardPath)
}

// ListSoftFilesByTarget returns every soft file resolving to hardPath
func (s *SQLiteStorage) ListSoftFilesByTarget(ctx context.Context, hardPath string) ([]*SoftFile, error) {
	return s.softFilesByTargetWithQuerier(ctx, s.querier(), hardPath)
}

// Node operations

// insertNodesWithQuerier is the internal implementation that uses a querier.
// A node's container must already exist, either stored or earlier in nodes.
func (s *SQLiteStorage) insertNodesWithQuerier(ctx context.Context, q querier, nodes []*Node) error {
	for _, node := range nodes {
		var containerPath interface{}
		var containerName interface{}
		if node.Container != nil {
			var exists bool
			err := q.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM nodes WHERE hard_file_path = ? AND name = ?)`,
				node.HardFilePath, *node.Container).Scan(&exists)
			if err != nil {
				return wrapStoreError("check node container", err)
			}
			if !exists {
				return fmt.Errorf("%w: node %s in %s references missing container %s",
					types.ErrConstraintViolation, node.Name, node.HardFilePath, *node.Container)
			}
			containerPath = node.HardFilePath
			containerName = *node.Container
		}

		query := `
			INSERT INTO nodes (hard_file_path, name, type, container_hard_file_path, container_name)
			VALUES (?, ?, ?, ?, ?)
		`
		if _, err := q.ExecContext(ctx, query,
			node.HardFilePath, node.Name, node.Type, containerPath, containerName); err != nil {
			return wrapStoreError("insert node", err)
		}
	}
	return nil
}

// InsertNodes inserts all nodes atomically
func (s *SQLiteStorage) InsertNodes(ctx context.Context, nodes []*Node) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.insertNodesWithQuerier(ctx, tx, nodes); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapStoreError("commit nodes", err)
	}
	return nil
}

// queryNodesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) queryNodesWithQuerier(ctx context.Context, q querier, namePattern, pathPattern string) ([]*Node, error) {
	query := `
		SELECT hard_file_path, name, type, container_name
		FROM nodes
		WHERE hard_file_path LIKE ? AND name LIKE ?
		ORDER BY rowid
	`
	rows, err := q.QueryContext(ctx, query, pathPattern, namePattern)
	if err != nil {
		return nil, wrapStoreError("query nodes", err)
	}
	defer func() { _ = rows.Close() }()

	nodes := make([]*Node, 0)
	for rows.Next() {
		var node Node
		var nodeType sql.NullString
		var container sql.NullString
		if err := rows.Scan(&node.HardFilePath, &node.Name, &nodeType, &container); err != nil {
			return nil, wrapStoreError("query nodes", err)
		}
		node.Type = nodeType.String
		if container.Valid {
			name := container.String
			node.Container = &name
		}
		nodes = append(nodes, &node)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError("query nodes", err)
	}
	return nodes, nil
}

// QueryNodes returns nodes whose name and hard file path match the LIKE patterns
func (s *SQLiteStorage) QueryNodes(ctx context.Context, namePattern, pathPattern string) ([]*Node, error) {
	return s.queryNodesWithQuerier(ctx, s.querier(), namePattern, pathPattern)
}

// Run operations

// createRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createRunWithQuerier(ctx context.Context, q querier, run *IndexRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
		INSERT INTO index_runs (id, root_path, wipe, started_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := q.ExecContext(ctx, query, run.ID, run.RootPath, run.Wipe, run.StartedAt.UnixNano()); err != nil {
		return wrapStoreError("create run", err)
	}
	return nil
}

func (s *SQLiteStorage) CreateRun(ctx context.Context, run *IndexRun) error {
	return s.createRunWithQuerier(ctx, s.querier(), run)
}

// finishRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) finishRunWithQuerier(ctx context.Context, q querier, run *IndexRun) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}

	query := `
		UPDATE index_runs
		SET finished_at = ?, hard_files = ?, soft_files = ?, skipped = ?, failures = ?
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query, run.FinishedAt.UnixNano(),
		run.HardFiles, run.SoftFiles, run.Skipped, run.Failures, run.ID)
	if err != nil {
		return wrapStoreError("finish run", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapStoreError("finish run", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) FinishRun(ctx context.Context, run *IndexRun) error {
	return s.finishRunWithQuerier(ctx, s.querier(), run)
}

// getLatestRunWithQuerier is the internal implementation that uses a querier.
// An empty rootPath matches runs of any root.
func (s *SQLiteStorage) getLatestRunWithQuerier(ctx context.Context, q querier, rootPath string) (*IndexRun, error) {
	query := `
		SELECT id, root_path, wipe, started_at, finished_at,
		       hard_files, soft_files, skipped, failures
		FROM index_runs
		WHERE ? = '' OR root_path = ?
		ORDER BY started_at DESC
		LIMIT 1
	`
	var run IndexRun
	var startedAt int64
	var finishedAt sql.NullInt64
	err := q.QueryRowContext(ctx, query, rootPath, rootPath).Scan(
		&run.ID, &run.RootPath, &run.Wipe, &startedAt, &finishedAt,
		&run.HardFiles, &run.SoftFiles, &run.Skipped, &run.Failures,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStoreError("get latest run", err)
	}
	run.StartedAt = time.Unix(0, startedAt)
	run.FinishedAt = modTimeFrom(finishedAt)
	return &run, nil
}

func (s *SQLiteStorage) GetLatestRun(ctx context.Context, rootPath string) (*IndexRun, error) {
	return s.getLatestRunWithQuerier(ctx, s.querier(), rootPath)
}

// Wipe operations

// wipeWithQuerier deletes dependents before the rows they reference
func (s *SQLiteStorage) wipeWithQuerier(ctx context.Context, q querier) error {
	for _, table := range []string{"nodes", "soft_files", "hard_files"} {
		if _, err := q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return wrapStoreError("wipe "+table, err)
		}
	}
	return nil
}

// Wipe deletes all nodes, soft files and hard files in one transaction
func (s *SQLiteStorage) Wipe(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.wipeWithQuerier(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapStoreError("commit wipe", err)
	}
	return nil
}

// Status operations

// getStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*IndexStatus, error) {
	status := &IndexStatus{}

	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_binary THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN processed THEN 0 ELSE 1 END), 0),
		       COALESCE(SUM(size), 0),
		       COALESCE(SUM(number_of_lines), 0)
		FROM hard_files
	`).Scan(&status.HardFilesCount, &status.BinaryFilesCount, &status.UnprocessedCount,
		&status.TotalBytes, &status.TotalLines)
	if err != nil {
		return nil, wrapStoreError("count hard files", err)
	}

	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM soft_files`).Scan(&status.SoftFilesCount); err != nil {
		return nil, wrapStoreError("count soft files", err)
	}

	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&status.NodesCount); err != nil {
		return nil, wrapStoreError("count nodes", err)
	}

	version, err := currentVersion(ctx, q)
	if err != nil {
		return nil, wrapStoreError("read schema version", err)
	}
	status.SchemaVersion = version.String()

	run, err := s.getLatestRunWithQuerier(ctx, q, "")
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	status.LastRun = run

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*IndexStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// Transaction operations

func (t *sqliteTx) UpsertHardFile(ctx context.Context, file *HardFile) error {
	return t.storage.upsertHardFileWithQuerier(ctx, t.querier(), file)
}

func (t *sqliteTx) GetHardFile(ctx context.Context, path string) (*HardFile, error) {
	return t.storage.getHardFileWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) HardFileExists(ctx context.Context, path string) (bool, error) {
	return t.storage.hardFileExistsWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) MarkProcessed(ctx context.Context, path string) error {
	return t.storage.markProcessedWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) QueryHardFiles(ctx context.Context, pattern string) ([]*HardFile, error) {
	return t.storage.queryHardFilesWithQuerier(ctx, t.querier(), pattern)
}

func (t *sqliteTx) ListUnprocessed(ctx context.Context, limit int) ([]*HardFile, error) {
	return t.storage.listUnprocessedWithQuerier(ctx, t.querier(), limit)
}

func (t *sqliteTx) UpsertSoftFile(ctx context.Context, file *SoftFile) error {
	return t.storage.upsertSoftFileWithQuerier(ctx, t.querier(), file)
}

func (t *sqliteTx) GetSoftFile(ctx context.Context, path string) (*SoftFile, error) {
	return t.storage.getSoftFileWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) QuerySoftFiles(ctx context.Context, pattern string) ([]*SoftFile, error) {
	return t.storage.querySoftFilesWithQuerier(ctx, t.querier(), pattern)
}

func (t *sqliteTx) ListSoftFilesByTarget(ctx context.Context, hardPath string) ([]*SoftFile, error) {
	return t.storage.softFilesByTargetWithQuerier(ctx, t.querier(), hardPath)
}

func (t *sqliteTx) InsertNodes(ctx context.Context, nodes []*Node) error {
	return t.storage.insertNodesWithQuerier(ctx, t.querier(), nodes)
}

func (t *sqliteTx) QueryNodes(ctx context.Context, namePattern, pathPattern string) ([]*Node, error) {
	return t.storage.queryNodesWithQuerier(ctx, t.querier(), namePattern, pathPattern)
}

func (t *sqliteTx) CreateRun(ctx context.Context, run *IndexRun) error {
	return t.storage.createRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) FinishRun(ctx context.Context, run *IndexRun) error {
	return t.storage.finishRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) GetLatestRun(ctx context.Context, rootPath string) (*IndexRun, error) {
	return t.storage.getLatestRunWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) Wipe(ctx context.Context) error {
	return t.storage.wipeWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*IndexStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

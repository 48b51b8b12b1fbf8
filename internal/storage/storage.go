package storage

import (
	"context"
	"time"
)

// Store defines the data operations on the file index. Both the top-level
// storage and its transactions implement it.
type Store interface {
	// Hard file operations
	UpsertHardFile(ctx context.Context, file *HardFile) error
	GetHardFile(ctx context.Context, path string) (*HardFile, error)
	HardFileExists(ctx context.Context, path string) (bool, error)
	MarkProcessed(ctx context.Context, path string) error
	QueryHardFiles(ctx context.Context, pattern string) ([]*HardFile, error)
	ListUnprocessed(ctx context.Context, limit int) ([]*HardFile, error)

	// Soft file operations
	UpsertSoftFile(ctx context.Context, file *SoftFile) error
	GetSoftFile(ctx context.Context, path string) (*SoftFile, error)
	QuerySoftFiles(ctx context.Context, pattern string) ([]*SoftFile, error)
	ListSoftFilesByTarget(ctx context.Context, hardPath string) ([]*SoftFile, error)

	// Node operations
	InsertNodes(ctx context.Context, nodes []*Node) error
	QueryNodes(ctx context.Context, namePattern, pathPattern string) ([]*Node, error)

	// Run operations
	CreateRun(ctx context.Context, run *IndexRun) error
	FinishRun(ctx context.Context, run *IndexRun) error
	GetLatestRun(ctx context.Context, rootPath string) (*IndexRun, error)

	// Wipe deletes every indexed row (runs are kept)
	Wipe(ctx context.Context) error

	// Status operations
	GetStatus(ctx context.Context) (*IndexStatus, error)
}

// Storage is the persistent index: a Store plus lifecycle operations
type Storage interface {
	Store

	// Initialize creates the schema if absent. With dropExisting the schema
	// is dropped and recreated first.
	Initialize(ctx context.Context, dropExisting bool) error
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Store
}

// HardFile represents one regular file on disk at the time of indexing
type HardFile struct {
	Path          string // Absolute, canonical
	Size          int64
	IsBinary      bool
	NumberOfLines int // Always 0 when IsBinary
	Processed     bool
	ModTime       time.Time // Zero when unknown
}

// SoftFile represents one symbolic link and the hard file it resolves to
type SoftFile struct {
	Path     string // Absolute path of the link itself
	HardPath string // References HardFile.Path
}

// Node is a named element inside a hard file, recorded by downstream
// consumers. Container, when set, names another node in the same file.
type Node struct {
	HardFilePath string
	Name         string
	Type         string
	Container    *string // Nullable
}

// IndexRun records one invocation of the indexer
type IndexRun struct {
	ID         string
	RootPath   string
	Wipe       bool
	StartedAt  time.Time
	FinishedAt time.Time // Zero while running or after an aborted run
	HardFiles  int
	SoftFiles  int
	Skipped    int
	Failures   int
}

// IndexStatus contains statistics about the index
type IndexStatus struct {
	HardFilesCount   int
	SoftFilesCount   int
	BinaryFilesCount int
	UnprocessedCount int
	NodesCount       int
	TotalBytes       int64
	TotalLines       int64
	SchemaVersion    string
	LastRun          *IndexRun // Nil when no run is recorded
}

package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/fileindex-mcp/internal/config"
	"github.com/dshills/fileindex-mcp/internal/indexer"
	"github.com/dshills/fileindex-mcp/internal/logging"
	"github.com/dshills/fileindex-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "fileindex-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	config  *config.Config
	storage storage.Storage
	indexer *indexer.Indexer
	logger  *zap.Logger
}

// NewServer opens the index at cfg.DBPath and registers the tools
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	logger = logging.OrNop(logger)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:     mcpServer,
		config:  cfg,
		storage: store,
		indexer: indexer.New(store, logger),
		logger:  logger,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	s.logger.Info("MCP server ready, listening on stdio", zap.String("db_path", s.config.DBPath))
	return server.ServeStdio(s.mcp)
}

// Close releases the storage
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexDirectoryTool(), s.handleIndexDirectory)
	s.mcp.AddTool(getFileTool(), s.handleGetFile)
	s.mcp.AddTool(markProcessedTool(), s.handleMarkProcessed)
	s.mcp.AddTool(listUnprocessedTool(), s.handleListUnprocessed)
	s.mcp.AddTool(listSoftFilesTool(), s.handleListSoftFiles)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

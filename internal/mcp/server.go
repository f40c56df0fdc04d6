// Package mcp exposes the journal as MCP tools over stdio.
package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/pbaille/journal/internal/domain"
	"github.com/pbaille/journal/internal/insights"
	"go.uber.org/zap"
)

// EntryStore is the entry storage the tools use
type EntryStore interface {
	AddEntry(ctx context.Context, userID, content string, createdAt time.Time) (*domain.Entry, error)
	GetEntry(ctx context.Context, id string) (*domain.Entry, error)
	ListEntries(ctx context.Context, userID string, limit, offset int) ([]domain.Entry, error)
}

// Insights produces reports and the narrow accessors
type Insights interface {
	Report(ctx context.Context, userID string) (*domain.AnalysisReport, error)
	Stats(ctx context.Context, userID string) (*insights.Stats, error)
	Prompts(ctx context.Context, userID string) ([]insights.Prompt, error)
}

// EntryTagger tags an entry right after it is written
type EntryTagger interface {
	TagEntry(ctx context.Context, e domain.Entry) error
}

// JournalMCPServer serves one user's journal to an MCP client
type JournalMCPServer struct {
	mcpServer *server.MCPServer
	entries   EntryStore
	insights  Insights
	tagger    EntryTagger
	userID    string
	logger    *zap.Logger
}

// NewJournalMCPServer registers every journal tool. tagger may be nil.
func NewJournalMCPServer(entries EntryStore, ins Insights, tagger EntryTagger, userID, version string, logger *zap.Logger) *JournalMCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &JournalMCPServer{
		mcpServer: server.NewMCPServer(
			"Journal MCP Server",
			version,
			server.WithLogging(),
			server.WithRecovery(),
		),
		entries:  entries,
		insights: ins,
		tagger:   tagger,
		userID:   userID,
		logger:   logger,
	}
	s.registerTools()
	return s
}

// Start runs the stdio event loop
func (s *JournalMCPServer) Start() error {
	s.logger.Info("serving mcp over stdio", zap.String("user_id", s.userID))
	return server.ServeStdio(s.mcpServer)
}

// MCPRawServer exposes the raw mcp-go server
func (s *JournalMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}

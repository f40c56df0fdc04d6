package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pbaille/journal/internal/insights"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

func (s *JournalMCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_insights",
		mcp.WithDescription("Generates the insight report for the journal: main themes, sentiment, writing patterns and highlighted insights."),
		mcp.WithString("format", mcp.Description("Output format: json (default), markdown or text.")),
	), s.handleGetInsights)

	s.mcpServer.AddTool(mcp.NewTool("get_streak",
		mcp.WithDescription("Returns the current writing streak in days and the total number of entries."),
	), s.handleGetStreak)

	s.mcpServer.AddTool(mcp.NewTool("add_entry",
		mcp.WithDescription("Writes a new journal entry and tags its themes and sentiment."),
		mcp.WithString("content", mcp.Required(), mcp.Description("The entry text.")),
	), s.handleAddEntry)

	s.mcpServer.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("Lists the most recent journal entries, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries to return (default 10, max 100).")),
	), s.handleListEntries)

	s.mcpServer.AddTool(mcp.NewTool("get_prompts",
		mcp.WithDescription("Suggests writing prompts based on the journal's leading themes."),
	), s.handleGetPrompts)
}

func (s *JournalMCPServer) handleGetInsights(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, _ := request.Params.Arguments["format"].(string)
	switch format {
	case "", "json", "markdown", "text":
	default:
		return mcp.NewToolResultError("'format' must be json, markdown or text."), nil
	}

	report, err := s.insights.Report(ctx, s.userID)
	if err != nil {
		if !errors.Is(err, insights.ErrInsightsUnavailable) {
			s.logger.Error("insight report failed", zap.Error(err))
		}
		return mcp.NewToolResultError(insights.ErrInsightsUnavailable.Error()), nil
	}

	if format == "markdown" || format == "text" {
		return mcp.NewToolResultText(insights.FormatReport(report, format)), nil
	}
	return jsonResult(report)
}

func (s *JournalMCPServer) handleGetStreak(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.insights.Stats(ctx, s.userID)
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		return mcp.NewToolResultError("Failed to compute streak."), nil
	}
	return jsonResult(stats)
}

func (s *JournalMCPServer) handleAddEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, ok := request.Params.Arguments["content"].(string)
	if !ok || strings.TrimSpace(content) == "" {
		return mcp.NewToolResultError("'content' parameter is required and must be a non-empty string."), nil
	}

	entry, err := s.entries.AddEntry(ctx, s.userID, content, time.Time{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to add entry: %v", err)), nil
	}

	if s.tagger != nil {
		if err := s.tagger.TagEntry(ctx, *entry); err != nil {
			s.logger.Warn("classification skipped", zap.String("entry_id", entry.ID), zap.Error(err))
		} else if tagged, err := s.entries.GetEntry(ctx, entry.ID); err == nil {
			entry = tagged
		}
	}
	return jsonResult(entry)
}

func (s *JournalMCPServer) handleListEntries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := defaultListLimit
	if n, ok := request.Params.Arguments["limit"].(float64); ok {
		if n < 1 {
			return mcp.NewToolResultError("'limit' must be at least 1."), nil
		}
		limit = min(int(n), maxListLimit)
	}

	entries, err := s.entries.ListEntries(ctx, s.userID, limit, 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list entries: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("[]"), nil
	}
	return jsonResult(entries)
}

func (s *JournalMCPServer) handleGetPrompts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompts, err := s.insights.Prompts(ctx, s.userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to suggest prompts: %v", err)), nil
	}
	return jsonResult(prompts)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize result to JSON: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pbaille/journal/internal/domain"
	"github.com/pbaille/journal/internal/store"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// AddEntryRequest is the request body for POST /entries
type AddEntryRequest struct {
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	NoClassify bool      `json:"no_classify,omitempty"`
}

// UpdateEntryRequest is the request body for PUT /entries/:id
type UpdateEntryRequest struct {
	Content string `json:"content"`
}

// ListEntriesResponse is the response body for GET /entries
type ListEntriesResponse struct {
	Entries []domain.Entry `json:"entries"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// SearchResponse is the response body for GET /search
type SearchResponse struct {
	Entries []domain.Entry `json:"entries"`
	Query   string         `json:"query"`
}

func (s *Server) handleAddEntry(c echo.Context) error {
	var req AddEntryRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid add entry request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	ctx := c.Request().Context()
	entry, err := s.entries.AddEntry(ctx, currentUser(c), req.Content, req.CreatedAt)
	if err != nil {
		return s.internalError("add entry failed", err)
	}

	if !req.NoClassify {
		entry = s.classify(ctx, entry)
	}
	return c.JSON(http.StatusCreated, entry)
}

// classify tags entry and returns the stored result; on failure the entry
// stays untagged until the next re-tag run
func (s *Server) classify(ctx context.Context, entry *domain.Entry) *domain.Entry {
	if s.tagger == nil {
		return entry
	}
	if err := s.tagger.TagEntry(ctx, *entry); err != nil {
		s.logger.Warn("classification skipped", zap.String("entry_id", entry.ID), zap.Error(err))
		return entry
	}
	if tagged, err := s.entries.GetEntry(ctx, entry.ID); err == nil {
		return tagged
	}
	return entry
}

func (s *Server) handleListEntries(c echo.Context) error {
	limit := defaultListLimit
	offset := 0
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		limit = min(n, maxListLimit)
	}
	if n, err := strconv.Atoi(c.QueryParam("offset")); err == nil && n >= 0 {
		offset = n
	}

	entries, err := s.entries.ListEntries(c.Request().Context(), currentUser(c), limit, offset)
	if err != nil {
		return s.internalError("list entries failed", err)
	}
	if entries == nil {
		entries = []domain.Entry{}
	}
	return c.JSON(http.StatusOK, ListEntriesResponse{Entries: entries, Limit: limit, Offset: offset})
}

// lookupEntry resolves a full or prefix ID to an entry owned by the caller
func (s *Server) lookupEntry(c echo.Context) (*domain.Entry, error) {
	entry, err := s.entries.FindEntry(c.Request().Context(), currentUser(c), c.Param("id"))
	if errors.Is(err, store.ErrEntryNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "entry not found")
	}
	if err != nil {
		return nil, s.internalError("find entry failed", err)
	}
	return entry, nil
}

func (s *Server) handleGetEntry(c echo.Context) error {
	entry, err := s.lookupEntry(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) handleUpdateEntry(c echo.Context) error {
	var req UpdateEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	entry, err := s.lookupEntry(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	updated, err := s.entries.UpdateEntry(ctx, entry.ID, req.Content)
	if err != nil {
		return s.internalError("update entry failed", err)
	}
	return c.JSON(http.StatusOK, s.classify(ctx, updated))
}

func (s *Server) handleDeleteEntry(c echo.Context) error {
	entry, err := s.lookupEntry(c)
	if err != nil {
		return err
	}
	if err := s.entries.DeleteEntry(c.Request().Context(), entry.ID); err != nil {
		return s.internalError("delete entry failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSearch(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}

	entries, err := s.entries.SearchEntries(c.Request().Context(), currentUser(c), query)
	if err != nil {
		return s.internalError("search entries failed", err)
	}
	if entries == nil {
		entries = []domain.Entry{}
	}
	return c.JSON(http.StatusOK, SearchResponse{Entries: entries, Query: query})
}

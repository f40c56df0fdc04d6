package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pbaille/journal/internal/insights"
	"go.uber.org/zap"
)

// PromptsResponse is the response body for GET /prompts
type PromptsResponse struct {
	Prompts []insights.Prompt `json:"prompts"`
}

func (s *Server) handleInsights(c echo.Context) error {
	format := c.QueryParam("format")
	switch format {
	case "", "json", "markdown", "text":
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "format must be json, markdown or text")
	}

	report, err := s.insights.Report(c.Request().Context(), currentUser(c))
	if errors.Is(err, insights.ErrInsightsUnavailable) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	if err != nil {
		return s.internalError("insight report failed", err)
	}

	if format == "markdown" || format == "text" {
		return c.String(http.StatusOK, insights.FormatReport(report, format))
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.insights.Stats(c.Request().Context(), currentUser(c))
	if err != nil {
		return s.internalError("stats failed", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handlePrompts(c echo.Context) error {
	prompts, err := s.insights.Prompts(c.Request().Context(), currentUser(c))
	if err != nil {
		return s.internalError("prompts failed", err)
	}
	return c.JSON(http.StatusOK, PromptsResponse{Prompts: prompts})
}

func (s *Server) handleRetag(c echo.Context) error {
	if s.tagger == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "tagging is not configured")
	}

	res, err := s.tagger.TagUser(c.Request().Context(), currentUser(c))
	if err != nil {
		s.logger.Warn("retag stopped early", zap.Error(err), zap.Int("tagged", res.Tagged))
		return echo.NewHTTPError(http.StatusGatewayTimeout, "re-tagging did not finish")
	}
	return c.JSON(http.StatusOK, res)
}

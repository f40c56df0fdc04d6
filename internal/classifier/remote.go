package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/pbaille/journal/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultRateLimit   = 5.0
	defaultBurst       = 5
	defaultBaseBackoff = 500 * time.Millisecond
)

// Options configures an HTTP backed classifier
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	Burst      int
	MaxRetries int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.RateLimit <= 0 {
		o.RateLimit = defaultRateLimit
	}
	if o.Burst <= 0 {
		o.Burst = defaultBurst
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	return o
}

// Remote talks to the ML service exposing /analyze-user-history and
// /classify-entry
type Remote struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     *zap.Logger
}

// NewRemote creates a client for the ML service at opts.BaseURL
func NewRemote(opts Options) (*Remote, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("classifier base url required")
	}
	opts = opts.withDefaults()
	return &Remote{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
	}, nil
}

type historyRequest struct {
	Entries []HistoryEntry `json:"entries"`
}

type historyResponse struct {
	Success      bool             `json:"success"`
	TotalEntries int              `json:"total_entries"`
	Analysis     *historyAnalysis `json:"analysis"`
}

type historyAnalysis struct {
	Themes          *[]wireTheme     `json:"themes"`
	SentimentTrends *wireSentiment   `json:"sentiment_trends"`
	Patterns        []domain.Pattern `json:"patterns"`
	Timeline        []wireTimeline   `json:"timeline"`
}

type wireTheme struct {
	Theme         string  `json:"theme"`
	Count         int     `json:"count"`
	Percentage    float64 `json:"percentage"`
	AvgConfidence float64 `json:"avg_confidence"`
	Trend         string  `json:"trend"`
}

type wireSentiment struct {
	Overall *struct {
		Positive           int     `json:"positive"`
		Negative           int     `json:"negative"`
		Neutral            int     `json:"neutral"`
		PositivePercentage float64 `json:"positive_percentage"`
	} `json:"overall"`
	RecentTrend string `json:"recent_trend"`
}

type wireTimeline struct {
	Date      string   `json:"date"`
	Themes    []string `json:"themes"`
	Sentiment string   `json:"sentiment"`
}

// AnalyzeUserHistory posts the entries to /analyze-user-history and
// validates the aggregate that comes back
func (r *Remote) AnalyzeUserHistory(ctx context.Context, entries []HistoryEntry) (*domain.Analysis, error) {
	var resp historyResponse
	if err := r.post(ctx, "/analyze-user-history", historyRequest{Entries: entries}, &resp); err != nil {
		return nil, err
	}
	return resp.toAnalysis()
}

func (h historyResponse) toAnalysis() (*domain.Analysis, error) {
	if !h.Success {
		return nil, fmt.Errorf("%w: service reported failure", ErrUnavailable)
	}
	if h.Analysis == nil {
		return nil, fmt.Errorf("%w: missing analysis", ErrMalformedResponse)
	}
	if h.Analysis.Themes == nil {
		return nil, fmt.Errorf("%w: missing themes", ErrMalformedResponse)
	}
	if h.Analysis.SentimentTrends == nil {
		return nil, fmt.Errorf("%w: missing sentiment_trends", ErrMalformedResponse)
	}

	a := &domain.Analysis{
		Themes:   make([]domain.ThemeTally, 0, len(*h.Analysis.Themes)),
		Patterns: h.Analysis.Patterns,
	}
	for _, t := range *h.Analysis.Themes {
		a.Themes = append(a.Themes, domain.ThemeTally{
			Theme:      t.Theme,
			Count:      t.Count,
			Percentage: int(math.Floor(t.Percentage + 0.5)),
			Trend:      domain.Trend(t.Trend),
		})
	}

	st := h.Analysis.SentimentTrends
	if st.Overall != nil {
		a.SentimentTrends.Overall = domain.SentimentCounts{
			Positive:           st.Overall.Positive,
			Negative:           st.Overall.Negative,
			Neutral:            st.Overall.Neutral,
			PositivePercentage: int(math.Floor(st.Overall.PositivePercentage + 0.5)),
		}
	}
	a.SentimentTrends.RecentTrend = domain.RecentTrend(st.RecentTrend)

	for _, p := range h.Analysis.Timeline {
		point := domain.TimelinePoint{
			Themes:    p.Themes,
			Sentiment: domain.Sentiment(p.Sentiment),
		}
		if d, err := time.Parse(time.RFC3339, p.Date); err == nil {
			point.Date = d
		}
		a.Timeline = append(a.Timeline, point)
	}
	return a, nil
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Success   bool         `json:"success"`
	Themes    []ThemeScore `json:"themes"`
	Sentiment string       `json:"sentiment"`
}

// ClassifyEntry posts a single text to /classify-entry
func (r *Remote) ClassifyEntry(ctx context.Context, text string) (*EntryClassification, error) {
	var resp classifyResponse
	if err := r.post(ctx, "/classify-entry", classifyRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: service reported failure", ErrUnavailable)
	}
	sentiment := domain.Sentiment(resp.Sentiment)
	if !sentiment.Valid() {
		return nil, fmt.Errorf("%w: unknown sentiment %q", ErrMalformedResponse, resp.Sentiment)
	}
	return &EntryClassification{Themes: resp.Themes, Sentiment: sentiment}, nil
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (r *Remote) post(ctx context.Context, path string, in, out any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			r.logger.Debug("retrying classifier request",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}

		lastErr = r.do(ctx, path, body, out)
		if lastErr == nil {
			return nil
		}
		var re *retryableError
		if !errors.As(lastErr, &re) {
			return lastErr
		}
	}
	return lastErr
}

func (r *Remote) do(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return &retryableError{err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &retryableError{err: fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, truncate(data))}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, truncate(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrMalformedResponse, err)
	}
	return nil
}

func truncate(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

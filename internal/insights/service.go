package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pbaille/journal/internal/classifier"
	"github.com/pbaille/journal/internal/domain"
	"github.com/pbaille/journal/internal/store"
	"go.uber.org/zap"
)

// ErrInsightsUnavailable is the only error Report returns
var ErrInsightsUnavailable = errors.New("failed to generate insights")

// EmptyMessage is reported to users without entries
const EmptyMessage = "No entries found. Start journaling to see insights!"

const (
	DefaultWindow          = 100
	DefaultTopThemes       = 5
	DefaultAnalysisTimeout = 30 * time.Second
)

// Store is the storage the service reads entries from
type Store interface {
	FetchEntries(ctx context.Context, userID string, window int, order store.Order) ([]domain.Entry, error)
	FetchTaggedEntries(ctx context.Context, userID string) ([]domain.Entry, error)
	CountEntries(ctx context.Context, userID string) (int, error)
}

// EntryAnalyzer is implemented by analyzers that can use the tags already
// persisted on entries
type EntryAnalyzer interface {
	AnalyzeEntries(ctx context.Context, entries []domain.Entry) (*domain.Analysis, error)
}

// State is a step of report generation
type State int

const (
	StateFetching State = iota
	StatePrimaryAnalysis
	StateSuccess
	StateFallbackFetch
	StateFallbackAggregate
	StateFallbackSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StatePrimaryAnalysis:
		return "primary_analysis"
	case StateSuccess:
		return "success"
	case StateFallbackFetch:
		return "fallback_fetch"
	case StateFallbackAggregate:
		return "fallback_aggregate"
	case StateFallbackSuccess:
		return "fallback_success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options tunes the service; zero values take the defaults
type Options struct {
	Window          int
	RecentWindow    int
	TopThemes       int
	Milestone       int
	AnalysisTimeout time.Duration
	Location        *time.Location
}

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.RecentWindow <= 0 {
		o.RecentWindow = DefaultRecentWindow
	}
	if o.TopThemes <= 0 {
		o.TopThemes = DefaultTopThemes
	}
	if o.Milestone <= 0 {
		o.Milestone = DefaultMilestone
	}
	if o.AnalysisTimeout <= 0 {
		o.AnalysisTimeout = DefaultAnalysisTimeout
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// Service produces insight reports for a user. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	store    Store
	analyzer classifier.HistoryAnalyzer
	composer *Composer
	prompts  *PromptLibrary
	opts     Options
	logger   *zap.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewService creates a Service
func NewService(st Store, analyzer classifier.HistoryAnalyzer, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Service{
		store:    st,
		analyzer: analyzer,
		composer: NewComposer(DefaultLookups(), opts.Milestone),
		prompts:  NewPromptLibrary(),
		opts:     opts,
		logger:   logger,
		metrics:  NewMetrics(),
		now:      time.Now,
	}
}

// Report builds the insight report for userID. When the primary analysis
// fails the report is built from previously persisted tags and marked
// FallbackMode; if that also fails ErrInsightsUnavailable is returned.
func (s *Service) Report(ctx context.Context, userID string) (*domain.AnalysisReport, error) {
	log := s.logger.With(zap.String("user_id", userID))
	enter := func(st State) {
		log.Debug("insight report state", zap.Stringer("state", st))
	}

	enter(StateFetching)
	entries, err := s.store.FetchEntries(ctx, userID, s.opts.Window, store.Ascending)
	if err != nil {
		enter(StateFailed)
		log.Error("fetch entries failed", zap.Error(err))
		s.metrics.ReportsTotal.WithLabelValues("failed").Inc()
		return nil, ErrInsightsUnavailable
	}

	if len(entries) == 0 {
		s.metrics.ReportsTotal.WithLabelValues("empty").Inc()
		return &domain.AnalysisReport{
			Message:      EmptyMessage,
			Themes:       []domain.ThemeTally{},
			Insights:     []domain.InsightRecord{},
			LastAnalyzed: s.now(),
		}, nil
	}

	enter(StatePrimaryAnalysis)
	analysis, err := s.analyze(ctx, entries)
	if err == nil {
		enter(StateSuccess)
		s.metrics.ReportsTotal.WithLabelValues("success").Inc()
		return s.primaryReport(analysis, len(entries)), nil
	}

	reason := fallbackReason(err)
	log.Warn("primary analysis failed, using cached tags",
		zap.String("reason", reason),
		zap.Error(err))
	s.metrics.FallbacksTotal.WithLabelValues(reason).Inc()

	enter(StateFallbackFetch)
	tagged, err := s.store.FetchTaggedEntries(ctx, userID)
	if err != nil {
		enter(StateFailed)
		log.Error("fallback fetch failed", zap.Error(err))
		s.metrics.ReportsTotal.WithLabelValues("failed").Inc()
		return nil, ErrInsightsUnavailable
	}

	enter(StateFallbackAggregate)
	report := &domain.AnalysisReport{
		TotalEntries:    len(tagged),
		Themes:          TopThemes(AggregateThemes(tagged), s.opts.TopThemes),
		SentimentTrends: AggregateSentiment(tagged, s.opts.RecentWindow),
		Insights:        []domain.InsightRecord{},
		FallbackMode:    true,
		LastAnalyzed:    s.now(),
	}
	enter(StateFallbackSuccess)
	s.metrics.ReportsTotal.WithLabelValues("fallback").Inc()
	return report, nil
}

func (s *Service) analyze(ctx context.Context, entries []domain.Entry) (*domain.Analysis, error) {
	if s.analyzer == nil {
		return nil, fmt.Errorf("%w: no analyzer configured", classifier.ErrUnavailable)
	}

	actx, cancel := context.WithTimeout(ctx, s.opts.AnalysisTimeout)
	defer cancel()

	start := time.Now()
	var (
		analysis *domain.Analysis
		err      error
	)
	if ea, ok := s.analyzer.(EntryAnalyzer); ok {
		analysis, err = ea.AnalyzeEntries(actx, entries)
	} else {
		analysis, err = s.analyzer.AnalyzeUserHistory(actx, classifier.ToHistory(entries))
	}
	s.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if actx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", actx.Err(), err)
		}
		return nil, err
	}
	if analysis == nil {
		return nil, fmt.Errorf("%w: empty analysis", classifier.ErrMalformedResponse)
	}
	return analysis, nil
}

func (s *Service) primaryReport(a *domain.Analysis, total int) *domain.AnalysisReport {
	themes := TopThemes(a.Themes, s.opts.TopThemes)
	patterns := a.Patterns
	if patterns == nil {
		patterns = []domain.Pattern{}
	}
	return &domain.AnalysisReport{
		TotalEntries:    total,
		Themes:          themes,
		SentimentTrends: a.SentimentTrends,
		Patterns:        patterns,
		Timeline:        a.Timeline,
		Insights:        s.composer.Compose(a, total),
		LastAnalyzed:    s.now(),
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, classifier.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, classifier.ErrUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}

// CurrentStreak returns the user's writing streak as of now without running
// the analysis pipeline
func (s *Service) CurrentStreak(ctx context.Context, userID string) (int, error) {
	entries, err := s.store.FetchEntries(ctx, userID, 0, store.Descending)
	if err != nil {
		return 0, fmt.Errorf("fetch entries: %w", err)
	}
	return CurrentStreak(entries, s.now().In(s.opts.Location)), nil
}

// EntryCount returns how many entries the user has written
func (s *Service) EntryCount(ctx context.Context, userID string) (int, error) {
	n, err := s.store.CountEntries(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Stats bundles the narrow accessors
type Stats struct {
	TotalEntries  int `json:"total_entries"`
	CurrentStreak int `json:"current_streak"`
}

// Stats returns entry count and streak together
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	n, err := s.EntryCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	streak, err := s.CurrentStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Stats{TotalEntries: n, CurrentStreak: streak}, nil
}

// Prompts suggests writing prompts for the user's leading tagged themes
func (s *Service) Prompts(ctx context.Context, userID string) ([]Prompt, error) {
	tagged, err := s.store.FetchTaggedEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch tagged entries: %w", err)
	}
	return s.prompts.SuggestForThemes(AggregateThemes(tagged)), nil
}

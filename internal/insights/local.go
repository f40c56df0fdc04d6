package insights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/journal/internal/classifier"
	"github.com/pbaille/journal/internal/domain"
)

const (
	timelineLength = 10
	timelineThemes = 2
)

// LocalAnalyzer computes a history analysis in-process by tagging each entry
// with a per-entry classifier and aggregating the tags
type LocalAnalyzer struct {
	classifier classifier.EntryClassifier
	recent     int
	thresholds Thresholds
	loc        *time.Location
}

// NewLocalAnalyzer creates a LocalAnalyzer. A nil loc means UTC.
func NewLocalAnalyzer(c classifier.EntryClassifier, recent int, loc *time.Location) *LocalAnalyzer {
	if loc == nil {
		loc = time.UTC
	}
	return &LocalAnalyzer{
		classifier: c,
		recent:     recent,
		thresholds: DefaultThresholds(),
		loc:        loc,
	}
}

// AnalyzeUserHistory classifies every non-empty entry and aggregates the result
func (l *LocalAnalyzer) AnalyzeUserHistory(ctx context.Context, entries []classifier.HistoryEntry) (*domain.Analysis, error) {
	plain := make([]domain.Entry, len(entries))
	for i, h := range entries {
		plain[i] = domain.Entry{Content: h.Content, CreatedAt: h.CreatedAt}
	}
	return l.AnalyzeEntries(ctx, plain)
}

// AnalyzeEntries aggregates entries, reusing persisted tags and classifying
// only entries that have none
func (l *LocalAnalyzer) AnalyzeEntries(ctx context.Context, entries []domain.Entry) (*domain.Analysis, error) {
	tagged := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Tagged() || strings.TrimSpace(e.Content) == "" {
			tagged = append(tagged, e)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", classifier.ErrUnavailable, err)
		}

		c, err := l.classifier.ClassifyEntry(ctx, e.Content)
		if err != nil {
			return nil, fmt.Errorf("classify entry: %w", err)
		}
		sentiment := c.Sentiment
		e.Themes = c.ThemeNames(0)
		e.Sentiment = &sentiment
		tagged = append(tagged, e)
	}

	return Analyze(tagged, l.recent, l.thresholds, l.loc), nil
}

// Analyze aggregates already tagged entries into a full analysis
func Analyze(entries []domain.Entry, recent int, th Thresholds, loc *time.Location) *domain.Analysis {
	ordered := byCreatedAt(entries)
	return &domain.Analysis{
		Themes:          AggregateThemes(ordered),
		SentimentTrends: AggregateSentiment(ordered, recent),
		Patterns:        DetectPatterns(NewPatternInput(ordered, recent, loc), th),
		Timeline:        timeline(ordered),
	}
}

func timeline(ordered []domain.Entry) []domain.TimelinePoint {
	if len(ordered) > timelineLength {
		ordered = ordered[len(ordered)-timelineLength:]
	}
	points := make([]domain.TimelinePoint, 0, len(ordered))
	for _, e := range ordered {
		themes := uniqueThemes(e.Themes)
		if len(themes) > timelineThemes {
			themes = themes[:timelineThemes]
		}
		p := domain.TimelinePoint{Date: e.CreatedAt, Themes: append([]string{}, themes...)}
		if e.Sentiment != nil {
			p.Sentiment = *e.Sentiment
		}
		points = append(points, p)
	}
	return points
}

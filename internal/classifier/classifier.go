package classifier

import (
	"context"
	"errors"
	"time"

	"github.com/pbaille/journal/internal/domain"
)

var (
	// ErrUnavailable covers transport failures, timeouts and non-2xx replies
	ErrUnavailable = errors.New("classifier unavailable")
	// ErrMalformedResponse is returned when a reply lacks required fields
	ErrMalformedResponse = errors.New("malformed classifier response")
)

// ThemeScore is a theme label with the classifier's confidence
type ThemeScore struct {
	Theme      string  `json:"theme"`
	Confidence float64 `json:"confidence"`
}

// EntryClassification holds the themes and sentiment assigned to one text
type EntryClassification struct {
	Themes    []ThemeScore     `json:"themes"`
	Sentiment domain.Sentiment `json:"sentiment"`
}

// ThemeNames returns the theme labels in classifier order, at most limit
// of them when limit > 0
func (c *EntryClassification) ThemeNames(limit int) []string {
	names := make([]string, 0, len(c.Themes))
	for _, t := range c.Themes {
		if limit > 0 && len(names) == limit {
			break
		}
		names = append(names, t.Theme)
	}
	return names
}

// HistoryEntry is the minimal entry shape sent for history analysis
type HistoryEntry struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryClassifier assigns themes and sentiment to a single text
type EntryClassifier interface {
	ClassifyEntry(ctx context.Context, text string) (*EntryClassification, error)
}

// HistoryAnalyzer produces an aggregate analysis over a user's history
type HistoryAnalyzer interface {
	AnalyzeUserHistory(ctx context.Context, entries []HistoryEntry) (*domain.Analysis, error)
}

// ToHistory converts entries to the history analysis shape, keeping order
func ToHistory(entries []domain.Entry) []HistoryEntry {
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntry{Content: e.Content, CreatedAt: e.CreatedAt}
	}
	return out
}

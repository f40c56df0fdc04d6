// Package tagging classifies untagged journal entries and persists the
// resulting themes and sentiment.
package tagging

import (
	"context"
	"fmt"
	"time"

	"github.com/pbaille/journal/internal/classifier"
	"github.com/pbaille/journal/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultBulkTimeout = 2 * time.Minute
	DefaultBatchSize   = 200
	maxStoredThemes    = 3
)

// Store is the storage the tagger reads from and writes tags to
type Store interface {
	FetchUntaggedEntries(ctx context.Context, userID string, limit int) ([]domain.Entry, error)
	TagEntry(ctx context.Context, id string, themes []string, sentiment *domain.Sentiment) error
	MarkTagAttempt(ctx context.Context, id string) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Result counts what a run did
type Result struct {
	Tagged int `json:"tagged"`
	Failed int `json:"failed"`
}

func (r *Result) add(o Result) {
	r.Tagged += o.Tagged
	r.Failed += o.Failed
}

// Options tunes the tagger; zero values take the defaults
type Options struct {
	BulkTimeout time.Duration
	BatchSize   int
}

// Tagger runs the tagging process
type Tagger struct {
	store      Store
	classifier classifier.EntryClassifier
	opts       Options
	logger     *zap.Logger
}

// New creates a Tagger
func New(st Store, c classifier.EntryClassifier, opts Options, logger *zap.Logger) *Tagger {
	if opts.BulkTimeout <= 0 {
		opts.BulkTimeout = DefaultBulkTimeout
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tagger{store: st, classifier: c, opts: opts, logger: logger}
}

// TagEntry classifies one entry and stores its tags
func (t *Tagger) TagEntry(ctx context.Context, e domain.Entry) error {
	c, err := t.classifier.ClassifyEntry(ctx, e.Content)
	if err != nil {
		return fmt.Errorf("classify entry %s: %w", e.ID, err)
	}

	sentiment := c.Sentiment
	if !sentiment.Valid() {
		sentiment = domain.SentimentNeutral
	}
	if err := t.store.TagEntry(ctx, e.ID, c.ThemeNames(maxStoredThemes), &sentiment); err != nil {
		return fmt.Errorf("store tags: %w", err)
	}
	return nil
}

// TagUser tags up to one batch of the user's untagged entries, bounded by
// the bulk timeout. Per-entry failures are logged, counted and recorded so
// the next batch starts with entries not tried yet. The run stops early only
// when the context ends.
func (t *Tagger) TagUser(ctx context.Context, userID string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.opts.BulkTimeout)
	defer cancel()
	return t.tagUser(ctx, userID)
}

func (t *Tagger) tagUser(ctx context.Context, userID string) (Result, error) {
	var res Result

	entries, err := t.store.FetchUntaggedEntries(ctx, userID, t.opts.BatchSize)
	if err != nil {
		return res, fmt.Errorf("fetch untagged entries: %w", err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("tag entries: %w", err)
		}
		if err := t.TagEntry(ctx, e); err != nil {
			res.Failed++
			t.logger.Warn("tag entry failed",
				zap.String("user_id", userID),
				zap.String("entry_id", e.ID),
				zap.Error(err))
			if err := t.store.MarkTagAttempt(ctx, e.ID); err != nil {
				t.logger.Warn("record tag attempt failed", zap.String("entry_id", e.ID), zap.Error(err))
			}
			continue
		}
		res.Tagged++
	}

	t.logger.Info("tagged entries",
		zap.String("user_id", userID),
		zap.Int("tagged", res.Tagged),
		zap.Int("failed", res.Failed))
	return res, nil
}

// TagAll tags every user's untagged entries within one bulk timeout
func (t *Tagger) TagAll(ctx context.Context) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.opts.BulkTimeout)
	defer cancel()

	var total Result
	users, err := t.store.ListUserIDs(ctx)
	if err != nil {
		return total, fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		res, err := t.tagUser(ctx, u)
		total.add(res)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

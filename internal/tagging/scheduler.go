package tagging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const stopTimeout = 5 * time.Second

// Scheduler runs TagAll on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron   *cron.Cron
	tagger *Tagger
	logger *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler parses spec (standard five-field or @every/@hourly forms)
func NewScheduler(t *Tagger, spec string, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		tagger: t,
		logger: logger,
		ctx:    context.Background(),
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("parse tagging schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduling; runs stop when ctx is done or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("tagging scheduler started")
}

// Stop cancels a running job and waits briefly for it to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-time.After(stopTimeout):
		s.logger.Warn("tagging scheduler stop timed out")
	}
	s.logger.Info("tagging scheduler stopped")
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	start := time.Now()
	res, err := s.tagger.TagAll(ctx)
	if err != nil {
		s.logger.Error("scheduled tagging failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled tagging done",
		zap.Int("tagged", res.Tagged),
		zap.Int("failed", res.Failed),
		zap.Duration("took", time.Since(start)))
}

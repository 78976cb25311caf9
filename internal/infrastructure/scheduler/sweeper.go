package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SweeperConfig holds the periodic sweep intervals and batch sizes.
type SweeperConfig struct {
	TrackingSweepInterval  time.Duration
	TrackingSweepBatchSize int
	WebhookRetryInterval   time.Duration
	WebhookRetryBatchSize  int
}

// DefaultSweeperConfig returns the default sweep cadence.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		TrackingSweepInterval:  15 * time.Minute,
		TrackingSweepBatchSize: 100,
		WebhookRetryInterval:   5 * time.Minute,
		WebhookRetryBatchSize:  50,
	}
}

// Sweeper submits recurring sweep jobs on fixed intervals. The tracking
// sweep polls carriers for shipments that webhooks missed; the webhook
// retry sweep reprocesses failed carrier events.
type Sweeper struct {
	config    SweeperConfig
	scheduler *Scheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweeper creates a sweeper feeding the given scheduler.
func NewSweeper(config SweeperConfig, scheduler *Scheduler, logger *zap.Logger) *Sweeper {
	defaults := DefaultSweeperConfig()
	if config.TrackingSweepInterval <= 0 {
		config.TrackingSweepInterval = defaults.TrackingSweepInterval
	}
	if config.TrackingSweepBatchSize <= 0 {
		config.TrackingSweepBatchSize = defaults.TrackingSweepBatchSize
	}
	if config.WebhookRetryInterval <= 0 {
		config.WebhookRetryInterval = defaults.WebhookRetryInterval
	}
	if config.WebhookRetryBatchSize <= 0 {
		config.WebhookRetryBatchSize = defaults.WebhookRetryBatchSize
	}
	return &Sweeper{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Start begins the sweep loops.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.runLoop(ctx, s.config.TrackingSweepInterval, s.submitTrackingSweep)
	go s.runLoop(ctx, s.config.WebhookRetryInterval, s.submitWebhookRetry)

	s.logger.Info("sweeper started",
		zap.Duration("tracking_interval", s.config.TrackingSweepInterval),
		zap.Duration("webhook_retry_interval", s.config.WebhookRetryInterval),
	)
	return nil
}

// Stop halts the sweep loops.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) runLoop(ctx context.Context, interval time.Duration, submit func()) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			submit()
		}
	}
}

func (s *Sweeper) submitTrackingSweep() {
	job := NewJob(JobKindTrackingSweep, 0)
	job.BatchSize = s.config.TrackingSweepBatchSize
	if err := s.scheduler.Submit(job); err != nil {
		s.logger.Warn("failed to submit tracking sweep", zap.Error(err))
	}
}

func (s *Sweeper) submitWebhookRetry() {
	job := NewJob(JobKindWebhookRetry, 0)
	job.BatchSize = s.config.WebhookRetryBatchSize
	if err := s.scheduler.Submit(job); err != nil {
		s.logger.Warn("failed to submit webhook retry sweep", zap.Error(err))
	}
}

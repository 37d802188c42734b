package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type SyncRunner interface {
	Run(ctx context.Context) (synced, failed int, err error)
}

// SyncScheduler runs a sync pass on a fixed interval. A pass that outlasts the
// interval delays the next one instead of overlapping it.
type SyncScheduler struct {
	scheduler gocron.Scheduler
	runner    SyncRunner
	interval  time.Duration
}

func NewSyncScheduler(runner SyncRunner, interval time.Duration) (*SyncScheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sync interval must be positive, got %s", interval)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &SyncScheduler{
		scheduler: scheduler,
		runner:    runner,
		interval:  interval,
	}, nil
}

func (s *SyncScheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.runOnce, ctx),
		gocron.WithName("crm-sync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("register sync job: %w", err)
	}

	slog.Info("🕒 Sync scheduler started", "interval", s.interval)
	s.scheduler.Start()
	return nil
}

func (s *SyncScheduler) Stop() error {
	slog.Info("Sync scheduler stopping")
	return s.scheduler.Shutdown()
}

func (s *SyncScheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	synced, failed, err := s.runner.Run(ctx)
	if err != nil {
		slog.Error("❌ Scheduled sync failed", "error", err)
		return
	}
	if synced > 0 || failed > 0 {
		slog.Info("✅ Scheduled sync finished", "synced", synced, "failed", failed)
	}
}

package database

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// PendingChannel is the NOTIFY channel the users insert trigger publishes on.
const PendingChannel = "users_pending"

type SyncRunner interface {
	Run(ctx context.Context) (synced, failed int, err error)
}

// PendingListener kicks a sync run shortly after users are inserted. Bursts of
// inserts inside the debounce window collapse into one run.
type PendingListener struct {
	ConnString   string
	Debounce     time.Duration
	PingInterval time.Duration
	Runner       SyncRunner
}

func NewPendingListener(connString string, debounce time.Duration, runner SyncRunner) *PendingListener {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &PendingListener{
		ConnString:   connString,
		Debounce:     debounce,
		PingInterval: 90 * time.Second,
		Runner:       runner,
	}
}

// Start blocks until ctx is done.
func (l *PendingListener) Start(ctx context.Context) error {
	listener := pq.NewListener(l.ConnString, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("Postgres listener event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(PendingChannel); err != nil {
		return err
	}
	slog.Info("👂 Listening for pending users", "channel", PendingChannel)

	return l.consume(ctx, listener.Notify, listener.Ping)
}

func (l *PendingListener) consume(ctx context.Context, notifications <-chan *pq.Notification, ping func() error) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer, fire = nil, nil
	}
	defer stopTimer()

	keepalive := time.NewTicker(l.PingInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case n, ok := <-notifications:
			if !ok {
				return errors.New("postgres listener closed")
			}
			// a nil notification follows a reconnect; inserts may have been missed
			if n == nil {
				slog.Info("Postgres listener reconnected")
			} else {
				slog.Debug("Pending user notification", "user_id", n.Extra)
			}
			if timer == nil {
				timer = time.NewTimer(l.Debounce)
				fire = timer.C
			}

		case <-fire:
			timer, fire = nil, nil
			l.trigger(ctx)

		case <-keepalive.C:
			if ping == nil {
				continue
			}
			if err := ping(); err != nil {
				slog.Warn("Postgres listener ping failed", "error", err)
			}
		}
	}
}

func (l *PendingListener) trigger(ctx context.Context) {
	synced, failed, err := l.Runner.Run(ctx)
	if err != nil {
		slog.Error("Sync triggered by insert failed", "error", err)
		return
	}
	slog.Info("Sync triggered by insert finished", "synced", synced, "failed", failed)
}

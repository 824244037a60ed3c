// Package scheduler runs the periodic explorer sync for the configured wallet.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/baharkarakas/chainspend/internal/services"
)

// SyncFunc matches services.SyncService.Sync.
type SyncFunc func(ctx context.Context, userID int64, account string, src services.Fetcher) (services.SyncResult, error)

type Scheduler struct {
	c       *cron.Cron
	log     *slog.Logger
	timeout time.Duration
}

// New schedules a sync of account on schedule (standard 5-field cron or @every/@hourly descriptors).
func New(schedule string, userID int64, account string, src services.Fetcher, sync SyncFunc, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Scheduler{
		// a slow explorer must not pile up overlapping runs
		c:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:     log,
		timeout: 2 * time.Minute,
	}
	_, err := s.c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		res, err := sync(ctx, userID, account, src)
		if err != nil {
			s.log.Error("scheduled sync", "account", account, "err", err)
			return
		}
		s.log.Info("scheduled sync", "account", account, "fetched", res.Fetched, "added", res.Added)
	})
	if err != nil {
		return nil, fmt.Errorf("bad schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop prevents new runs and waits for a running one, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
	}
}

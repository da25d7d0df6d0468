package app

import (
	"context"
	"errors"

	appintegration "github.com/bookstore/backend/internal/application/integration"
	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/bookstore/backend/internal/infrastructure/cache"
	"github.com/bookstore/backend/internal/infrastructure/config"
	"github.com/bookstore/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

// Scheduled task names
const (
	TaskProductSync = "erp-product-sync"
	TaskOrderPush   = "erp-order-push"
)

// NewRunLock returns the Redis lock when enabled. Without Redis a
// process-local lock still serializes runs inside this process.
func NewRunLock(ctx context.Context, cfg *config.Config) (shared.RunLock, error) {
	if !cfg.Lock.Enabled {
		return cache.NewInMemoryRunLock(), nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	return cache.NewRedisRunLock(client), nil
}

// ScheduledTasks returns the periodic ERP jobs enabled in configuration.
// Both jobs need the outbound client; without it the list is empty.
func (s *Services) ScheduledTasks(lock shared.RunLock) ([]scheduler.Task, error) {
	sc := s.cfg.Scheduler
	if !sc.Enabled {
		return nil, nil
	}
	if s.ERP == nil {
		s.log.Warn("Scheduler enabled but ERP client is not configured", zap.Error(s.ERPErr))
		return nil, nil
	}

	var tasks []scheduler.Task
	if sc.ProductSyncInterval > 0 {
		job, err := s.ProductSync(appintegration.WithRunLock(lock, s.cfg.Lock.TTL))
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, scheduler.Task{
			Name:     TaskProductSync,
			Interval: sc.ProductSyncInterval,
			Run: func(ctx context.Context) error {
				stats, err := job.Sync(ctx, appintegration.SyncOptions{Incremental: true})
				if errors.Is(err, appintegration.ErrSyncAlreadyRunning) {
					s.log.Info("Skipping scheduled product sync, another run holds the lock")
					return nil
				}
				if err != nil {
					return err
				}
				s.log.Info("Scheduled product sync finished",
					zap.Int("created", stats.Created),
					zap.Int("updated", stats.Updated),
					zap.Int("skipped", stats.Skipped),
					zap.Int("errors", stats.Errors),
				)
				return nil
			},
		})
	}
	if sc.OrderPushInterval > 0 {
		tasks = append(tasks, scheduler.Task{
			Name:     TaskOrderPush,
			Interval: sc.OrderPushInterval,
			Run: func(ctx context.Context) error {
				report, err := s.OrderExport.SendPending(ctx, appintegration.PendingOrderQuery{})
				if err != nil {
					return err
				}
				if len(report.Failures) > 0 {
					s.log.Warn("Scheduled order push had failures",
						zap.Int("sent", report.Sent),
						zap.Int("errors", len(report.Failures)),
					)
				}
				return nil
			},
		})
	}
	return tasks, nil
}

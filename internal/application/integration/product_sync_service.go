package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/integration"
	"github.com/bookstore/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	tracerName         = "github.com/bookstore/backend/internal/application/integration"
	productSyncLockKey = "erp:product-sync"
)

// ErrSyncAlreadyRunning is returned when another process holds the sync lock
var ErrSyncAlreadyRunning = errors.New("integration: ERP product sync is already running")

// ProductSyncService pages through the ERP product listing and upserts every
// record, tracking a watermark for incremental runs.
type ProductSyncService struct {
	source   integration.ProductSource
	upserter *ProductUpsertService
	states   catalog.SyncStateRepository
	lock     shared.RunLock
	lockTTL  time.Duration
	pageSize int
	now      func() time.Time
	logger   *zap.Logger
}

// ProductSyncOption configures a ProductSyncService
type ProductSyncOption func(*ProductSyncService)

// WithRunLock guards runs with lock held for at most ttl
func WithRunLock(lock shared.RunLock, ttl time.Duration) ProductSyncOption {
	return func(s *ProductSyncService) {
		s.lock = lock
		s.lockTTL = ttl
	}
}

// WithDefaultPageSize sets the page size used when a run does not specify one
func WithDefaultPageSize(size int) ProductSyncOption {
	return func(s *ProductSyncService) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithClock overrides the time source used for the watermark
func WithClock(now func() time.Time) ProductSyncOption {
	return func(s *ProductSyncService) {
		s.now = now
	}
}

// NewProductSyncService creates a new ProductSyncService
func NewProductSyncService(
	source integration.ProductSource,
	upserter *ProductUpsertService,
	states catalog.SyncStateRepository,
	logger *zap.Logger,
	opts ...ProductSyncOption,
) *ProductSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ProductSyncService{
		source:   source,
		upserter: upserter,
		states:   states,
		pageSize: DefaultProductPageSize,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync runs one product sync. Per-record failures are counted in the stats;
// listing failures abort the run and leave the watermark untouched.
func (s *ProductSyncService) Sync(ctx context.Context, opts SyncOptions) (SyncStats, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "erp.products.sync")
	defer span.End()

	var stats SyncStats
	if s.lock != nil {
		release, acquired, err := s.lock.TryAcquire(ctx, productSyncLockKey, s.lockTTL)
		if err != nil {
			return stats, fmt.Errorf("acquire sync lock: %w", err)
		}
		if !acquired {
			return stats, ErrSyncAlreadyRunning
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release sync lock", zap.Error(err))
			}
		}()
	}

	since, err := s.effectiveSince(ctx, opts)
	if err != nil {
		return stats, err
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	span.SetAttributes(
		attribute.String("erp.updated_since", since),
		attribute.Int("erp.page_size", pageSize),
		attribute.Bool("erp.dry_run", opts.DryRun),
	)
	s.logger.Info("Starting ERP product sync",
		zap.String("updated_since", since),
		zap.Int("page_size", pageSize),
		zap.Int("limit", opts.Limit),
		zap.Bool("dry_run", opts.DryRun),
	)

	processed := 0
	limitReached := func() bool {
		return opts.Limit > 0 && processed >= opts.Limit
	}
	var maxUpdatedAt *time.Time

	query := integration.ProductListQuery{UpdatedSince: since, PageSize: pageSize}
	err = s.source.ListProducts(ctx, query, func(page []any) error {
		for _, raw := range page {
			if limitReached() {
				return integration.ErrStopPaging
			}
			if updatedAt := s.processRecord(ctx, raw, opts.DryRun, &stats); updatedAt != nil {
				if maxUpdatedAt == nil || updatedAt.After(*maxUpdatedAt) {
					maxUpdatedAt = updatedAt
				}
			}
			processed++
		}
		if limitReached() {
			return integration.ErrStopPaging
		}
		return nil
	})
	if err != nil && !errors.Is(err, integration.ErrStopPaging) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing failed")
		s.logger.Error("ERP product listing failed",
			zap.Int("processed", processed),
			zap.Error(err),
		)
		return stats, fmt.Errorf("list ERP products: %w", err)
	}

	if !opts.DryRun {
		if err := s.writeWatermark(ctx, maxUpdatedAt, since != ""); err != nil {
			return stats, err
		}
	}

	span.SetAttributes(
		attribute.Int("erp.created", stats.Created),
		attribute.Int("erp.updated", stats.Updated),
		attribute.Int("erp.errors", stats.Errors),
	)
	s.logger.Info("ERP product sync finished",
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors),
	)
	return stats, nil
}

// processRecord upserts one record and returns its updated_at on success
func (s *ProductSyncService) processRecord(ctx context.Context, raw any, dryRun bool, stats *SyncStats) *time.Time {
	if raw == nil {
		stats.Skipped++
		return nil
	}
	result, err := s.upserter.Upsert(ctx, raw, dryRun)
	if err != nil {
		stats.Errors++
		erpID := ""
		if payload, ok := integration.AsObject(raw); ok {
			erpID, _ = catalog.CleanText(payload["id"])
		}
		s.logger.Error("ERP product sync failed for record",
			zap.String("erp_product_id", erpID),
			zap.Error(err),
		)
		return nil
	}
	switch result.Status {
	case UpsertStatusCreated:
		stats.Created++
	case UpsertStatusUpdated:
		stats.Updated++
	}
	return result.UpdatedAt
}

// effectiveSince resolves the updated_since filter: explicit override, then
// the stored watermark for incremental runs, else none.
func (s *ProductSyncService) effectiveSince(ctx context.Context, opts SyncOptions) (string, error) {
	if explicit := strings.TrimSpace(opts.UpdatedSince); explicit != "" {
		if t, ok := ParseTimestamp(explicit); ok {
			return FormatTimestamp(t), nil
		}
		return explicit, nil
	}
	if !opts.Incremental {
		return "", nil
	}
	state, err := s.states.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("read sync state: %w", err)
	}
	if state == nil || state.LastSyncedAt == nil {
		return "", nil
	}
	return FormatTimestamp(*state.LastSyncedAt), nil
}

func (s *ProductSyncService) writeWatermark(ctx context.Context, maxUpdatedAt *time.Time, hadSince bool) error {
	state, err := s.states.Get(ctx)
	if err != nil {
		return fmt.Errorf("read sync state: %w", err)
	}
	if state == nil {
		state = &catalog.SyncState{}
	}
	switch {
	case maxUpdatedAt != nil:
		state.Advance(*maxUpdatedAt)
	case !hadSince:
		state.Advance(s.now())
	default:
		state.UpdatedAt = s.now().UTC()
	}
	if err := s.states.Save(ctx, state); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

// Package app assembles repositories, the ERP client and the application
// services from configuration. Every command shares this wiring.
package app

import (
	"errors"

	appintegration "github.com/bookstore/backend/internal/application/integration"
	"github.com/bookstore/backend/internal/domain/integration"
	"github.com/bookstore/backend/internal/infrastructure/config"
	"github.com/bookstore/backend/internal/infrastructure/erp"
	"github.com/bookstore/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services holds the assembled application services
type Services struct {
	Taxonomy    *appintegration.TaxonomyResolver
	Upserter    *appintegration.ProductUpsertService
	Inbound     *appintegration.InboundService
	OrderExport *appintegration.OrderExportService

	// ERP is nil when the outbound integration is not configured
	ERP *erp.Client
	// ERPErr explains why ERP is nil
	ERPErr error

	repos repositories
	cfg   *config.Config
	log   *zap.Logger
}

type repositories struct {
	categories *persistence.GormCategoryRepository
	genres     *persistence.GormGenreRepository
	products   *persistence.GormProductRepository
	orders     *persistence.GormOrderRepository
	syncStates *persistence.GormSyncStateRepository
}

// New wires the services on top of db. A missing ERP configuration is not an
// error here; commands that need the client check ERPErr.
func New(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*Services, error) {
	repos := repositories{
		categories: persistence.NewGormCategoryRepository(db),
		genres:     persistence.NewGormGenreRepository(db),
		products:   persistence.NewGormProductRepository(db),
		orders:     persistence.NewGormOrderRepository(db),
		syncStates: persistence.NewGormSyncStateRepository(db),
	}

	s := &Services{repos: repos, cfg: cfg, log: log}
	s.Taxonomy = appintegration.NewTaxonomyResolver(repos.categories, repos.genres, log)
	s.Upserter = appintegration.NewProductUpsertService(
		repos.products,
		s.Taxonomy,
		appintegration.CatalogSettings{
			SalesChannel:     cfg.ERP.SalesChannel,
			VinylCategory:    cfg.Catalog.VinylCategory,
			PostcardCategory: cfg.Catalog.PostcardCategory,
			BookCategory:     cfg.Catalog.BookCategory,
		},
		log,
	)
	s.Inbound = appintegration.NewInboundService(repos.orders, repos.products, s.Upserter, cfg.HTTP.DefaultWarehouse, log)

	client, err := erp.NewClient(cfg.ERP.ClientConfig(), erp.WithLogger(log))
	switch {
	case err == nil:
		s.ERP = client
	case errors.Is(err, integration.ErrERPNotConfigured):
		s.ERPErr = err
		log.Warn("ERP integration disabled", zap.Error(err))
	default:
		return nil, err
	}

	// A typed nil client must not reach the service as a non-nil sink
	var sink integration.OrderSink
	if s.ERP != nil {
		sink = s.ERP
	}
	s.OrderExport = appintegration.NewOrderExportService(
		repos.orders,
		sink,
		appintegration.OrderSettings{
			Currency: cfg.ERP.DefaultCurrency,
			Country:  cfg.ERP.DefaultCountry,
		},
		log,
	)
	return s, nil
}

// ProductSync builds the product sync job. It fails when the ERP client is
// not configured.
func (s *Services) ProductSync(opts ...appintegration.ProductSyncOption) (*appintegration.ProductSyncService, error) {
	if s.ERP == nil {
		return nil, s.ERPErr
	}
	opts = append([]appintegration.ProductSyncOption{
		appintegration.WithDefaultPageSize(s.cfg.ERP.ProductsPageSize),
	}, opts...)
	return appintegration.NewProductSyncService(s.ERP, s.Upserter, s.repos.syncStates, s.log, opts...), nil
}

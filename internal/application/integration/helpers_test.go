package integration

import (
	"testing"

	"github.com/bookstore/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
)

// testEnv wires the services on real repositories over in-memory SQLite
type testEnv struct {
	db         *persistence.Database
	products   *persistence.GormProductRepository
	orders     *persistence.GormOrderRepository
	syncStates *persistence.GormSyncStateRepository
	taxonomy   *TaxonomyResolver
	upserter   *ProductUpsertService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := persistence.NewSQLiteDatabase(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		db:         db,
		products:   persistence.NewGormProductRepository(db.DB),
		orders:     persistence.NewGormOrderRepository(db.DB),
		syncStates: persistence.NewGormSyncStateRepository(db.DB),
	}
	env.taxonomy = NewTaxonomyResolver(
		persistence.NewGormCategoryRepository(db.DB),
		persistence.NewGormGenreRepository(db.DB),
		nil,
	)
	env.upserter = NewProductUpsertService(env.products, env.taxonomy, DefaultCatalogSettings(), nil)
	return env
}

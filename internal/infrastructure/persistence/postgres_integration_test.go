//go:build integration

package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/bookstore/backend/internal/infrastructure/persistence"
	"github.com/bookstore/backend/internal/infrastructure/persistence/pgtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_Repositories(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := pgtest.New(t)
	ctx := context.Background()
	categories := persistence.NewGormCategoryRepository(tdb.DB)
	genres := persistence.NewGormGenreRepository(tdb.DB)
	products := persistence.NewGormProductRepository(tdb.DB)
	states := persistence.NewGormSyncStateRepository(tdb.DB)

	books, err := catalog.NewCategory("Книги", "knigi")
	require.NoError(t, err)
	require.NoError(t, categories.Create(ctx, books))

	t.Run("duplicate category name maps to ErrAlreadyExists", func(t *testing.T) {
		dup, err := catalog.NewCategory("Книги", "knigi-2")
		require.NoError(t, err)
		assert.ErrorIs(t, categories.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("genre names are unique per category ignoring case", func(t *testing.T) {
		rock, err := catalog.NewGenre(books, "Rock", "rock")
		require.NoError(t, err)
		require.NoError(t, genres.Create(ctx, rock))

		upper, err := catalog.NewGenre(books, "ROCK", "rock-2")
		require.NoError(t, err)
		assert.ErrorIs(t, genres.Create(ctx, upper), shared.ErrAlreadyExists)

		found, err := genres.FindByCategoryAndName(ctx, books, "rOcK")
		require.NoError(t, err)
		assert.Equal(t, rock.ID, found.ID)
	})

	t.Run("product identifiers are unique", func(t *testing.T) {
		first, err := catalog.NewProduct("Мастер и Маргарита", "master-i-margarita")
		require.NoError(t, err)
		sku := "SKU-1"
		first.SKU = &sku
		first.Price = decimal.RequireFromString("550.00")
		require.NoError(t, products.Create(ctx, first))

		second, err := catalog.NewProduct("Копия", "kopiya")
		require.NoError(t, err)
		second.SKU = &sku
		assert.ErrorIs(t, products.Create(ctx, second), shared.ErrAlreadyExists)

		found, err := products.FindByIdentity(ctx, catalog.IdentitySKU, "SKU-1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
		assert.True(t, decimal.RequireFromString("550").Equal(found.Price))
	})

	t.Run("sync state is a singleton", func(t *testing.T) {
		state, err := states.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, state)

		for _, at := range []time.Time{
			time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		} {
			s := &catalog.SyncState{}
			s.Advance(at)
			require.NoError(t, states.Save(ctx, s))
		}

		state, err = states.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, state.LastSyncedAt)
		assert.True(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC).Equal(*state.LastSyncedAt))

		var rows int64
		require.NoError(t, tdb.DB.Table("erp_product_sync_states").Count(&rows).Error)
		assert.Equal(t, int64(1), rows)
	})
}

//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/infrastructure/persistence"
	"github.com/bookstore/backend/internal/infrastructure/persistence/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxonomyResolver_ConcurrentCreatesOnPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := pgtest.New(t)
	ctx := context.Background()
	const workers = 8

	// each worker has its own resolver, like separate sync processes
	resolvers := make([]*TaxonomyResolver, workers)
	for i := range resolvers {
		resolvers[i] = NewTaxonomyResolver(
			persistence.NewGormCategoryRepository(tdb.DB),
			persistence.NewGormGenreRepository(tdb.DB),
			nil,
		)
	}

	categories := make([]*catalog.Category, workers)
	genres := make([]*catalog.Genre, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			category, err := resolvers[i].EnsureCategory(ctx, "vinyl")
			if err != nil {
				errs[i] = err
				return
			}
			categories[i] = category
			genres[i], errs[i] = resolvers[i].EnsureGenre(ctx, category, "Rock")
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i], "worker %d", i)
		assert.Equal(t, categories[0].ID, categories[i].ID)
		assert.Equal(t, genres[0].ID, genres[i].ID)
	}

	var count int64
	require.NoError(t, tdb.DB.Table("categories").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, tdb.DB.Table("genres").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

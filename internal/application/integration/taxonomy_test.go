package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) FindByName(ctx context.Context, name string) (*catalog.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *catalog.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

type MockGenreRepository struct {
	mock.Mock
}

func (m *MockGenreRepository) FindByCategoryAndName(ctx context.Context, category *catalog.Category, name string) (*catalog.Genre, error) {
	args := m.Called(ctx, category, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Genre), args.Error(1)
}

func (m *MockGenreRepository) ExistsBySlug(ctx context.Context, category *catalog.Category, slug string) (bool, error) {
	args := m.Called(ctx, category, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockGenreRepository) Create(ctx context.Context, genre *catalog.Genre) error {
	args := m.Called(ctx, genre)
	return args.Error(0)
}

func newMockTaxonomy() (*TaxonomyResolver, *MockCategoryRepository, *MockGenreRepository) {
	categories := new(MockCategoryRepository)
	genres := new(MockGenreRepository)
	return NewTaxonomyResolver(categories, genres, nil), categories, genres
}

func TestTaxonomyResolver_EnsureCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("returns existing category", func(t *testing.T) {
		r, categories, _ := newMockTaxonomy()
		existing, _ := catalog.NewCategory("vinyl", "vinyl")
		categories.On("FindByName", mock.Anything, "vinyl").Return(existing, nil)

		got, err := r.EnsureCategory(ctx, " vinyl ")
		require.NoError(t, err)
		assert.Same(t, existing, got)
		categories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("creates with unique slug", func(t *testing.T) {
		r, categories, _ := newMockTaxonomy()
		categories.On("FindByName", mock.Anything, "Книги").Return(nil, shared.ErrNotFound)
		categories.On("ExistsBySlug", mock.Anything, "knigi").Return(true, nil)
		categories.On("ExistsBySlug", mock.Anything, "knigi-2").Return(false, nil)
		categories.On("Create", mock.Anything, mock.MatchedBy(func(c *catalog.Category) bool {
			return c.Name == "Книги" && c.Slug == "knigi-2"
		})).Return(nil)

		got, err := r.EnsureCategory(ctx, "Книги")
		require.NoError(t, err)
		assert.Equal(t, "knigi-2", got.Slug)
		categories.AssertExpectations(t)
	})

	t.Run("reuses the concurrent winner", func(t *testing.T) {
		r, categories, _ := newMockTaxonomy()
		winner, _ := catalog.NewCategory("vinyl", "vinyl")
		categories.On("FindByName", mock.Anything, "vinyl").Return(nil, shared.ErrNotFound).Once()
		categories.On("ExistsBySlug", mock.Anything, "vinyl").Return(false, nil)
		categories.On("Create", mock.Anything, mock.Anything).Return(shared.ErrAlreadyExists).Once()
		categories.On("FindByName", mock.Anything, "vinyl").Return(winner, nil).Once()

		got, err := r.EnsureCategory(ctx, "vinyl")
		require.NoError(t, err)
		assert.Same(t, winner, got)
		categories.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("gives up after the retry", func(t *testing.T) {
		r, categories, _ := newMockTaxonomy()
		categories.On("FindByName", mock.Anything, "vinyl").Return(nil, shared.ErrNotFound)
		categories.On("ExistsBySlug", mock.Anything, "vinyl").Return(false, nil)
		categories.On("Create", mock.Anything, mock.Anything).Return(shared.ErrAlreadyExists)

		_, err := r.EnsureCategory(ctx, "vinyl")
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		categories.AssertNumberOfCalls(t, "Create", 2)
	})

	t.Run("propagates other create errors", func(t *testing.T) {
		r, categories, _ := newMockTaxonomy()
		boom := errors.New("connection reset")
		categories.On("FindByName", mock.Anything, "vinyl").Return(nil, shared.ErrNotFound)
		categories.On("ExistsBySlug", mock.Anything, "vinyl").Return(false, nil)
		categories.On("Create", mock.Anything, mock.Anything).Return(boom)

		_, err := r.EnsureCategory(ctx, "vinyl")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("rejects blank names", func(t *testing.T) {
		r, _, _ := newMockTaxonomy()
		_, err := r.EnsureCategory(ctx, "  ")
		assert.True(t, shared.IsValidationError(err))
	})

	t.Run("preview never writes", func(t *testing.T) {
		r, categories, _ := newMockTaxonomy()
		categories.On("FindByName", mock.Anything, "vinyl").Return(nil, shared.ErrNotFound)
		categories.On("ExistsBySlug", mock.Anything, "vinyl").Return(false, nil)

		got, err := r.Preview().EnsureCategory(ctx, "vinyl")
		require.NoError(t, err)
		assert.Equal(t, "vinyl", got.Slug)
		categories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestTaxonomyResolver_SharesConcurrentLookups(t *testing.T) {
	ctx := context.Background()
	r, categories, _ := newMockTaxonomy()
	existing, _ := catalog.NewCategory("vinyl", "vinyl")
	categories.On("FindByName", mock.Anything, "vinyl").Return(existing, nil).After(200 * time.Millisecond)

	const callers = 5
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := r.EnsureCategory(ctx, "vinyl")
			assert.NoError(t, err)
			assert.Same(t, existing, got)
		}()
	}
	close(start)
	wg.Wait()

	assert.Less(t, len(categories.Calls), callers)
}

func TestTaxonomyResolver_EnsureGenre(t *testing.T) {
	ctx := context.Background()
	vinyl, _ := catalog.NewCategory("vinyl", "vinyl")

	t.Run("matches case-insensitively through the repository", func(t *testing.T) {
		r, _, genres := newMockTaxonomy()
		rock, _ := catalog.NewGenre(vinyl, "Rock", "rock")
		genres.On("FindByCategoryAndName", mock.Anything, vinyl, "ROCK").Return(rock, nil)

		got, err := r.EnsureGenre(ctx, vinyl, "ROCK")
		require.NoError(t, err)
		assert.Same(t, rock, got)
	})

	t.Run("creates scoped to the category", func(t *testing.T) {
		r, _, genres := newMockTaxonomy()
		genres.On("FindByCategoryAndName", mock.Anything, vinyl, "Hard Rock").Return(nil, shared.ErrNotFound)
		genres.On("ExistsBySlug", mock.Anything, vinyl, "hard-rock").Return(false, nil)
		genres.On("Create", mock.Anything, mock.MatchedBy(func(g *catalog.Genre) bool {
			return g.CategoryID == vinyl.ID && g.Slug == "hard-rock" && g.NameKey == "hard rock"
		})).Return(nil)

		got, err := r.EnsureGenre(ctx, vinyl, "Hard Rock")
		require.NoError(t, err)
		assert.True(t, got.BelongsTo(vinyl))
		genres.AssertExpectations(t)
	})

	t.Run("reuses the concurrent winner", func(t *testing.T) {
		r, _, genres := newMockTaxonomy()
		winner, _ := catalog.NewGenre(vinyl, "Jazz", "jazz")
		genres.On("FindByCategoryAndName", mock.Anything, vinyl, "Jazz").Return(nil, shared.ErrNotFound).Once()
		genres.On("ExistsBySlug", mock.Anything, vinyl, "jazz").Return(false, nil)
		genres.On("Create", mock.Anything, mock.Anything).Return(shared.ErrAlreadyExists).Once()
		genres.On("FindByCategoryAndName", mock.Anything, vinyl, "Jazz").Return(winner, nil).Once()

		got, err := r.EnsureGenre(ctx, vinyl, "Jazz")
		require.NoError(t, err)
		assert.Same(t, winner, got)
	})

	t.Run("requires a category", func(t *testing.T) {
		r, _, _ := newMockTaxonomy()
		_, err := r.EnsureGenre(ctx, nil, "Jazz")
		assert.ErrorContains(t, err, "requires a category")
	})
}

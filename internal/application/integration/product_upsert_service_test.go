package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/bookstore/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upsertJSON(t *testing.T, env *testEnv, raw string) *UpsertResult {
	t.Helper()
	result, err := env.upserter.Upsert(context.Background(), decodeJSON(t, raw), false)
	require.NoError(t, err)
	return result
}

func loadByERPID(t *testing.T, env *testEnv, erpID string) *catalog.Product {
	t.Helper()
	p, err := env.products.FindByIdentity(context.Background(), catalog.IdentityERPProductID, erpID)
	require.NoError(t, err)
	return p
}

func TestProductUpsert_VinylScenario(t *testing.T) {
	env := newTestEnv(t)

	result := upsertJSON(t, env, `{
		"id": 96382,
		"name": "The Dark Side of the Moon",
		"prices": [{"price": 240, "currency_code": "RUB"}],
		"vinyl_details": {"artist": "Pink Floyd", "genre": "Rock", "label": "Harvest", "release_year": "1973", "barcode": "5099902987613"}
	}`)
	assert.Equal(t, UpsertStatusCreated, result.Status)

	p := loadByERPID(t, env, "96382")
	require.NotNil(t, p.Category)
	require.NotNil(t, p.Genre)
	assert.Equal(t, "vinyl", p.Category.Name)
	assert.Equal(t, "Rock", p.Genre.Name)
	assert.Equal(t, "Pink Floyd", p.Authors)
	assert.Equal(t, "Harvest", p.Publisher)
	require.NotNil(t, p.Year)
	assert.Equal(t, 1973, *p.Year)
	assert.Equal(t, "5099902987613", p.Barcode)
	assert.Equal(t, "240", p.Price.String())
	assert.Equal(t, "RUB", p.Currency)
	assert.Equal(t, "the-dark-side-of-the-moon", p.Slug)
	assert.False(t, p.InStock)
}

func TestProductUpsert_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	raw := `{
		"id": "B-1",
		"sku": "BK-1",
		"name": "Мастер и Маргарита",
		"description": "Роман",
		"prices": [{"price": "700.50"}],
		"stock": {"total": 3},
		"additional_parameters": [{"name": "Жанры товара", "value": "Роман"}, {"name": "Автор", "value": "М. Булгаков"}],
		"updated_at": "2024-04-01T00:00:00Z"
	}`

	first := upsertJSON(t, env, raw)
	assert.Equal(t, UpsertStatusCreated, first.Status)
	require.NotNil(t, first.UpdatedAt)
	before := loadByERPID(t, env, "B-1")

	second := upsertJSON(t, env, raw)
	assert.Equal(t, UpsertStatusUpdated, second.Status)
	after := loadByERPID(t, env, "B-1")

	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.Slug, after.Slug)
	assert.Equal(t, "master-i-margarita", after.Slug)
	assert.Equal(t, before.Description, after.Description)
	assert.Equal(t, before.Authors, after.Authors)
	assert.Equal(t, before.Price.String(), after.Price.String())
	assert.Equal(t, before.StockQty, after.StockQty)
	assert.Equal(t, *before.CategoryID, *after.CategoryID)
	assert.Equal(t, *before.GenreID, *after.GenreID)
	assert.Equal(t, *before.SKU, *after.SKU)
}

func TestProductUpsert_IdentityPriority(t *testing.T) {
	env := newTestEnv(t)
	upsertJSON(t, env, `{"id": "1", "sku": "A-1", "name": "Alpha", "prices": [{"price": 1}]}`)
	upsertJSON(t, env, `{"id": "2", "sku": "B-1", "name": "Beta", "prices": [{"price": 2}]}`)
	alpha := loadByERPID(t, env, "1")

	result := upsertJSON(t, env, `{"id": "1", "sku": "B-1", "name": "Alpha Reloaded"}`)
	assert.Equal(t, UpsertStatusUpdated, result.Status)
	assert.Equal(t, alpha.ID, result.Product.ID)

	updated := loadByERPID(t, env, "1")
	assert.Equal(t, "Alpha Reloaded", updated.Name)
	assert.Equal(t, "A-1", *updated.SKU, "an identifier owned by another product is left alone")

	beta, err := env.products.FindByIdentity(context.Background(), catalog.IdentitySKU, "B-1")
	require.NoError(t, err)
	assert.Equal(t, "2", *beta.ERPProductID)
}

func TestProductUpsert_MatchesBySKUAndStampsERPID(t *testing.T) {
	env := newTestEnv(t)
	upsertJSON(t, env, `{"id": "old", "sku": "S-1", "name": "Legacy", "prices": [{"price": 10}]}`)

	result := upsertJSON(t, env, `{"id": "new", "sku": "S-1"}`)
	assert.Equal(t, UpsertStatusUpdated, result.Status)
	assert.Equal(t, "Legacy", loadByERPID(t, env, "new").Name)
}

func TestProductUpsert_DetailBlocks(t *testing.T) {
	t.Run("empty vinyl block still sets category", func(t *testing.T) {
		env := newTestEnv(t)
		upsertJSON(t, env, `{"id": "v1", "name": "Untitled", "prices": [{"price": 1}], "vinyl_details": {}}`)

		p := loadByERPID(t, env, "v1")
		require.NotNil(t, p.Category)
		assert.Equal(t, "vinyl", p.Category.Name)
		assert.Nil(t, p.GenreID)
	})

	t.Run("empty vinyl genre clears the genre", func(t *testing.T) {
		env := newTestEnv(t)
		upsertJSON(t, env, `{"id": "v2", "name": "Animals", "prices": [{"price": 1}], "vinyl_details": {"genre": "Rock"}}`)
		require.NotNil(t, loadByERPID(t, env, "v2").GenreID)

		upsertJSON(t, env, `{"id": "v2", "vinyl_details": {"genre": ""}}`)
		assert.Nil(t, loadByERPID(t, env, "v2").GenreID)
	})

	t.Run("postcard block uses theme and its own description", func(t *testing.T) {
		env := newTestEnv(t)
		upsertJSON(t, env, `{
			"id": "p1", "name": "Ленинград", "prices": [{"price": 50}],
			"postcard_details": {"theme": "Города", "publisher": "ИЗОГИЗ", "release_year": 1965, "description": "Набережная"}
		}`)

		p := loadByERPID(t, env, "p1")
		assert.Equal(t, "Открытки, марки, значки", p.Category.Name)
		assert.Equal(t, "Города", p.Genre.Name)
		assert.Equal(t, "ИЗОГИЗ", p.Publisher)
		assert.Equal(t, 1965, *p.Year)
		assert.Equal(t, "Набережная", p.Description)
	})

	t.Run("categories list maps parent and leaf", func(t *testing.T) {
		env := newTestEnv(t)
		upsertJSON(t, env, `{
			"id": "c1", "name": "Kind of Blue", "prices": [{"price": 1}],
			"categories": [{"id": 1, "name": "Музыка"}, {"id": 2, "name": "Jazz", "parent_id": 1}]
		}`)

		p := loadByERPID(t, env, "c1")
		assert.Equal(t, "Музыка", p.Category.Name)
		assert.Equal(t, "Jazz", p.Genre.Name)
	})
}

func TestProductUpsert_GenreNameGating(t *testing.T) {
	env := newTestEnv(t)

	upsertJSON(t, env, `{
		"id": "g1", "name": "Book One", "prices": [{"price": 1}],
		"additional_parameters": [{"name": "Направление", "value": "Проза"}]
	}`)
	p := loadByERPID(t, env, "g1")
	assert.Nil(t, p.GenreID)
	assert.Nil(t, p.CategoryID)
	assert.Equal(t, "Проза", p.Attributes["direction"])

	upsertJSON(t, env, `{
		"id": "g2", "name": "Book Two", "prices": [{"price": 1}],
		"additional_parameters": [{"name": "жанры товара", "value": "Поэзия"}]
	}`)
	p = loadByERPID(t, env, "g2")
	require.NotNil(t, p.Genre)
	assert.Equal(t, "Книги", p.Category.Name)
	assert.Equal(t, "Поэзия", p.Genre.Name)
}

func TestProductUpsert_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("price required on create", func(t *testing.T) {
		_, err := env.upserter.Upsert(ctx, decodeJSON(t, `{"id": "np", "name": "No Price", "prices": []}`), false)
		assert.Equal(t, ErrPriceRequired, err)

		_, err = env.products.FindByIdentity(ctx, catalog.IdentityERPProductID, "np")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("price optional on update", func(t *testing.T) {
		upsertJSON(t, env, `{"id": "u1", "name": "Priced", "prices": [{"price": 9}]}`)
		upsertJSON(t, env, `{"id": "u1", "name": "Priced again"}`)
		assert.Equal(t, "9", loadByERPID(t, env, "u1").Price.String())
	})

	t.Run("invalid price", func(t *testing.T) {
		_, err := env.upserter.Upsert(ctx, decodeJSON(t, `{"id": "ip", "name": "X", "prices": [{"price": "free"}]}`), false)
		assert.Equal(t, ErrInvalidPrice, err)
	})

	t.Run("name required on create", func(t *testing.T) {
		_, err := env.upserter.Upsert(ctx, decodeJSON(t, `{"id": "nn", "prices": [{"price": 1}]}`), false)
		assert.Equal(t, ErrNameRequired, err)
	})

	t.Run("id required", func(t *testing.T) {
		_, err := env.upserter.Upsert(ctx, decodeJSON(t, `{"name": "X"}`), false)
		assert.Equal(t, ErrERPIDMissing, err)
	})

	t.Run("payload must be an object", func(t *testing.T) {
		_, err := env.upserter.Upsert(ctx, decodeJSON(t, `[1, 2]`), false)
		assert.Equal(t, ErrPayloadNotObject, err)
	})
}

func TestProductUpsert_Slugs(t *testing.T) {
	env := newTestEnv(t)

	t.Run("colliding names get a numeric suffix", func(t *testing.T) {
		upsertJSON(t, env, `{"id": "s1", "name": "Abbey Road", "prices": [{"price": 1}]}`)
		upsertJSON(t, env, `{"id": "s2", "name": "Abbey Road!", "prices": [{"price": 1}]}`)

		assert.Equal(t, "abbey-road", loadByERPID(t, env, "s1").Slug)
		assert.Equal(t, "abbey-road-2", loadByERPID(t, env, "s2").Slug)
	})

	t.Run("long names stay under the limit", func(t *testing.T) {
		name := strings.Repeat("long title ", 30)
		upsertJSON(t, env, `{"id": "l1", "name": "`+name+`", "prices": [{"price": 1}]}`)
		upsertJSON(t, env, `{"id": "l2", "name": "`+name+`", "prices": [{"price": 1}]}`)

		first, second := loadByERPID(t, env, "l1").Slug, loadByERPID(t, env, "l2").Slug
		assert.NotEqual(t, first, second)
		assert.LessOrEqual(t, len(first), catalog.SlugMaxLength)
		assert.LessOrEqual(t, len(second), catalog.SlugMaxLength)
		assert.True(t, strings.HasSuffix(second, "-2"))
	})

	t.Run("supplied slug is used unless it looks like a code", func(t *testing.T) {
		upsertJSON(t, env, `{"id": "s3", "name": "Revolver", "slug": "beatles-revolver", "prices": [{"price": 1}]}`)
		upsertJSON(t, env, `{"id": "s4", "sku": "RV-2", "name": "Rubber Soul", "slug": "rv-2", "prices": [{"price": 1}]}`)

		assert.Equal(t, "beatles-revolver", loadByERPID(t, env, "s3").Slug)
		assert.Equal(t, "rubber-soul", loadByERPID(t, env, "s4").Slug)
	})

	t.Run("code-like slug refreshes on rename, latin slug does not", func(t *testing.T) {
		ctx := context.Background()
		p, err := catalog.NewProduct("Placeholder", "777")
		require.NoError(t, err)
		erpID := "777"
		p.ERPProductID = &erpID
		require.NoError(t, env.products.Create(ctx, p))

		upsertJSON(t, env, `{"id": "777", "name": "Help!"}`)
		assert.Equal(t, "help", loadByERPID(t, env, "777").Slug)

		upsertJSON(t, env, `{"id": "777", "name": "Something Else"}`)
		assert.Equal(t, "help", loadByERPID(t, env, "777").Slug)
	})
}

func TestProductUpsert_StockAndVisibility(t *testing.T) {
	env := newTestEnv(t)

	upsertJSON(t, env, `{"id": "st", "name": "Stocked", "prices": [{"price": 1}], "stock": {"total": 10, "reserved": 3}}`)
	p := loadByERPID(t, env, "st")
	assert.Equal(t, 7, p.StockQty)
	assert.True(t, p.InStock)

	upsertJSON(t, env, `{"id": "st", "stock": {"total": 2, "reserved": 5}}`)
	p = loadByERPID(t, env, "st")
	assert.Zero(t, p.StockQty)
	assert.False(t, p.InStock)

	upsertJSON(t, env, `{"id": "st", "stock": null}`)
	assert.Zero(t, loadByERPID(t, env, "st").StockQty)

	upsertJSON(t, env, `{"id": "st", "is_visible": false}`)
	assert.False(t, loadByERPID(t, env, "st").IsPublished)

	upsertJSON(t, env, `{"id": "st", "is_visible": true, "archived": true}`)
	assert.False(t, loadByERPID(t, env, "st").IsPublished)

	upsertJSON(t, env, `{"id": "st", "is_visible": true}`)
	assert.True(t, loadByERPID(t, env, "st").IsPublished)
}

func TestProductUpsert_DryRunWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.upserter.Upsert(ctx, decodeJSON(t, `{
		"id": "d1", "name": "Dry", "prices": [{"price": 1}],
		"vinyl_details": {"genre": "Ambient"}
	}`), true)
	require.NoError(t, err)
	assert.Equal(t, UpsertStatusCreated, result.Status)
	assert.Equal(t, "Ambient", result.Product.Genre.Name)

	_, err = env.products.FindByIdentity(ctx, catalog.IdentityERPProductID, "d1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = persistence.NewGormCategoryRepository(env.db.DB).FindByName(ctx, "vinyl")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

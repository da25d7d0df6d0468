package integration

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeJSON decodes the way the ERP client does, keeping numbers exact
func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestExtractPrice(t *testing.T) {
	t.Run("prefers the sales channel entry", func(t *testing.T) {
		prices := decodeJSON(t, `[
			{"price": "100", "marketplace": "ozon"},
			{"price": "4500.00", "currency_code": "RUB", "marketplace": "internet_shop"}
		]`)
		info, err := ExtractPrice(prices, "internet_shop")
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, "4500", info.Value.String())
		assert.Equal(t, "RUB", info.Currency)
	})

	t.Run("falls back to the first entry", func(t *testing.T) {
		info, err := ExtractPrice(decodeJSON(t, `[{"price": 700}, {"price": 800}]`), "internet_shop")
		require.NoError(t, err)
		assert.Equal(t, "700", info.Value.String())
		assert.Empty(t, info.Currency)
	})

	t.Run("missing price yields nil", func(t *testing.T) {
		for _, raw := range []string{`[]`, `null`, `{"price": 1}`, `[{"price": null}]`, `["x"]`} {
			info, err := ExtractPrice(decodeJSON(t, raw), "internet_shop")
			assert.NoError(t, err, raw)
			assert.Nil(t, info, raw)
		}
	})

	t.Run("non-numeric price is rejected", func(t *testing.T) {
		_, err := ExtractPrice(decodeJSON(t, `[{"price": "abc"}]`), "internet_shop")
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})
}

func TestExtractStock(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   int
		wantOK bool
	}{
		{"total minus reserved", `{"total": 10, "reserved": 3}`, 7, true},
		{"clamped at zero", `{"total": 2, "reserved": 5}`, 0, true},
		{"reserved missing", `{"total": "8"}`, 8, true},
		{"reserved invalid", `{"total": 4, "reserved": "n/a"}`, 4, true},
		{"total missing", `{"reserved": 1}`, 0, false},
		{"fractional total truncates", `{"total": 10.5, "reserved": 2.9}`, 8, true},
		{"fractional text total", `{"total": "10.5"}`, 0, false},
		{"not an object", `"5"`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractStock(decodeJSON(t, tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractImages(t *testing.T) {
	t.Run("sorts by position and honours is_main", func(t *testing.T) {
		images, main := ExtractImages(decodeJSON(t, `[
			{"url": "https://cdn/b.jpg", "order": 2},
			{"url": "https://cdn/a.jpg", "order": 1},
			{"url": "  "},
			{"url": "https://cdn/c.jpg", "position": 3, "is_main": true}
		]`))
		assert.Equal(t, []catalog.ExternalImage{
			{URL: "https://cdn/a.jpg", Position: 1},
			{URL: "https://cdn/b.jpg", Position: 2},
			{URL: "https://cdn/c.jpg", Position: 3},
		}, images)
		assert.Equal(t, "https://cdn/c.jpg", main)
	})

	t.Run("first image is primary without is_main", func(t *testing.T) {
		_, main := ExtractImages(decodeJSON(t, `[{"url": "u2", "order": 5}, {"url": "u1", "order": 0}]`))
		assert.Equal(t, "u1", main)
	})

	t.Run("non-list yields empty", func(t *testing.T) {
		images, main := ExtractImages(nil)
		assert.Empty(t, images)
		assert.Empty(t, main)
	})
}

func TestResolveCategoryGenre(t *testing.T) {
	t.Run("leaf with parent becomes genre", func(t *testing.T) {
		category, genre := ResolveCategoryGenre(decodeJSON(t, `[
			{"id": 1, "name": "Музыка"},
			{"id": 2, "name": "Rock", "parent_id": 1}
		]`))
		assert.Equal(t, "Музыка", category)
		assert.Equal(t, "Rock", genre)
	})

	t.Run("single entry is the category", func(t *testing.T) {
		category, genre := ResolveCategoryGenre(decodeJSON(t, `[{"id": "7", "name": "Открытки"}]`))
		assert.Equal(t, "Открытки", category)
		assert.Empty(t, genre)
	})

	t.Run("unknown parent keeps the leaf as category", func(t *testing.T) {
		category, genre := ResolveCategoryGenre(decodeJSON(t, `[{"id": 2, "name": "Jazz", "parent_id": 99}]`))
		assert.Equal(t, "Jazz", category)
		assert.Empty(t, genre)
	})

	t.Run("empty input", func(t *testing.T) {
		category, genre := ResolveCategoryGenre(decodeJSON(t, `[]`))
		assert.Empty(t, category)
		assert.Empty(t, genre)
	})
}

func TestExtractAdditionalParameter(t *testing.T) {
	params := decodeJSON(t, `[
		{"name": "Автор", "value": "М. Булгаков"},
		{"name": "Жанры товара", "value": "  "},
		{"title": "ЖАНРЫ ТОВАРА", "values": [{"value": "Роман"}, "Классика"]}
	]`)

	value, ok := ExtractAdditionalParameter(params, "Жанры товара")
	require.True(t, ok)
	assert.Equal(t, "Роман, Классика", value)

	value, ok = ExtractAdditionalParameter(params, "направление", "автор")
	require.True(t, ok)
	assert.Equal(t, "М. Булгаков", value)

	_, ok = ExtractAdditionalParameter(params, "Издательство")
	assert.False(t, ok)

	_, ok = ExtractAdditionalParameter(nil, "Автор")
	assert.False(t, ok)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, raw := range []any{
		"2024-05-01T12:00:00Z",
		"2024-05-01T15:00:00+03:00",
		"2024-05-01 12:00:00",
		"2024-05-01T12:00",
		"2024-05-01T15:00:00+03",
		"2024-05-01T15:00:00+0300",
		"2024-05-01 15:00+03:00",
		"2024-05-01T12:00:00.000Z",
	} {
		got, ok := ParseTimestamp(raw)
		require.True(t, ok, raw)
		assert.True(t, want.Equal(got), raw)
		assert.Equal(t, time.UTC, got.Location())
	}

	got, ok := ParseTimestamp("2024-01-01")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got)

	_, ok = ParseTimestamp("yesterday")
	assert.False(t, ok)
	_, ok = ParseTimestamp(nil)
	assert.False(t, ok)
}

func TestFormatTimestamp(t *testing.T) {
	msk := time.FixedZone("MSK", 3*3600)
	assert.Equal(t, "2024-05-01T12:00:00Z", FormatTimestamp(time.Date(2024, 5, 1, 15, 0, 0, 0, msk)))
	assert.Equal(t, "2024-05-01T12:00:00.5Z", FormatTimestamp(time.Date(2024, 5, 1, 12, 0, 0, 5e8, time.UTC)))
}

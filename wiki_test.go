/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCatalogListsTab(t *testing.T) {
	c := testCatalog(t)

	items, ok := searchCatalog(c, "guilds", "")
	require.True(t, ok)
	require.Len(t, items, len(c.Guilds))

	for i, item := range items {
		assert.Equal(t, "guilds", item.Category)
		assert.Equal(t, "Гильдия", item.CategoryLabel)
		if i > 0 {
			assert.LessOrEqual(t, items[i-1].Title, item.Title)
		}
	}

	_, ok = searchCatalog(c, "nope", "")
	assert.False(t, ok)
}

func TestSearchCatalogQuery(t *testing.T) {
	c := testCatalog(t)

	items, ok := searchCatalog(c, "nope", "  КАЗАРМ ")
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "a2_barracks", items[0].ID)
	assert.Equal(t, "age2", items[0].Category)
	assert.Equal(t, "II Эпоха", items[0].CategoryLabel)

	// tags and descriptions of tokens and wonders, effects of age cards
	items, _ = searchCatalog(c, "tokens", "щит")
	categories := make(map[string]bool)
	for _, item := range items {
		categories[item.Category] = true
	}
	assert.True(t, categories["tokens"])
	assert.True(t, categories["wonders"])
	assert.True(t, categories["age1"])

	items, ok = searchCatalog(c, "tokens", "zzzz")
	require.True(t, ok)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestServeCatalog(t *testing.T) {
	cfg := testConfig()
	c := testCatalog(t)
	errs := make(chan error, 4)

	mux := httprouter.New()
	mux.GET("/api/catalog", serveCatalog(cfg, c, errs))

	t.Run("default tab", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

		var items []CatalogItem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
		assert.Len(t, items, len(c.Tokens))
	})

	t.Run("unknown tab", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog?tab=age9", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("query", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog?q=%D0%BA%D0%B0%D0%B7%D0%B0%D1%80%D0%BC%D1%8B", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var items []CatalogItem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
		require.Len(t, items, 1)
		assert.Equal(t, "Казармы", items[0].Title)
	})

	assert.Empty(t, errs)
}

package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"watchfeed/db"
	"watchfeed/models"
	"watchfeed/server"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, articles []models.Article) *fiber.App {
	t.Helper()

	path := filepath.Join(t.TempDir(), "articles.db")
	require.NoError(t, db.Migrate(path))

	database, err := db.NewDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	for _, article := range articles {
		require.NoError(t, database.Upsert(context.Background(), article))
	}

	return server.Server(&server.ServerConfig{DB: database})
}

func getJSON(t *testing.T, app *fiber.App, path string, out any) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func seedArticles(n int, source string) []models.Article {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	articles := make([]models.Article, 0, n)
	for i := 0; i < n; i++ {
		articles = append(articles, models.Article{
			Title:     fmt.Sprintf("Article %02d", i),
			Link:      fmt.Sprintf("https://site.com/articles/%d", i),
			Summary:   "summary",
			Published: base.Add(time.Duration(i) * time.Hour),
			Source:    source,
			Tags:      []string{"diver"},
		})
	}
	return articles
}

func TestArticlesPagination(t *testing.T) {
	app := newTestApp(t, seedArticles(15, "ABTW"))

	var first models.ArticlesResponse
	status := getJSON(t, app, "/api/articles", &first)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, 1, first.Page)
	assert.True(t, first.HasMore)
	require.Len(t, first.Articles, 10)
	// Newest first
	assert.Equal(t, "Article 14", first.Articles[0].Title)
	assert.Equal(t, "Article 05", first.Articles[9].Title)

	var second models.ArticlesResponse
	status = getJSON(t, app, "/api/articles?page=2", &second)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, 2, second.Page)
	assert.False(t, second.HasMore)
	require.Len(t, second.Articles, 5)
	assert.Equal(t, "Article 04", second.Articles[0].Title)
}

func TestArticlesFilters(t *testing.T) {
	articles := seedArticles(3, "ABTW")
	articles = append(articles, models.Article{
		Title:     "Fratello special",
		Link:      "https://fratello.test/special",
		Summary:   "summary",
		Published: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Source:    "Fratello",
		Tags:      []string{"gmt"},
	})
	app := newTestApp(t, articles)

	var bySource models.ArticlesResponse
	status := getJSON(t, app, "/api/articles?source=Fratello", &bySource)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, bySource.Articles, 1)
	assert.Equal(t, "Fratello special", bySource.Articles[0].Title)

	var byTag models.ArticlesResponse
	status = getJSON(t, app, "/api/articles?tag=gmt", &byTag)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, byTag.Articles, 1)

	var bySearch models.ArticlesResponse
	status = getJSON(t, app, "/api/articles?search=special", &bySearch)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, bySearch.Articles, 1)

	var none models.ArticlesResponse
	status = getJSON(t, app, "/api/articles?source=Nonexistent", &none)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, none.Articles)
	assert.False(t, none.HasMore)
}

func TestArticlesInvalidPageDefaultsToFirst(t *testing.T) {
	app := newTestApp(t, seedArticles(3, "ABTW"))

	var response models.ArticlesResponse
	status := getJSON(t, app, "/api/articles?page=-5", &response)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, response.Page)
	assert.Len(t, response.Articles, 3)
}

func TestSourcesEndpoint(t *testing.T) {
	articles := seedArticles(2, "ABTW")
	articles = append(articles, seedArticles(1, "Hodinkee")[0])
	articles[2].Link = "https://hodinkee.test/0"
	app := newTestApp(t, articles)

	var response struct {
		Sources []string `json:"sources"`
	}
	status := getJSON(t, app, "/api/sources", &response)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"ABTW", "Hodinkee"}, response.Sources)
}

func TestTagsEndpointEmptyDatabase(t *testing.T) {
	app := newTestApp(t, nil)

	var response struct {
		Tags []string `json:"tags"`
	}
	status := getJSON(t, app, "/api/tags", &response)
	require.Equal(t, http.StatusOK, status)
	assert.NotNil(t, response.Tags)
	assert.Empty(t, response.Tags)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, nil)
	status := getJSON(t, app, "/metrics", nil)
	assert.Equal(t, http.StatusOK, status)
}

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/scraper-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedWebsite(t *testing.T, st *SQLiteStore) *model.Website {
	t.Helper()
	w, err := st.CreateWebsite(context.Background(), model.WebsiteKabelbinder, "https://shop.example")
	require.NoError(t, err)
	return w
}

// --- Websites ---

func TestSQLite_Website_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	w := seedWebsite(t, st)

	got, err := st.GetWebsite(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WebsiteKabelbinder, got.Name)
	assert.Equal(t, "https://shop.example", got.BaseURL)

	byName, err := st.GetWebsiteByName(ctx, model.WebsiteKabelbinder)
	require.NoError(t, err)
	assert.Equal(t, w.ID, byName.ID)
}

func TestSQLite_Website_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetWebsite(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_Website_List(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateWebsite(ctx, "zeta-shop", "https://zeta.example")
	require.NoError(t, err)
	_, err = st.CreateWebsite(ctx, "alpha-shop", "https://alpha.example")
	require.NoError(t, err)

	websites, err := st.ListWebsites(ctx)
	require.NoError(t, err)
	require.Len(t, websites, 2)
	assert.Equal(t, "alpha-shop", websites[0].Name)
	assert.Equal(t, "zeta-shop", websites[1].Name)
}

// --- Criteria ---

func TestSQLite_Criteria_FilteredByType(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	w := seedWebsite(t, st)

	_, err := st.CreateCriterion(ctx, w.ID, "nav-main", model.CriterionNav)
	require.NoError(t, err)
	_, err = st.CreateCriterion(ctx, w.ID, "product-title|product-heading", model.CriterionContent)
	require.NoError(t, err)
	_, err = st.CreateCriterion(ctx, w.ID, "price-box", model.CriterionContent)
	require.NoError(t, err)

	nav, err := st.ListCriteria(ctx, w.ID, model.CriterionNav)
	require.NoError(t, err)
	require.Len(t, nav, 1)
	assert.Equal(t, "nav-main", nav[0].CSSSelector)

	content, err := st.ListCriteria(ctx, w.ID, model.CriterionContent)
	require.NoError(t, err)
	require.Len(t, content, 2)
	assert.Equal(t, "product-title|product-heading", content[0].CSSSelector)
	assert.Equal(t, "price-box", content[1].CSSSelector)
}

// --- Pages ---

func TestSQLite_BulkCreatePages_DedupesByURL(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	w := seedWebsite(t, st)

	created, err := st.BulkCreatePages(ctx, w.ID, []model.DiscoveredPage{
		{Name: "Tie A", URL: "https://shop.example/p/1"},
		{Name: "Tie B", URL: "https://shop.example/p/2"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created)

	// Second discovery run overlaps with the first.
	created, err = st.BulkCreatePages(ctx, w.ID, []model.DiscoveredPage{
		{Name: "Tie B", URL: "https://shop.example/p/2"},
		{Name: "Tie C", URL: "https://shop.example/p/3"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created)

	pages, err := st.ListPendingPages(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, pages, 3)
}

func TestSQLite_ListPendingPages_SkipsScrapedAndDeleted(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	w := seedWebsite(t, st)

	_, err := st.BulkCreatePages(ctx, w.ID, []model.DiscoveredPage{
		{URL: "https://shop.example/p/1"},
		{URL: "https://shop.example/p/2"},
		{URL: "https://shop.example/p/3"},
	})
	require.NoError(t, err)

	pages, err := st.ListPendingPages(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	require.NoError(t, st.MarkPagesScraped(ctx, []string{pages[0].ID}, time.Now()))
	_, err = st.db.ExecContext(ctx, `UPDATE pages SET deleted_at = datetime('now') WHERE id = ?`, pages[1].ID)
	require.NoError(t, err)

	remaining, err := st.ListPendingPages(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, pages[2].ID, remaining[0].ID)
}

func TestSQLite_MarkPagesScraped_SetsTimestamp(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	w := seedWebsite(t, st)

	_, err := st.BulkCreatePages(ctx, w.ID, []model.DiscoveredPage{{URL: "https://shop.example/p/1"}})
	require.NoError(t, err)
	pages, err := st.ListPendingPages(ctx, w.ID)
	require.NoError(t, err)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, st.MarkPagesScraped(ctx, []string{pages[0].ID}, at))

	var status string
	var lastScraped time.Time
	err = st.db.QueryRowContext(ctx, `SELECT status, last_scraped FROM pages WHERE id = ?`, pages[0].ID).
		Scan(&status, &lastScraped)
	require.NoError(t, err)
	assert.Equal(t, string(model.PageStatusScraped), status)
	assert.WithinDuration(t, at, lastScraped, time.Second)
}

func TestSQLite_MarkPageError(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	w := seedWebsite(t, st)

	_, err := st.BulkCreatePages(ctx, w.ID, []model.DiscoveredPage{{URL: "https://shop.example/p/1"}})
	require.NoError(t, err)
	pages, err := st.ListPendingPages(ctx, w.ID)
	require.NoError(t, err)

	require.NoError(t, st.MarkPageError(ctx, pages[0].ID, "render timed out"))

	remaining, err := st.ListPendingPages(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	err = st.MarkPageError(ctx, "missing-page", "x")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

// --- Scraped data ---

func TestSQLite_UpsertScrapedData_InsertThenUpdate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	w := seedWebsite(t, st)

	_, err := st.BulkCreatePages(ctx, w.ID, []model.DiscoveredPage{{URL: "https://shop.example/p/1"}})
	require.NoError(t, err)
	pages, err := st.ListPendingPages(ctx, w.ID)
	require.NoError(t, err)
	pageID := pages[0].ID

	n, err := st.UpsertScrapedData(ctx, []model.ScrapedData{
		{PageID: pageID, FieldName: "Widget", FieldValue: "12.50 €", FieldValueMeta: []byte(`{"prices":["3.00€"]}`)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Same key again with a new price: one row, refreshed value.
	_, err = st.UpsertScrapedData(ctx, []model.ScrapedData{
		{PageID: pageID, FieldName: "Widget", FieldValue: "11.00 €", FieldValueMeta: []byte(`{"prices":["2.80€"]}`)},
	})
	require.NoError(t, err)

	records, err := st.ListScrapedData(ctx, pageID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Widget", records[0].FieldName)
	assert.Equal(t, "11.00 €", records[0].FieldValue)
	assert.JSONEq(t, `{"prices":["2.80€"]}`, string(records[0].FieldValueMeta))
}

func TestSQLite_UpsertScrapedData_NilMeta(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	w := seedWebsite(t, st)

	_, err := st.BulkCreatePages(ctx, w.ID, []model.DiscoveredPage{{URL: "https://shop.example/p/1"}})
	require.NoError(t, err)
	pages, err := st.ListPendingPages(ctx, w.ID)
	require.NoError(t, err)

	_, err = st.UpsertScrapedData(ctx, []model.ScrapedData{
		{PageID: pages[0].ID, FieldName: "Widget", FieldValue: "9.99 €"},
	})
	require.NoError(t, err)

	records, err := st.ListScrapedData(ctx, pages[0].ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].FieldValueMeta)
}

func TestSQLite_UpsertScrapedData_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.UpsertScrapedData(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

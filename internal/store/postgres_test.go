package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/scraper-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetWebsite_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, base_url, created_at FROM websites WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetWebsite(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetWebsiteByName(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, name, base_url, created_at FROM websites WHERE name = \$1`).
		WithArgs(model.WebsiteKabelbinder).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "base_url", "created_at"}).
			AddRow("w1", model.WebsiteKabelbinder, "https://shop.example", now))

	w, err := s.GetWebsiteByName(context.Background(), model.WebsiteKabelbinder)
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID)
	assert.Equal(t, "https://shop.example", w.BaseURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCriteria(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, website_id, css_selector, type FROM criteria`).
		WithArgs("w1", string(model.CriterionContent)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "website_id", "css_selector", "type"}).
			AddRow("c1", "w1", "product-title|product-heading", model.CriterionContent).
			AddRow("c2", "w1", "price-box", model.CriterionContent))

	criteria, err := s.ListCriteria(context.Background(), "w1", model.CriterionContent)
	require.NoError(t, err)
	require.Len(t, criteria, 2)
	assert.Equal(t, "product-title|product-heading", criteria[0].CSSSelector)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkPageError_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE pages SET status = \$1, error_message = \$2 WHERE id = \$3`).
		WithArgs(string(model.PageStatusError), "render timed out", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.MarkPageError(context.Background(), "missing", "render timed out")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkPagesScraped(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	at := time.Now().UTC()
	mock.ExpectExec(`UPDATE pages SET status = \$1, last_scraped = \$2, error_message = NULL WHERE id = ANY\(\$3\)`).
		WithArgs(string(model.PageStatusScraped), at, []string{"p1", "p2"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	err := s.MarkPagesScraped(context.Background(), []string{"p1", "p2"}, at)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BulkCreatePages_TempTableUpsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_pages"},
		[]string{"id", "website_id", "url", "status", "created_at"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "pages" .+ ON CONFLICT .+ DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := s.BulkCreatePages(context.Background(), "w1", []model.DiscoveredPage{
		{URL: "https://shop.example/p/1"},
		{URL: "https://shop.example/p/1"}, // same URL within one run collapses
		{URL: "https://shop.example/p/2"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertScrapedData_TempTableUpsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_scraped_data"},
		[]string{"id", "page_id", "field_name", "field_value", "field_value_meta", "updated_at"}).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "scraped_data" .+ ON CONFLICT .+ DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := s.UpsertScrapedData(context.Background(), []model.ScrapedData{
		{PageID: "p1", FieldName: "Widget", FieldValue: "12.50 €", FieldValueMeta: []byte(`{"prices":["3.00€"]}`)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertScrapedData_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.UpsertScrapedData(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

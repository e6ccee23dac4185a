package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pricewatch/scraper-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS websites (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	base_url   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS criteria (
	id           TEXT PRIMARY KEY,
	website_id   TEXT NOT NULL REFERENCES websites(id),
	css_selector TEXT NOT NULL,
	type         TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pages (
	id            TEXT PRIMARY KEY,
	website_id    TEXT NOT NULL REFERENCES websites(id),
	url           TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	last_scraped  DATETIME,
	error_message TEXT,
	deleted_at    DATETIME,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (website_id, url)
);

CREATE TABLE IF NOT EXISTS scraped_data (
	id               TEXT PRIMARY KEY,
	page_id          TEXT NOT NULL REFERENCES pages(id),
	field_name       TEXT NOT NULL,
	field_value      TEXT NOT NULL,
	field_value_meta TEXT,
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (page_id, field_name)
);

CREATE INDEX IF NOT EXISTS idx_criteria_website_type ON criteria(website_id, type);
CREATE INDEX IF NOT EXISTS idx_pages_website_status ON pages(website_id, status);
CREATE INDEX IF NOT EXISTS idx_scraped_data_page_id ON scraped_data(page_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateWebsite(ctx context.Context, name, baseURL string) (*model.Website, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO websites (id, name, base_url, created_at) VALUES (?, ?, ?, ?)`,
		id, name, baseURL, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert website %s", name)
	}

	return &model.Website{ID: id, Name: name, BaseURL: baseURL, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetWebsite(ctx context.Context, id string) (*model.Website, error) {
	return s.getWebsite(ctx, `SELECT id, name, base_url, created_at FROM websites WHERE id = ?`, id)
}

func (s *SQLiteStore) GetWebsiteByName(ctx context.Context, name string) (*model.Website, error) {
	return s.getWebsite(ctx, `SELECT id, name, base_url, created_at FROM websites WHERE name = ?`, name)
}

func (s *SQLiteStore) getWebsite(ctx context.Context, query, arg string) (*model.Website, error) {
	var w model.Website
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&w.ID, &w.Name, &w.BaseURL, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "website %s", arg)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get website %s", arg)
	}
	return &w, nil
}

func (s *SQLiteStore) ListWebsites(ctx context.Context) ([]model.Website, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, base_url, created_at FROM websites ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list websites")
	}
	defer rows.Close()

	var websites []model.Website
	for rows.Next() {
		var w model.Website
		if err := rows.Scan(&w.ID, &w.Name, &w.BaseURL, &w.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan website")
		}
		websites = append(websites, w)
	}
	return websites, eris.Wrap(rows.Err(), "sqlite: list websites iterate")
}

func (s *SQLiteStore) CreateCriterion(ctx context.Context, websiteID, cssSelector string, typ model.CriterionType) (*model.Criterion, error) {
	id := uuid.New().String()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO criteria (id, website_id, css_selector, type) VALUES (?, ?, ?, ?)`,
		id, websiteID, cssSelector, string(typ),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert criterion for website %s", websiteID)
	}

	return &model.Criterion{ID: id, WebsiteID: websiteID, CSSSelector: cssSelector, Type: typ}, nil
}

func (s *SQLiteStore) ListCriteria(ctx context.Context, websiteID string, typ model.CriterionType) ([]model.Criterion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, website_id, css_selector, type FROM criteria
		 WHERE website_id = ? AND type = ? ORDER BY created_at`,
		websiteID, string(typ),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list criteria for website %s", websiteID)
	}
	defer rows.Close()

	var criteria []model.Criterion
	for rows.Next() {
		var c model.Criterion
		if err := rows.Scan(&c.ID, &c.WebsiteID, &c.CSSSelector, &c.Type); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan criterion")
		}
		criteria = append(criteria, c)
	}
	return criteria, eris.Wrap(rows.Err(), "sqlite: list criteria iterate")
}

// BulkCreatePages inserts discovered pages in pending state, skipping URLs
// already tracked for the website. Returns the number of new pages.
func (s *SQLiteStore) BulkCreatePages(ctx context.Context, websiteID string, discovered []model.DiscoveredPage) (int64, error) {
	if len(discovered) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin bulk create pages")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pages (id, website_id, url, status, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (website_id, url) DO NOTHING`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare bulk create pages")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var created int64
	for _, d := range discovered {
		res, err := stmt.ExecContext(ctx, uuid.New().String(), websiteID, d.URL, string(model.PageStatusPending), now)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert page %s", d.URL)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		created += n
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit bulk create pages")
	}
	return created, nil
}

func (s *SQLiteStore) ListPendingPages(ctx context.Context, websiteID string) ([]model.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, website_id, url, status, last_scraped, error_message, deleted_at, created_at
		 FROM pages
		 WHERE website_id = ? AND status = ? AND deleted_at IS NULL
		 ORDER BY created_at`,
		websiteID, string(model.PageStatusPending),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list pending pages for website %s", websiteID)
	}
	defer rows.Close()

	var pages []model.Page
	for rows.Next() {
		var p model.Page
		var errMsg sql.NullString
		if err := rows.Scan(&p.ID, &p.WebsiteID, &p.URL, &p.Status, &p.LastScraped, &errMsg, &p.DeletedAt, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan page")
		}
		p.ErrorMessage = errMsg.String
		pages = append(pages, p)
	}
	return pages, eris.Wrap(rows.Err(), "sqlite: list pending pages iterate")
}

func (s *SQLiteStore) MarkPagesScraped(ctx context.Context, pageIDs []string, at time.Time) error {
	if len(pageIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(pageIDs)), ",")
	args := []any{string(model.PageStatusScraped), at.UTC()}
	for _, id := range pageIDs {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE pages SET status = ?, last_scraped = ?, error_message = NULL WHERE id IN (`+placeholders+`)`,
		args...,
	)
	return eris.Wrap(err, "sqlite: mark pages scraped")
}

func (s *SQLiteStore) MarkPageError(ctx context.Context, pageID, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET status = ?, error_message = ? WHERE id = ?`,
		string(model.PageStatusError), message, pageID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark page error %s", pageID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "page %s", pageID)
	}
	return nil
}

// UpsertScrapedData inserts or refreshes field records keyed on
// (page_id, field_name). Returns the number of rows written.
func (s *SQLiteStore) UpsertScrapedData(ctx context.Context, records []model.ScrapedData) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert scraped data")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scraped_data (id, page_id, field_name, field_value, field_value_meta, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (page_id, field_name) DO UPDATE SET
		 	field_value = excluded.field_value,
		 	field_value_meta = excluded.field_value_meta,
		 	updated_at = excluded.updated_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert scraped data")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range records {
		var meta any
		if len(r.FieldValueMeta) > 0 {
			meta = string(r.FieldValueMeta)
		}
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), r.PageID, r.FieldName, r.FieldValue, meta, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert field %s for page %s", r.FieldName, r.PageID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert scraped data")
	}
	return int64(len(records)), nil
}

func (s *SQLiteStore) ListScrapedData(ctx context.Context, pageID string) ([]model.ScrapedData, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, page_id, field_name, field_value, field_value_meta, updated_at
		 FROM scraped_data WHERE page_id = ? ORDER BY field_name`,
		pageID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list scraped data for page %s", pageID)
	}
	defer rows.Close()

	var records []model.ScrapedData
	for rows.Next() {
		var r model.ScrapedData
		var meta sql.NullString
		if err := rows.Scan(&r.ID, &r.PageID, &r.FieldName, &r.FieldValue, &meta, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scraped data")
		}
		if meta.Valid {
			r.FieldValueMeta = []byte(meta.String)
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list scraped data iterate")
}

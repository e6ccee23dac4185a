package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pricewatch/scraper-cli/internal/db"
	"github.com/pricewatch/scraper-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS websites (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL UNIQUE,
	base_url   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS criteria (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	website_id   TEXT NOT NULL REFERENCES websites(id),
	css_selector TEXT NOT NULL,
	type         TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pages (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	website_id    TEXT NOT NULL REFERENCES websites(id),
	url           TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	last_scraped  TIMESTAMPTZ,
	error_message TEXT,
	deleted_at    TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (website_id, url)
);

CREATE TABLE IF NOT EXISTS scraped_data (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	page_id          TEXT NOT NULL REFERENCES pages(id),
	field_name       TEXT NOT NULL,
	field_value      TEXT NOT NULL,
	field_value_meta JSONB,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (page_id, field_name)
);

CREATE INDEX IF NOT EXISTS idx_criteria_website_type ON criteria(website_id, type);
CREATE INDEX IF NOT EXISTS idx_pages_website_status ON pages(website_id, status);
CREATE INDEX IF NOT EXISTS idx_scraped_data_page_id ON scraped_data(page_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) CreateWebsite(ctx context.Context, name, baseURL string) (*model.Website, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO websites (id, name, base_url, created_at) VALUES ($1, $2, $3, $4)`,
		id, name, baseURL, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert website %s", name)
	}

	return &model.Website{ID: id, Name: name, BaseURL: baseURL, CreatedAt: now}, nil
}

func (s *PostgresStore) GetWebsite(ctx context.Context, id string) (*model.Website, error) {
	return s.getWebsite(ctx, `SELECT id, name, base_url, created_at FROM websites WHERE id = $1`, id)
}

func (s *PostgresStore) GetWebsiteByName(ctx context.Context, name string) (*model.Website, error) {
	return s.getWebsite(ctx, `SELECT id, name, base_url, created_at FROM websites WHERE name = $1`, name)
}

func (s *PostgresStore) getWebsite(ctx context.Context, query, arg string) (*model.Website, error) {
	var w model.Website
	err := s.pool.QueryRow(ctx, query, arg).Scan(&w.ID, &w.Name, &w.BaseURL, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "website %s", arg)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get website %s", arg)
	}
	return &w, nil
}

func (s *PostgresStore) ListWebsites(ctx context.Context) ([]model.Website, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, base_url, created_at FROM websites ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list websites")
	}
	defer rows.Close()

	var websites []model.Website
	for rows.Next() {
		var w model.Website
		if err := rows.Scan(&w.ID, &w.Name, &w.BaseURL, &w.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan website")
		}
		websites = append(websites, w)
	}
	return websites, eris.Wrap(rows.Err(), "postgres: list websites iterate")
}

func (s *PostgresStore) CreateCriterion(ctx context.Context, websiteID, cssSelector string, typ model.CriterionType) (*model.Criterion, error) {
	id := uuid.New().String()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO criteria (id, website_id, css_selector, type) VALUES ($1, $2, $3, $4)`,
		id, websiteID, cssSelector, string(typ),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert criterion for website %s", websiteID)
	}

	return &model.Criterion{ID: id, WebsiteID: websiteID, CSSSelector: cssSelector, Type: typ}, nil
}

func (s *PostgresStore) ListCriteria(ctx context.Context, websiteID string, typ model.CriterionType) ([]model.Criterion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, website_id, css_selector, type FROM criteria
		 WHERE website_id = $1 AND type = $2 ORDER BY created_at`,
		websiteID, string(typ),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list criteria for website %s", websiteID)
	}
	defer rows.Close()

	var criteria []model.Criterion
	for rows.Next() {
		var c model.Criterion
		if err := rows.Scan(&c.ID, &c.WebsiteID, &c.CSSSelector, &c.Type); err != nil {
			return nil, eris.Wrap(err, "postgres: scan criterion")
		}
		criteria = append(criteria, c)
	}
	return criteria, eris.Wrap(rows.Err(), "postgres: list criteria iterate")
}

// BulkCreatePages inserts discovered pages in pending state through the
// temp-table COPY path, skipping URLs already tracked for the website.
func (s *PostgresStore) BulkCreatePages(ctx context.Context, websiteID string, discovered []model.DiscoveredPage) (int64, error) {
	if len(discovered) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(discovered))
	seen := make(map[string]bool, len(discovered))
	for _, d := range discovered {
		if seen[d.URL] {
			continue
		}
		seen[d.URL] = true
		rows = append(rows, []any{uuid.New().String(), websiteID, d.URL, string(model.PageStatusPending), now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "pages",
		Columns:      []string{"id", "website_id", "url", "status", "created_at"},
		ConflictKeys: []string{"website_id", "url"},
		DoNothing:    true,
	}, rows)
	return n, eris.Wrapf(err, "postgres: bulk create pages for website %s", websiteID)
}

func (s *PostgresStore) ListPendingPages(ctx context.Context, websiteID string) ([]model.Page, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, website_id, url, status, last_scraped, error_message, deleted_at, created_at
		 FROM pages
		 WHERE website_id = $1 AND status = $2 AND deleted_at IS NULL
		 ORDER BY created_at`,
		websiteID, string(model.PageStatusPending),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list pending pages for website %s", websiteID)
	}
	defer rows.Close()

	var pages []model.Page
	for rows.Next() {
		var p model.Page
		var errMsg *string
		if err := rows.Scan(&p.ID, &p.WebsiteID, &p.URL, &p.Status, &p.LastScraped, &errMsg, &p.DeletedAt, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan page")
		}
		if errMsg != nil {
			p.ErrorMessage = *errMsg
		}
		pages = append(pages, p)
	}
	return pages, eris.Wrap(rows.Err(), "postgres: list pending pages iterate")
}

func (s *PostgresStore) MarkPagesScraped(ctx context.Context, pageIDs []string, at time.Time) error {
	if len(pageIDs) == 0 {
		return nil
	}

	_, err := s.pool.Exec(ctx,
		`UPDATE pages SET status = $1, last_scraped = $2, error_message = NULL WHERE id = ANY($3)`,
		string(model.PageStatusScraped), at.UTC(), pageIDs,
	)
	return eris.Wrap(err, "postgres: mark pages scraped")
}

func (s *PostgresStore) MarkPageError(ctx context.Context, pageID, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pages SET status = $1, error_message = $2 WHERE id = $3`,
		string(model.PageStatusError), message, pageID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark page error %s", pageID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "page %s", pageID)
	}
	return nil
}

// UpsertScrapedData writes field records keyed on (page_id, field_name)
// through the temp-table COPY path.
func (s *PostgresStore) UpsertScrapedData(ctx context.Context, records []model.ScrapedData) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		var meta any
		if len(r.FieldValueMeta) > 0 {
			meta = []byte(r.FieldValueMeta)
		}
		rows = append(rows, []any{uuid.New().String(), r.PageID, r.FieldName, r.FieldValue, meta, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "scraped_data",
		Columns:      []string{"id", "page_id", "field_name", "field_value", "field_value_meta", "updated_at"},
		ConflictKeys: []string{"page_id", "field_name"},
		UpdateCols:   []string{"field_value", "field_value_meta", "updated_at"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert scraped data")
}

func (s *PostgresStore) ListScrapedData(ctx context.Context, pageID string) ([]model.ScrapedData, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, page_id, field_name, field_value, field_value_meta, updated_at
		 FROM scraped_data WHERE page_id = $1 ORDER BY field_name`,
		pageID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list scraped data for page %s", pageID)
	}
	defer rows.Close()

	var records []model.ScrapedData
	for rows.Next() {
		var r model.ScrapedData
		var meta []byte
		if err := rows.Scan(&r.ID, &r.PageID, &r.FieldName, &r.FieldValue, &meta, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan scraped data")
		}
		if len(meta) > 0 {
			r.FieldValueMeta = meta
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list scraped data iterate")
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ClippingsImporter/internal/config"
	"ClippingsImporter/internal/dedup"
	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/ports"
)

const ledgerTable = "processed_articles"

const schema = `CREATE TABLE IF NOT EXISTS processed_articles (
    article_key  TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    url          TEXT NOT NULL,
    published_on TEXT NOT NULL,
    source       TEXT NOT NULL,
    faculty      TEXT NOT NULL,
    person_ids   TEXT NOT NULL,
    status       TEXT NOT NULL,
    reason       TEXT NOT NULL,
    created_at   TEXT NOT NULL,
    updated_at   TEXT NOT NULL
)`

// SQLLedger records emitted articles in SQLite or Postgres.
type SQLLedger struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ArticleLedger = (*SQLLedger)(nil)

// Open connects to the configured driver ("sqlite" or "postgres") and
// creates the ledger table if needed.
func Open(ctx context.Context, cfg config.LedgerConfig) (*SQLLedger, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "sqlite", "sqlite3":
		driver = "sqlite"
	case "postgres", "postgresql":
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported ledger driver %q", cfg.Driver)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	ledger, err := NewSQLLedger(ctx, db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger, nil
}

// NewSQLLedger wraps an open database; driver selects the placeholder style.
func NewSQLLedger(ctx context.Context, db *sql.DB, driver string) (*SQLLedger, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if driver == "postgres" {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create ledger table: %w", err)
	}
	return &SQLLedger{db: db, builder: builder}, nil
}

// Close releases the database handle.
func (l *SQLLedger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// AlreadyProcessed returns the subset of keys present in the ledger.
func (l *SQLLedger) AlreadyProcessed(ctx context.Context, keys []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if l == nil || l.db == nil || len(keys) == 0 {
		return result, nil
	}

	query, args, err := l.builder.
		Select("article_key").
		From(ledgerTable).
		Where(sq.Eq{"article_key": keys}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build processed query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		result[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// SaveProcessed upserts the processed article snapshot.
func (l *SQLLedger) SaveProcessed(ctx context.Context, processed domain.ProcessedArticle) error {
	if l == nil || l.db == nil {
		return nil
	}

	article := processed.Article
	created := processed.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	stamp := created.UTC().Format(time.RFC3339)

	query, args, err := l.builder.
		Insert(ledgerTable).
		Columns("article_key", "title", "url", "published_on", "source", "faculty",
			"person_ids", "status", "reason", "created_at", "updated_at").
		Values(dedup.LedgerKey(article), article.Title, article.URL,
			article.PublishedAt.Format(domain.DateLayout), article.Source, article.Faculty,
			strings.Join(article.Resolution.IdentityIDs(), ","),
			string(processed.Status), string(processed.Reason), stamp, stamp).
		Suffix(`ON CONFLICT (article_key) DO UPDATE SET
            status = excluded.status,
            reason = excluded.reason,
            person_ids = excluded.person_ids,
            updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert processed: %w", err)
	}
	return nil
}

// Count is the number of ledger rows with the given status; empty means all.
func (l *SQLLedger) Count(ctx context.Context, status domain.ProcessingStatus) (int, error) {
	builder := l.builder.Select("COUNT(*)").From(ledgerTable)
	if status != "" {
		builder = builder.Where(sq.Eq{"status": string(status)})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count processed: %w", err)
	}
	return n, nil
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"watchfeed/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

const defaultPageSize = 10

// DB handles all article persistence with a shared connection pool.
type DB struct {
	db *sql.DB
}

func NewDB(database string) (*DB, error) {
	db, err := connection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Upsert inserts an article or, when the link is already stored,
// overwrites every field but id and created_at with the fresh values.
// This is how corrections to a source's content propagate.
func (d *DB) Upsert(ctx context.Context, article models.Article) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	log.WithFields(log.Fields{
		"link":   article.Link,
		"source": article.Source,
	}).Debug("Upserting article")

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO articles (title, link, summary, published, source, image_url, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (link) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			published = excluded.published,
			source = excluded.source,
			image_url = excluded.image_url,
			tags = excluded.tags`,
		article.Title,
		article.Link,
		nullable(article.Summary),
		article.Published.UTC().Format(time.RFC3339),
		article.Source,
		nullable(article.ImageURL),
		nullable(strings.Join(article.Tags, ",")),
	)
	if err != nil {
		return fmt.Errorf("upsert error: %w", err)
	}

	return nil
}

// LatestPublished returns the newest stored publish time for a source,
// or nil when the source has no stored articles yet.
func (d *DB) LatestPublished(ctx context.Context, source string) (*time.Time, error) {
	var raw string
	err := d.db.QueryRowContext(ctx,
		"SELECT published FROM articles WHERE source = ? ORDER BY published DESC LIMIT 1",
		source,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	parsed, err := parseStoredTime(raw)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return &parsed, nil
}

// Query returns one page of articles matching the filters plus the
// total match count over the same predicate.
func (d *DB) Query(ctx context.Context, filters models.ArticleFilters) ([]models.Article, int, error) {
	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	countBuilder := sqlbuilder.NewSelectBuilder()
	countBuilder.Select("COUNT(*)").From("articles")
	applyFilters(countBuilder, filters)

	countSQL, countArgs := countBuilder.BuildWithFlavor(sqlbuilder.SQLite)
	var total int
	if err := d.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count error: %w", err)
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "title", "link", "summary", "published", "source", "image_url", "tags", "created_at")
	sb.From("articles")
	applyFilters(sb, filters)
	sb.OrderBy("published").Desc()
	sb.Limit(limit).Offset((page - 1) * limit)

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	articles := []models.Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan error: %w", err)
		}
		articles = append(articles, article)
	}

	return articles, total, rows.Err()
}

// DistinctSources lists the source names present in the store.
func (d *DB) DistinctSources(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT DISTINCT source FROM articles ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

// DistinctTags lists every tag present in the store, split out of the
// comma-joined blobs, deduplicated and sorted.
func (d *DB) DistinctTags(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT DISTINCT tags FROM articles WHERE tags IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	seen := map[string]struct{}{}
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		for _, tag := range strings.Split(blob, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				seen[tag] = struct{}{}
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return tags, nil
}

func applyFilters(sb *sqlbuilder.SelectBuilder, filters models.ArticleFilters) {
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		sb.Where(sb.Or(sb.Like("title", pattern), sb.Like("summary", pattern)))
	}
	if filters.Source != "" {
		sb.Where(sb.Equal("source", filters.Source))
	}
	if filters.Tag != "" {
		sb.Where(sb.Like("tags", "%"+filters.Tag+"%"))
	}
}

func scanArticle(rows *sql.Rows) (models.Article, error) {
	var (
		article            models.Article
		summary, image     sql.NullString
		tags               sql.NullString
		published, created string
	)

	if err := rows.Scan(&article.Id, &article.Title, &article.Link, &summary,
		&published, &article.Source, &image, &tags, &created); err != nil {
		return models.Article{}, err
	}

	article.Summary = summary.String
	article.ImageURL = image.String
	if tags.Valid && tags.String != "" {
		article.Tags = strings.Split(tags.String, ",")
	}

	parsed, err := parseStoredTime(published)
	if err != nil {
		return models.Article{}, err
	}
	article.Published = parsed

	if createdAt, err := parseStoredTime(created); err == nil {
		article.CreatedAt = createdAt
	}

	return article, nil
}

// parseStoredTime reads both our RFC3339 values and SQLite's own
// CURRENT_TIMESTAMP format.
func parseStoredTime(raw string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02 15:04:05", raw)
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// Package epub implements the EscholArticle repository using PostgreSQL.
// One row links a platform article to its eScholarship item; at most one
// exists per article.
package epub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/cdl-publishing/eschol-connector/internal/adapter/postgres"
	"github.com/cdl-publishing/eschol-connector/internal/domain"
)

// Repo provides eScholarship article-record persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new epub repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const columns = "id, article_id, ark, source_name, source_id, is_doi_registered, doi_result_text, date_published"

// GetByArticle returns the record for the given article.
// Returns domain.ErrNotFound when the article has never been deposited.
func (r *Repo) GetByArticle(ctx context.Context, articleID int64) (*domain.EscholArticle, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Select(columns).
		From("eschol_articles").
		Where("article_id = ?", articleID).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("eschol_article build query: %w", err)
	}

	rec, err := scanOne(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err, "eschol_article", articleID)
	}
	return rec, nil
}

// Create inserts a record for an article that has just received an ark.
func (r *Repo) Create(ctx context.Context, articleID int64, ark string) (*domain.EscholArticle, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Insert("eschol_articles").
		Columns("article_id", "ark", "date_published").
		Values(articleID, ark, time.Now().UTC()).
		Suffix("RETURNING " + columns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("eschol_article build insert: %w", err)
	}

	rec, err := scanOne(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err, "eschol_article", articleID)
	}
	return rec, nil
}

// Save updates the mutable attributes after a deposit or DOI-registration
// attempt and refreshes date_published.
func (r *Repo) Save(ctx context.Context, rec *domain.EscholArticle) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rec.DatePublished = time.Now().UTC()
	sql, args, err := postgres.Builder.
		Update("eschol_articles").
		Set("ark", rec.Ark).
		Set("source_name", rec.SourceName).
		Set("source_id", rec.SourceID).
		Set("is_doi_registered", rec.IsDOIRegistered).
		Set("doi_result_text", rec.DOIResultText).
		Set("date_published", rec.DatePublished).
		Where("id = ?", rec.ID).
		ToSql()
	if err != nil {
		return fmt.Errorf("eschol_article build update: %w", err)
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, "eschol_article", rec.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("eschol_article %d: %w", rec.ID, domain.ErrNotFound)
	}
	return nil
}

func scanOne(row pgx.Row) (*domain.EscholArticle, error) {
	var (
		rec        domain.EscholArticle
		sourceName *string
		sourceID   *string
		doiText    *string
	)
	err := row.Scan(&rec.ID, &rec.ArticleID, &rec.Ark, &sourceName, &sourceID,
		&rec.IsDOIRegistered, &doiText, &rec.DatePublished)
	if err != nil {
		return nil, err
	}
	if sourceName != nil {
		rec.SourceName = *sourceName
	}
	if sourceID != nil {
		rec.SourceID = *sourceID
	}
	if doiText != nil {
		rec.DOIResultText = *doiText
	}
	return &rec, nil
}

// mapError converts pgx/pgconn errors into domain errors.
func mapError(err error, entity string, id int64) error {
	if err == nil {
		return nil
	}

	// context errors pass through as-is
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %d: %w", entity, id, err)
	}

	// pgx.ErrNoRows -> domain.ErrNotFound
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", entity, id, domain.ErrNotFound)
	}

	// PgError codes
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %d: %w", entity, id, domain.ErrAlreadyExists)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %d: %w", entity, id, domain.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s %d: %w", entity, id, domain.ErrValidation)
		}
	}

	// Everything else: wrap with context
	return fmt.Errorf("%s %d: %w", entity, id, err)
}

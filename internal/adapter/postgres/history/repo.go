// Package history implements the publication-history ledger using
// PostgreSQL. Article rows are append-only; issue rows are updated as their
// batch progresses and sealed once every article has been attempted.
package history

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

// Repo provides publication-history persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new history repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const articleColumns = "id, article_id, issue_pub_id, success, result, date"
const issueColumns = "id, issue_id, success, is_complete, result, date"

// ---------------------------------------------------------------------------
// Article rows
// ---------------------------------------------------------------------------

// CreateArticleRecord appends one deposit-attempt row for an article.
func (r *Repo) CreateArticleRecord(ctx context.Context, rec domain.ArticlePublicationHistory) (domain.ArticlePublicationHistory, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if rec.Date.IsZero() {
		rec.Date = time.Now().UTC()
	}

	sql, args, err := postgres.Builder.
		Insert("article_publication_history").
		Columns("article_id", "issue_pub_id", "success", "result", "date").
		Values(rec.ArticleID, rec.IssuePubID, rec.Success, rec.Result, rec.Date).
		Suffix("RETURNING " + articleColumns).
		ToSql()
	if err != nil {
		return domain.ArticlePublicationHistory{}, fmt.Errorf("article_pub build insert: %w", err)
	}

	out, err := scanArticleRow(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return domain.ArticlePublicationHistory{}, mapError(err, "article_pub", rec.ArticleID)
	}
	return out, nil
}

// ListRecent returns the latest article deposit attempts, newest first.
func (r *Repo) ListRecent(ctx context.Context, limit int) ([]domain.ArticlePublicationHistory, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Select(articleColumns).
		From("article_publication_history").
		OrderBy("date DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("article_pub build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "article_pub", 0)
	}
	defer rows.Close()

	var out []domain.ArticlePublicationHistory
	for rows.Next() {
		rec, err := scanArticleRow(rows)
		if err != nil {
			return nil, mapError(err, "article_pub", 0)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListByIssueRecord returns the article rows created during one issue batch.
func (r *Repo) ListByIssueRecord(ctx context.Context, issuePubID int64) ([]domain.ArticlePublicationHistory, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Select(articleColumns).
		From("article_publication_history").
		Where("issue_pub_id = ?", issuePubID).
		OrderBy("date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("article_pub build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "article_pub", issuePubID)
	}
	defer rows.Close()

	var out []domain.ArticlePublicationHistory
	for rows.Next() {
		rec, err := scanArticleRow(rows)
		if err != nil {
			return nil, mapError(err, "article_pub", issuePubID)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Issue rows
// ---------------------------------------------------------------------------

// CreateIssueRecord opens a batch row for an issue deposit.
func (r *Repo) CreateIssueRecord(ctx context.Context, issueID int64) (domain.IssuePublicationHistory, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Insert("issue_publication_history").
		Columns("issue_id", "success", "is_complete", "result", "date").
		Values(issueID, false, false, "", time.Now().UTC()).
		Suffix("RETURNING " + issueColumns).
		ToSql()
	if err != nil {
		return domain.IssuePublicationHistory{}, fmt.Errorf("issue_pub build insert: %w", err)
	}

	out, err := scanIssueRow(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return domain.IssuePublicationHistory{}, mapError(err, "issue_pub", issueID)
	}
	return out, nil
}

// SaveIssueRecord persists the batch's aggregate outcome and completion flag.
func (r *Repo) SaveIssueRecord(ctx context.Context, rec domain.IssuePublicationHistory) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Update("issue_publication_history").
		Set("success", rec.Success).
		Set("is_complete", rec.IsComplete).
		Set("result", rec.Result).
		Where("id = ?", rec.ID).
		ToSql()
	if err != nil {
		return fmt.Errorf("issue_pub build update: %w", err)
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, "issue_pub", rec.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("issue_pub %d: %w", rec.ID, domain.ErrNotFound)
	}
	return nil
}

// HasIncompleteForIssue reports whether an unfinished batch already exists
// for the issue. Advisory only: two concurrent submissions can still race.
func (r *Repo) HasIncompleteForIssue(ctx context.Context, issueID int64) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Select("count(1)").
		From("issue_publication_history").
		Where("issue_id = ? AND NOT is_complete", issueID).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("issue_pub build query: %w", err)
	}

	var n int
	if err := q.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return false, mapError(err, "issue_pub", issueID)
	}
	return n > 0, nil
}

// ListRecentForIssue returns the latest batches for an issue, newest first.
func (r *Repo) ListRecentForIssue(ctx context.Context, issueID int64, limit int) ([]domain.IssuePublicationHistory, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Select(issueColumns).
		From("issue_publication_history").
		Where("issue_id = ?", issueID).
		OrderBy("date DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("issue_pub build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "issue_pub", issueID)
	}
	defer rows.Close()

	var out []domain.IssuePublicationHistory
	for rows.Next() {
		rec, err := scanIssueRow(rows)
		if err != nil {
			return nil, mapError(err, "issue_pub", issueID)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Scan helpers
// ---------------------------------------------------------------------------

func scanArticleRow(row pgx.Row) (domain.ArticlePublicationHistory, error) {
	var rec domain.ArticlePublicationHistory
	err := row.Scan(&rec.ID, &rec.ArticleID, &rec.IssuePubID, &rec.Success, &rec.Result, &rec.Date)
	return rec, err
}

func scanIssueRow(row pgx.Row) (domain.IssuePublicationHistory, error) {
	var rec domain.IssuePublicationHistory
	err := row.Scan(&rec.ID, &rec.IssueID, &rec.Success, &rec.IsComplete, &rec.Result, &rec.Date)
	return rec, err
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
			return fmt.Errorf("%s %d: %w", entity, id, domain.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %d: %w", entity, id, domain.ErrNotFound)
		}
	}

	// Everything else: wrap with context
	return fmt.Errorf("%s %d: %w", entity, id, err)
}

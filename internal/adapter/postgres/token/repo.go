// Package token implements the AccessToken repository using PostgreSQL.
// Tokens sign file-download URLs embedded in deposit payloads; expired rows
// stop validating immediately and are purged by DeleteExpired (the
// cleanup-tokens command).
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/cdl-publishing/eschol-connector/internal/adapter/postgres"
	"github.com/cdl-publishing/eschol-connector/internal/domain"
)

// Repo provides access-token persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new token repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Create mints a fresh token for the (article, file) pair. Tokens are never
// reused: every payload rendering gets its own row.
func (r *Repo) Create(ctx context.Context, articleID, fileID int64) (*domain.AccessToken, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tok, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("access_token generate: %w", err)
	}

	sql, args, err := postgres.Builder.
		Insert("access_tokens").
		Columns("token", "article_id", "file_id", "created_at").
		Values(tok, articleID, fileID, time.Now().UTC()).
		Suffix("RETURNING id, token, article_id, file_id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("access_token build insert: %w", err)
	}

	var t domain.AccessToken
	err = q.QueryRow(ctx, sql, args...).Scan(&t.ID, &t.Token, &t.ArticleID, &t.FileID, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err, "access_token", articleID)
	}
	return &t, nil
}

// Validate reports whether the token grants access to the (article, file)
// pair: the row must match all three attributes and still be inside the TTL
// window. Expired rows stay in place until DeleteExpired runs.
func (r *Repo) Validate(ctx context.Context, articleID, fileID int64, tok string) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Select("id", "token", "article_id", "file_id", "created_at").
		From("access_tokens").
		Where("article_id = ? AND file_id = ? AND token = ?", articleID, fileID, tok).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("access_token build query: %w", err)
	}

	var t domain.AccessToken
	err = q.QueryRow(ctx, sql, args...).Scan(&t.ID, &t.Token, &t.ArticleID, &t.FileID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err, "access_token", articleID)
	}
	return !t.Expired(time.Now().UTC()), nil
}

// DeleteExpired removes all tokens outside the TTL window.
// Returns the count of deleted tokens.
func (r *Repo) DeleteExpired(ctx context.Context) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	cutoff := time.Now().UTC().Add(-domain.AccessTokenTTL)
	sql, args, err := postgres.Builder.
		Delete("access_tokens").
		Where("created_at < ?", cutoff).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("access_token build delete: %w", err)
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError(err, "access_token", 0)
	}
	return int(tag.RowsAffected()), nil
}

// generateToken returns a 32-byte URL-safe random token.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
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
		}
	}

	// Everything else: wrap with context
	return fmt.Errorf("%s %d: %w", entity, id, err)
}

package deposit

import (
	"context"
	"errors"
	"fmt"

	"github.com/cdl-publishing/eschol-connector/internal/domain"
)

// IssueArticleEntry is one row of an issue's deposit-order listing.
type IssueArticleEntry struct {
	ArticleID int64
	Title     string
	Ark       string
}

// IssueArticles lists an issue's published articles in deposit order along
// with their eScholarship arks, plus the issue's recent batch history.
func (s *Service) IssueArticles(ctx context.Context, issueID int64) ([]IssueArticleEntry, []domain.IssuePublicationHistory, error) {
	ids, err := s.journal.SortedArticleIDs(ctx, issueID)
	if err != nil {
		return nil, nil, fmt.Errorf("sorted articles: %w", err)
	}

	entries := make([]IssueArticleEntry, 0, len(ids))
	for _, id := range ids {
		a, err := s.journal.GetArticle(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("load article %d: %w", id, err)
		}
		e := IssueArticleEntry{ArticleID: id, Title: a.Title}
		if epub, err := s.epubs.GetByArticle(ctx, id); err == nil {
			e.Ark = epub.Ark
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("load eschol record %d: %w", id, err)
		}
		entries = append(entries, e)
	}

	batches, err := s.history.ListRecentForIssue(ctx, issueID, 10)
	if err != nil {
		return nil, nil, fmt.Errorf("issue history: %w", err)
	}
	return entries, batches, nil
}

// History lists the most recent article deposit attempts, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]domain.ArticlePublicationHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.history.ListRecent(ctx, limit)
}

// MintArk returns the article's ark, minting a provisional one (and creating
// the EscholArticle record) when none exists yet. Unconfigured environments
// get the placeholder ark so payloads stay well formed.
func (s *Service) MintArk(ctx context.Context, articleID int64) (string, error) {
	epub, err := s.epubs.GetByArticle(ctx, articleID)
	if err == nil {
		return epub.Ark, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("load eschol record: %w", err)
	}

	ark := s.cfg.PlaceholderArk
	if s.escholCfg.Configured() {
		minted, err := s.client.MintProvisionalID(ctx, s.cfg.SourceName, fmt.Sprintf("%d", articleID))
		if err != nil {
			return "", fmt.Errorf("mint provisional id: %w", err)
		}
		ark = minted
	}

	if _, err := s.epubs.Create(ctx, articleID, ark); err != nil {
		return "", fmt.Errorf("create eschol record: %w", err)
	}
	return ark, nil
}

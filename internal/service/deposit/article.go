package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cdl-publishing/eschol-connector/internal/domain"
	"github.com/cdl-publishing/eschol-connector/internal/eschol"
)

// SendArticle runs one deposit attempt for an article and records exactly
// one publication-history row for it. Precondition failures, an unconfigured
// API and transmission errors are all terminal outcomes captured in the row;
// only infrastructure faults (article missing, ledger unwritable) surface as
// errors. issuePubID links the row to an enclosing issue batch.
func (s *Service) SendArticle(ctx context.Context, articleID int64, issuePubID *int64) (domain.ArticlePublicationHistory, error) {
	a, err := s.journal.GetArticle(ctx, articleID)
	if err != nil {
		return domain.ArticlePublicationHistory{}, fmt.Errorf("load article: %w", err)
	}
	ref := articleRef(a)

	if msg := checkPreconditions(a, ref); msg != "" {
		s.log.InfoContext(ctx, "deposit precondition failed",
			slog.Int64("article_id", articleID), slog.String("reason", msg))
		return s.record(ctx, articleID, issuePubID, false, msg)
	}

	epub, err := s.epubs.GetByArticle(ctx, articleID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return s.record(ctx, articleID, issuePubID, false, unexpectedMsg(ref, err))
		}
		epub = nil
	}

	content, epub, err := s.render.Render(ctx, a, epub)
	if err != nil {
		s.log.ErrorContext(ctx, "render failed", slog.Int64("article_id", articleID), slog.String("error", err.Error()))
		return s.record(ctx, articleID, issuePubID, false, unexpectedMsg(ref, err))
	}

	item, err := s.buildItem(ctx, a, epub, content)
	if err != nil {
		s.log.ErrorContext(ctx, "assemble failed", slog.Int64("article_id", articleID), slog.String("error", err.Error()))
		return s.record(ctx, articleID, issuePubID, false, unexpectedMsg(ref, err))
	}

	if !s.escholCfg.Configured() {
		s.log.DebugContext(ctx, "deposit payload", slog.Int64("article_id", articleID), slog.Any("item", item))
		msg := fmt.Sprintf("eScholarship API not configured: %s not sent", ref)
		return s.record(ctx, articleID, issuePubID, false, msg)
	}

	res, err := s.client.Deposit(ctx, item)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, eschol.ErrMalformedResponse) {
			msg = fmt.Sprintf("an unexpected API error occurred sending %s to eScholarship", ref)
		}
		s.log.ErrorContext(ctx, "deposit failed", slog.Int64("article_id", articleID), slog.String("error", err.Error()))
		return s.record(ctx, articleID, issuePubID, false, msg)
	}

	msg := fmt.Sprintf("%s: %s", res.Message, res.ID)
	s.log.InfoContext(ctx, "deposit succeeded", slog.Int64("article_id", articleID), slog.String("ark", res.ID))

	if epub == nil {
		epub, err = s.epubs.Create(ctx, articleID, res.ID)
	} else {
		epub.Ark = res.ID
		err = s.epubs.Save(ctx, epub)
	}
	if err != nil {
		return s.record(ctx, articleID, issuePubID, false, unexpectedMsg(ref, err))
	}

	if err := s.journal.MarkArticleRemote(ctx, articleID, epub.EscholURL(s.escholCfg.BaseURL)); err != nil {
		s.log.ErrorContext(ctx, "mark remote failed", slog.Int64("article_id", articleID), slog.String("error", err.Error()))
	}

	if doi := a.DOI(); doi != "" {
		s.registerDOI(ctx, a, epub)
	} else {
		s.log.WarnContext(ctx, fmt.Sprintf("%s published without DOI", ref), slog.Int64("article_id", articleID))
	}

	return s.record(ctx, articleID, issuePubID, true, msg)
}

// checkPreconditions returns the fixed failure message for the first
// violated deposit precondition, or "" when all pass. Order matters: the
// first violation is the one reported.
func checkPreconditions(a *domain.Article, ref string) string {
	switch {
	case !a.IsPublished:
		return fmt.Sprintf("%s is not published", ref)
	case a.Issue == nil:
		return fmt.Sprintf("%s published without issue", ref)
	case a.Owner == nil:
		return fmt.Sprintf("%s published without owner", ref)
	case a.Title == "":
		return fmt.Sprintf("%s published without title", ref)
	case a.RenderGalley != nil && !a.RenderGalley.Public:
		return fmt.Sprintf("%s has a private render galley", ref)
	}
	return ""
}

// registerDOI is a best-effort side call: any failure is logged and stored
// on the EscholArticle record but never fails the deposit itself. Records
// whose last registration stuck are skipped; failed attempts are retried on
// the next deposit.
func (s *Service) registerDOI(ctx context.Context, a *domain.Article, epub *domain.EscholArticle) {
	if s.registrar == nil {
		return
	}
	if !epub.HasDOIError() {
		return
	}

	result, err := s.registrar.Register(ctx, a.DOI(), epub.EscholURL(s.escholCfg.BaseURL))
	epub.IsDOIRegistered = err == nil
	epub.DOIResultText = result
	if err != nil {
		epub.DOIResultText = err.Error()
		s.log.ErrorContext(ctx, "doi registration failed",
			slog.Int64("article_id", a.ID),
			slog.String("doi", a.DOI()),
			slog.String("error", err.Error()),
		)
	}

	if saveErr := s.epubs.Save(ctx, epub); saveErr != nil {
		s.log.ErrorContext(ctx, "doi result save failed",
			slog.Int64("article_id", a.ID), slog.String("error", saveErr.Error()))
	}
}

// record writes the attempt's ledger row.
func (s *Service) record(ctx context.Context, articleID int64, issuePubID *int64, success bool, result string) (domain.ArticlePublicationHistory, error) {
	rec, err := s.history.CreateArticleRecord(ctx, domain.ArticlePublicationHistory{
		ArticleID:  articleID,
		IssuePubID: issuePubID,
		Success:    success,
		Result:     result,
	})
	if err != nil {
		return rec, fmt.Errorf("write ledger row: %w", err)
	}
	return rec, nil
}

func unexpectedMsg(ref string, err error) string {
	return fmt.Sprintf("an unexpected error occurred sending %s to eScholarship: %v", ref, err)
}

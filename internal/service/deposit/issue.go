package deposit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cdl-publishing/eschol-connector/internal/domain"
	"github.com/cdl-publishing/eschol-connector/internal/eschol"
)

// coverUploadedMsg is the exact confirmation the updateIssue mutation
// returns; anything else counts as a cover-metadata failure.
const coverUploadedMsg = "Cover Image uploaded"

// ScheduleIssueDeposit runs the issue batch on the task runner and returns
// immediately. Without a runner the batch runs inline.
func (s *Service) ScheduleIssueDeposit(ctx context.Context, issueID int64) error {
	if has, err := s.history.HasIncompleteForIssue(ctx, issueID); err != nil {
		return fmt.Errorf("check open batch: %w", err)
	} else if has {
		return fmt.Errorf("issue %d already has an unfinished deposit batch: %w", issueID, domain.ErrConflict)
	}

	if s.tasks == nil {
		_, err := s.SendIssue(ctx, issueID)
		return err
	}

	s.tasks.Schedule(fmt.Sprintf("deposit-issue-%d", issueID), func(taskCtx context.Context) {
		if _, err := s.SendIssue(taskCtx, issueID); err != nil {
			s.log.Error("issue deposit batch failed",
				slog.Int64("issue_id", issueID), slog.String("error", err.Error()))
		}
	})
	return nil
}

// SendIssue deposits an issue's cover metadata and every published article
// in display order under one batch ledger row. The batch row is marked
// complete even when a stage fails early; aggregate success requires the
// cover call and every article to succeed.
func (s *Service) SendIssue(ctx context.Context, issueID int64) (domain.IssuePublicationHistory, error) {
	rec, err := s.history.CreateIssueRecord(ctx, issueID)
	if err != nil {
		return rec, fmt.Errorf("open batch row: %w", err)
	}

	var (
		published int
		total     int
		failures  []string
	)
	success := true

	defer func() {
		rec.Success = success && len(failures) == 0
		rec.IsComplete = true
		if rec.Result == "" {
			if rec.Success {
				rec.Result = rec.Summary(published, total)
			} else {
				rec.Result = strings.Join(failures, "; ")
			}
		}
		if saveErr := s.history.SaveIssueRecord(ctx, rec); saveErr != nil {
			s.log.ErrorContext(ctx, "batch row save failed",
				slog.Int64("issue_id", issueID), slog.String("error", saveErr.Error()))
		}
	}()

	iss, err := s.journal.GetIssue(ctx, issueID)
	if err != nil {
		success = false
		failures = append(failures, fmt.Sprintf("an unexpected error occurred sending issue %d to eScholarship: %v", issueID, err))
		return rec, nil
	}

	coverOK, coverMsg := s.sendIssueMeta(ctx, iss)
	if !coverOK {
		success = false
		failures = append(failures, coverMsg)
	}

	ids, err := s.journal.SortedArticleIDs(ctx, issueID)
	if err != nil {
		success = false
		failures = append(failures, fmt.Sprintf("an unexpected error occurred sending issue %d to eScholarship: %v", issueID, err))
		return rec, nil
	}
	total = len(ids)

	for _, articleID := range ids {
		row, err := s.SendArticle(ctx, articleID, &rec.ID)
		if err != nil {
			success = false
			failures = append(failures, fmt.Sprintf("article %d: %v", articleID, err))
			continue
		}
		if row.Success {
			published++
		} else {
			failures = append(failures, row.Result)
		}
	}

	return rec, nil
}

// sendIssueMeta pushes the issue's cover metadata. Issues without a cover
// image are reported successful without any call; covers require a numeric
// issue number. Success is recognized only on the exact confirmation string.
func (s *Service) sendIssueMeta(ctx context.Context, iss *domain.Issue) (bool, string) {
	if iss.CoverImageURL == "" {
		return true, "No cover image"
	}

	number, err := strconv.Atoi(iss.Number)
	if err != nil {
		return false, fmt.Sprintf("cannot upload cover image for non-integer issue number %s", iss.Number)
	}

	j, err := s.journal.GetJournal(ctx, iss.JournalID)
	if err != nil {
		return false, fmt.Sprintf("an unexpected error occurred sending issue %d to eScholarship: %v", iss.ID, err)
	}

	meta := &eschol.IssueMeta{
		Journal:       j.UnitCode(),
		Issue:         number,
		Volume:        iss.Volume,
		CoverImageURL: coverImageURL(j, iss),
		CoverCaption:  iss.CoverCaption,
		Title:         iss.Title,
		Description:   iss.Description,
	}

	if !s.escholCfg.Configured() {
		s.log.DebugContext(ctx, "issue cover payload", slog.Int64("issue_id", iss.ID), slog.Any("meta", meta))
		return true, fmt.Sprintf("eScholarship API not configured: cover image for issue %d not sent", iss.ID)
	}

	msg, err := s.client.UpdateIssue(ctx, meta)
	if err != nil {
		return false, err.Error()
	}
	if msg != coverUploadedMsg {
		return false, msg
	}
	return true, msg
}

// coverImageURL makes the stored cover path fully qualified against the
// journal's own domain; already-absolute URLs pass through.
func coverImageURL(j *domain.Journal, iss *domain.Issue) string {
	u := iss.CoverImageURL
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	scheme := "http"
	if j.Secure {
		scheme = "https"
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return scheme + "://" + j.Domain + u
}

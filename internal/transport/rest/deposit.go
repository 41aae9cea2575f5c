package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cdl-publishing/eschol-connector/internal/domain"
	"github.com/cdl-publishing/eschol-connector/internal/service/deposit"
)

// depositService defines the minimal interface needed by DepositHandler.
type depositService interface {
	SendArticle(ctx context.Context, articleID int64, issuePubID *int64) (domain.ArticlePublicationHistory, error)
	ScheduleIssueDeposit(ctx context.Context, issueID int64) error
	IssueArticles(ctx context.Context, issueID int64) ([]deposit.IssueArticleEntry, []domain.IssuePublicationHistory, error)
	History(ctx context.Context, limit int) ([]domain.ArticlePublicationHistory, error)
}

// DepositHandler serves deposit REST endpoints.
type DepositHandler struct {
	svc depositService
	log *slog.Logger
}

// NewDepositHandler creates a DepositHandler.
func NewDepositHandler(svc depositService, logger *slog.Logger) *DepositHandler {
	return &DepositHandler{svc: svc, log: logger.With("handler", "deposit")}
}

type articleResultResponse struct {
	ArticleID int64     `json:"articleId"`
	Success   bool      `json:"success"`
	Result    string    `json:"result"`
	Date      time.Time `json:"date"`
}

type issueBatchResponse struct {
	ID         int64     `json:"id"`
	IssueID    int64     `json:"issueId"`
	Success    bool      `json:"success"`
	IsComplete bool      `json:"isComplete"`
	Result     string    `json:"result"`
	Date       time.Time `json:"date"`
}

type issueArticleResponse struct {
	ArticleID int64  `json:"articleId"`
	Title     string `json:"title"`
	Ark       string `json:"ark,omitempty"`
}

type issueArticlesResponse struct {
	Articles []issueArticleResponse `json:"articles"`
	History  []issueBatchResponse   `json:"history"`
}

// DepositArticle handles POST /articles/{article_id}/deposit.
// The deposit attempt runs synchronously; the recorded outcome row is
// returned whether or not the deposit itself succeeded.
func (h *DepositHandler) DepositArticle(w http.ResponseWriter, r *http.Request) {
	articleID, ok := pathID(w, r, "article_id")
	if !ok {
		return
	}

	rec, err := h.svc.SendArticle(r.Context(), articleID, nil)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleResult(rec))
}

// DepositIssue handles POST /issues/{issue_id}/deposit.
// The batch runs in the background; 202 means it was accepted, not that it
// succeeded. A 409 signals an earlier batch for the issue is still open.
func (h *DepositHandler) DepositIssue(w http.ResponseWriter, r *http.Request) {
	issueID, ok := pathID(w, r, "issue_id")
	if !ok {
		return
	}

	if err := h.svc.ScheduleIssueDeposit(r.Context(), issueID); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// IssueArticles handles GET /issues/{issue_id}/articles.
// Lists the issue's published articles in deposit order plus recent batches.
func (h *DepositHandler) IssueArticles(w http.ResponseWriter, r *http.Request) {
	issueID, ok := pathID(w, r, "issue_id")
	if !ok {
		return
	}

	entries, batches, err := h.svc.IssueArticles(r.Context(), issueID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := issueArticlesResponse{
		Articles: make([]issueArticleResponse, 0, len(entries)),
		History:  make([]issueBatchResponse, 0, len(batches)),
	}
	for _, e := range entries {
		resp.Articles = append(resp.Articles, issueArticleResponse{
			ArticleID: e.ArticleID,
			Title:     e.Title,
			Ark:       e.Ark,
		})
	}
	for _, b := range batches {
		resp.History = append(resp.History, toIssueBatch(b))
	}

	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /history?limit=50.
func (h *DepositHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v) //nolint:errcheck
	}

	recs, err := h.svc.History(r.Context(), limit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	out := make([]articleResultResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toArticleResult(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DepositHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses an int64 path segment, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func toArticleResult(rec domain.ArticlePublicationHistory) articleResultResponse {
	return articleResultResponse{
		ArticleID: rec.ArticleID,
		Success:   rec.Success,
		Result:    rec.Result,
		Date:      rec.Date,
	}
}

func toIssueBatch(rec domain.IssuePublicationHistory) issueBatchResponse {
	return issueBatchResponse{
		ID:         rec.ID,
		IssueID:    rec.IssueID,
		Success:    rec.Success,
		IsComplete: rec.IsComplete,
		Result:     rec.Result,
		Date:       rec.Date,
	}
}

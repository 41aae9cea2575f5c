// Package deposit implements the per-article and per-issue deposit
// orchestration: precondition checks, payload assembly, transmission to
// eScholarship and the publication-history ledger rows recording every
// attempt.
package deposit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cdl-publishing/eschol-connector/internal/config"
	"github.com/cdl-publishing/eschol-connector/internal/domain"
	"github.com/cdl-publishing/eschol-connector/internal/eschol"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type journalRepo interface {
	GetArticle(ctx context.Context, id int64) (*domain.Article, error)
	GetIssue(ctx context.Context, id int64) (*domain.Issue, error)
	GetJournal(ctx context.Context, id int64) (*domain.Journal, error)
	SortedArticleIDs(ctx context.Context, issueID int64) ([]int64, error)
	SectionOrder(ctx context.Context, issueID, sectionID int64) (int, error)
	ArticleOrder(ctx context.Context, issueID, sectionID, articleID int64) (int, error)
	MarkArticleRemote(ctx context.Context, articleID int64, url string) error
}

type epubRepo interface {
	GetByArticle(ctx context.Context, articleID int64) (*domain.EscholArticle, error)
	Create(ctx context.Context, articleID int64, ark string) (*domain.EscholArticle, error)
	Save(ctx context.Context, rec *domain.EscholArticle) error
}

type historyRepo interface {
	CreateArticleRecord(ctx context.Context, rec domain.ArticlePublicationHistory) (domain.ArticlePublicationHistory, error)
	ListRecent(ctx context.Context, limit int) ([]domain.ArticlePublicationHistory, error)
	CreateIssueRecord(ctx context.Context, issueID int64) (domain.IssuePublicationHistory, error)
	SaveIssueRecord(ctx context.Context, rec domain.IssuePublicationHistory) error
	HasIncompleteForIssue(ctx context.Context, issueID int64) (bool, error)
	ListRecentForIssue(ctx context.Context, issueID int64, limit int) ([]domain.IssuePublicationHistory, error)
}

type escholClient interface {
	Deposit(ctx context.Context, item *eschol.Item) (*eschol.DepositResult, error)
	MintProvisionalID(ctx context.Context, sourceName, sourceID string) (string, error)
	UpdateIssue(ctx context.Context, meta *eschol.IssueMeta) (string, error)
}

type renderer interface {
	Render(ctx context.Context, a *domain.Article, epub *domain.EscholArticle) (*eschol.Content, *domain.EscholArticle, error)
}

type registrar interface {
	Register(ctx context.Context, doi, target string) (string, error)
}

// TaskRunner schedules a named unit of work to run out-of-band.
type TaskRunner interface {
	Schedule(name string, fn func(ctx context.Context))
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the deposit orchestration.
type Service struct {
	log       *slog.Logger
	journal   journalRepo
	epubs     epubRepo
	history   historyRepo
	client    escholClient
	render    renderer
	registrar registrar
	tasks     TaskRunner
	cfg       config.DepositConfig
	escholCfg config.EscholConfig
}

// NewService creates a new deposit service. The DOI registrar and task
// runner are optional; set them with SetRegistrar / SetTaskRunner.
func NewService(
	logger *slog.Logger,
	journal journalRepo,
	epubs epubRepo,
	history historyRepo,
	client escholClient,
	render renderer,
	cfg config.DepositConfig,
	escholCfg config.EscholConfig,
) *Service {
	return &Service{
		log:       logger.With("service", "deposit"),
		journal:   journal,
		epubs:     epubs,
		history:   history,
		client:    client,
		render:    render,
		cfg:       cfg,
		escholCfg: escholCfg,
	}
}

// SetRegistrar injects the optional DOI registrar. Without one, DOI
// registration is skipped silently.
func (s *Service) SetRegistrar(r registrar) {
	s.registrar = r
}

// SetTaskRunner injects the async runner used for issue batches.
func (s *Service) SetTaskRunner(t TaskRunner) {
	s.tasks = t
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// articleRef renders an article the way ledger rows and log lines name it.
func articleRef(a *domain.Article) string {
	return fmt.Sprintf("article %d", a.ID)
}

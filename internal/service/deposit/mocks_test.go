package deposit

import (
	"context"
	"log/slog"
	"time"

	"github.com/cdl-publishing/eschol-connector/internal/config"
	"github.com/cdl-publishing/eschol-connector/internal/domain"
	"github.com/cdl-publishing/eschol-connector/internal/eschol"
)

type mockJournalRepo struct {
	getArticleFn        func(ctx context.Context, id int64) (*domain.Article, error)
	getIssueFn          func(ctx context.Context, id int64) (*domain.Issue, error)
	getJournalFn        func(ctx context.Context, id int64) (*domain.Journal, error)
	sortedArticleIDsFn  func(ctx context.Context, issueID int64) ([]int64, error)
	sectionOrderFn      func(ctx context.Context, issueID, sectionID int64) (int, error)
	articleOrderFn      func(ctx context.Context, issueID, sectionID, articleID int64) (int, error)
	markArticleRemoteFn func(ctx context.Context, articleID int64, url string) error
}

func (m *mockJournalRepo) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	return m.getArticleFn(ctx, id)
}
func (m *mockJournalRepo) GetIssue(ctx context.Context, id int64) (*domain.Issue, error) {
	return m.getIssueFn(ctx, id)
}
func (m *mockJournalRepo) GetJournal(ctx context.Context, id int64) (*domain.Journal, error) {
	return m.getJournalFn(ctx, id)
}
func (m *mockJournalRepo) SortedArticleIDs(ctx context.Context, issueID int64) ([]int64, error) {
	return m.sortedArticleIDsFn(ctx, issueID)
}
func (m *mockJournalRepo) SectionOrder(ctx context.Context, issueID, sectionID int64) (int, error) {
	if m.sectionOrderFn == nil {
		return 0, domain.ErrNotFound
	}
	return m.sectionOrderFn(ctx, issueID, sectionID)
}
func (m *mockJournalRepo) ArticleOrder(ctx context.Context, issueID, sectionID, articleID int64) (int, error) {
	if m.articleOrderFn == nil {
		return 0, domain.ErrNotFound
	}
	return m.articleOrderFn(ctx, issueID, sectionID, articleID)
}
func (m *mockJournalRepo) MarkArticleRemote(ctx context.Context, articleID int64, url string) error {
	if m.markArticleRemoteFn == nil {
		return nil
	}
	return m.markArticleRemoteFn(ctx, articleID, url)
}

type mockEpubRepo struct {
	getByArticleFn func(ctx context.Context, articleID int64) (*domain.EscholArticle, error)
	createFn       func(ctx context.Context, articleID int64, ark string) (*domain.EscholArticle, error)
	saveFn         func(ctx context.Context, rec *domain.EscholArticle) error
}

func (m *mockEpubRepo) GetByArticle(ctx context.Context, articleID int64) (*domain.EscholArticle, error) {
	if m.getByArticleFn == nil {
		return nil, domain.ErrNotFound
	}
	return m.getByArticleFn(ctx, articleID)
}
func (m *mockEpubRepo) Create(ctx context.Context, articleID int64, ark string) (*domain.EscholArticle, error) {
	return m.createFn(ctx, articleID, ark)
}
func (m *mockEpubRepo) Save(ctx context.Context, rec *domain.EscholArticle) error {
	if m.saveFn == nil {
		return nil
	}
	return m.saveFn(ctx, rec)
}

// mockHistoryRepo echoes rows back and keeps what it wrote for assertions.
type mockHistoryRepo struct {
	articleRows []domain.ArticlePublicationHistory
	issueRows   []domain.IssuePublicationHistory

	hasIncompleteFn      func(ctx context.Context, issueID int64) (bool, error)
	listRecentFn         func(ctx context.Context, limit int) ([]domain.ArticlePublicationHistory, error)
	listRecentForIssueFn func(ctx context.Context, issueID int64, limit int) ([]domain.IssuePublicationHistory, error)
}

func (m *mockHistoryRepo) CreateArticleRecord(_ context.Context, rec domain.ArticlePublicationHistory) (domain.ArticlePublicationHistory, error) {
	rec.ID = int64(len(m.articleRows) + 1)
	rec.Date = time.Now()
	m.articleRows = append(m.articleRows, rec)
	return rec, nil
}
func (m *mockHistoryRepo) ListRecent(ctx context.Context, limit int) ([]domain.ArticlePublicationHistory, error) {
	if m.listRecentFn == nil {
		return m.articleRows, nil
	}
	return m.listRecentFn(ctx, limit)
}
func (m *mockHistoryRepo) CreateIssueRecord(_ context.Context, issueID int64) (domain.IssuePublicationHistory, error) {
	rec := domain.IssuePublicationHistory{
		ID:      int64(len(m.issueRows) + 1),
		IssueID: issueID,
		Date:    time.Now(),
	}
	m.issueRows = append(m.issueRows, rec)
	return rec, nil
}
func (m *mockHistoryRepo) SaveIssueRecord(_ context.Context, rec domain.IssuePublicationHistory) error {
	for i := range m.issueRows {
		if m.issueRows[i].ID == rec.ID {
			m.issueRows[i] = rec
		}
	}
	return nil
}
func (m *mockHistoryRepo) HasIncompleteForIssue(ctx context.Context, issueID int64) (bool, error) {
	if m.hasIncompleteFn == nil {
		return false, nil
	}
	return m.hasIncompleteFn(ctx, issueID)
}
func (m *mockHistoryRepo) ListRecentForIssue(ctx context.Context, issueID int64, limit int) ([]domain.IssuePublicationHistory, error) {
	if m.listRecentForIssueFn == nil {
		return m.issueRows, nil
	}
	return m.listRecentForIssueFn(ctx, issueID, limit)
}

type mockClient struct {
	depositFn     func(ctx context.Context, item *eschol.Item) (*eschol.DepositResult, error)
	mintFn        func(ctx context.Context, sourceName, sourceID string) (string, error)
	updateIssueFn func(ctx context.Context, meta *eschol.IssueMeta) (string, error)
}

func (m *mockClient) Deposit(ctx context.Context, item *eschol.Item) (*eschol.DepositResult, error) {
	return m.depositFn(ctx, item)
}
func (m *mockClient) MintProvisionalID(ctx context.Context, sourceName, sourceID string) (string, error) {
	return m.mintFn(ctx, sourceName, sourceID)
}
func (m *mockClient) UpdateIssue(ctx context.Context, meta *eschol.IssueMeta) (string, error) {
	return m.updateIssueFn(ctx, meta)
}

type mockRenderer struct {
	renderFn func(ctx context.Context, a *domain.Article, epub *domain.EscholArticle) (*eschol.Content, *domain.EscholArticle, error)
}

func (m *mockRenderer) Render(ctx context.Context, a *domain.Article, epub *domain.EscholArticle) (*eschol.Content, *domain.EscholArticle, error) {
	if m.renderFn == nil {
		return &eschol.Content{}, epub, nil
	}
	return m.renderFn(ctx, a, epub)
}

type mockRegistrar struct {
	registerFn func(ctx context.Context, doi, target string) (string, error)
}

func (m *mockRegistrar) Register(ctx context.Context, doi, target string) (string, error) {
	return m.registerFn(ctx, doi, target)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func testDepositConfig() config.DepositConfig {
	return config.DepositConfig{
		SourceName:     "janeway",
		PlaceholderArk: "ark:/13030/qtXXXXXXXX",
	}
}

func configuredEschol() config.EscholConfig {
	return config.EscholConfig{
		APIURL:  "https://submit.example.org/graphql",
		BaseURL: "https://escholarship.org/",
	}
}

func publishedArticle(id int64) *domain.Article {
	now := time.Now()
	return &domain.Article{
		ID:           id,
		Title:        "Observations on Kelp Forests",
		Abstract:     "An abstract.",
		Language:     "en",
		PeerReviewed: true,
		IsPublished:  true,
		LicenseURL:   "https://creativecommons.org/licenses/by/4.0/",

		DatePublished: &now,
		DateSubmitted: &now,

		Owner: &domain.User{ID: 7, Email: "author@example.org"},
		Journal: domain.Journal{
			ID:     3,
			Code:   "kelp",
			Name:   "Kelp Studies",
			ISSN:   "1234-5678",
			Domain: "kelp.example.org",
			Unit:   "uckelp",
		},
		Issue: &domain.Issue{
			ID:        11,
			JournalID: 3,
			Volume:    4,
			Number:    "2",
			Title:     "Spring",
			Date:      now,
		},
		Section: &domain.Section{ID: 5, Name: "Article", Plural: "Articles", PublishedCount: 3},

		Authors: []domain.Author{
			{FirstName: "Ada", LastName: "Tester", Institution: "UC", Email: "ada@example.org"},
		},
		Identifiers: []domain.Identifier{{Type: "doi", Value: "10.1234/kelp.42"}},
		Keywords:    []string{"kelp", "ecology"},
	}
}

func newTestService(j *mockJournalRepo, e *mockEpubRepo, h *mockHistoryRepo, c *mockClient, r *mockRenderer, escholCfg config.EscholConfig) *Service {
	return NewService(
		slog.New(slog.DiscardHandler),
		j, e, h, c, r,
		testDepositConfig(),
		escholCfg,
	)
}

package journal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cdl-publishing/eschol-connector/internal/adapter/postgres/journal"
	"github.com/cdl-publishing/eschol-connector/internal/adapter/postgres/testhelper"
	"github.com/cdl-publishing/eschol-connector/internal/domain"
)

func newRepo(t *testing.T) (*journal.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return journal.New(pool), pool
}

func assertIsDomainError(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

// seedXSLFile inserts a stylesheet row. The platform manages these outside
// the seed helpers, so tests create them directly.
func seedXSLFile(t *testing.T, pool *pgxpool.Pool, label string) domain.XSLFile {
	t.Helper()

	x := domain.XSLFile{
		Label: label + "-" + uuid.New().String()[:8],
		Path:  "/opt/xsl/" + label + ".xsl",
	}
	err := pool.QueryRow(context.Background(),
		`INSERT INTO xsl_files (label, path) VALUES ($1, $2) RETURNING id`,
		x.Label, x.Path,
	).Scan(&x.ID)
	if err != nil {
		t.Fatalf("seedXSLFile: %v", err)
	}
	return x
}

func TestRepo_GetArticle_Aggregate(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	j := testhelper.SeedJournal(t, pool)
	owner := testhelper.SeedUser(t, pool)
	iss := testhelper.SeedIssue(t, pool, j.ID, 4, "2")
	sec := testhelper.SeedSection(t, pool, "Essay")
	articleID := testhelper.SeedArticle(t, pool, j.ID, testhelper.ArticleOpts{
		Published: true,
		OwnerID:   &owner.ID,
		IssueID:   &iss.ID,
		SectionID: &sec.ID,
		Title:     "Kelp Forest Dynamics",
	})
	f := testhelper.SeedFile(t, pool, articleID, "paper.pdf", "application/pdf")
	galleyID := testhelper.SeedGalley(t, pool, articleID, f.ID, "PDF", true)

	img := testhelper.SeedFile(t, pool, articleID, "fig1.png", "image/png")
	if _, err := pool.Exec(ctx,
		`INSERT INTO galley_images (galley_id, file_id) VALUES ($1, $2)`, galleyID, img.ID,
	); err != nil {
		t.Fatalf("insert galley image: %v", err)
	}

	supp := testhelper.SeedFile(t, pool, articleID, "data.csv", "text/csv")
	if _, err := pool.Exec(ctx,
		`INSERT INTO supplementary_files (article_id, file_id, sequence) VALUES ($1, $2, 0)`,
		articleID, supp.ID,
	); err != nil {
		t.Fatalf("insert supplementary file: %v", err)
	}

	if _, err := pool.Exec(ctx,
		`INSERT INTO funders (article_id, name, fundref_id) VALUES ($1, 'Sea Grant', '10.13039/100005595')`,
		articleID,
	); err != nil {
		t.Fatalf("insert funder: %v", err)
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO field_answers (article_id, field_name, answer)
		 VALUES ($1, 'Data Availability', 'The data associated with this publication are available upon request')`,
		articleID,
	); err != nil {
		t.Fatalf("insert field answer: %v", err)
	}

	a, err := repo.GetArticle(ctx, articleID)
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}

	if a.Title != "Kelp Forest Dynamics" {
		t.Errorf("title = %q", a.Title)
	}
	if !a.IsPublished || a.DatePublished == nil {
		t.Error("article must load as published")
	}
	if a.Journal.ID != j.ID || a.Journal.Unit != j.Unit {
		t.Errorf("journal = %+v", a.Journal)
	}
	if a.Owner == nil || a.Owner.Email != owner.Email {
		t.Errorf("owner = %+v", a.Owner)
	}
	if a.Issue == nil || a.Issue.ID != iss.ID || a.Issue.Number != "2" {
		t.Errorf("issue = %+v", a.Issue)
	}
	if a.Section == nil || a.Section.Name != "Essay" || a.Section.Plural != "Essays" {
		t.Errorf("section = %+v", a.Section)
	}
	if a.Section.PublishedCount != 1 {
		t.Errorf("publishedCount = %d", a.Section.PublishedCount)
	}

	if len(a.Authors) != 1 || a.Authors[0].LastName != "Tester" {
		t.Errorf("authors = %+v", a.Authors)
	}
	if a.DOI() == "" {
		t.Error("seeded DOI identifier must surface")
	}
	if len(a.Keywords) != 1 || a.Keywords[0] != "testing" {
		t.Errorf("keywords = %v", a.Keywords)
	}
	if len(a.Funders) != 1 || a.Funders[0].Name != "Sea Grant" {
		t.Errorf("funders = %+v", a.Funders)
	}
	if len(a.FieldAnswers) != 1 || a.FieldAnswers[0].Field != "Data Availability" {
		t.Errorf("fieldAnswers = %+v", a.FieldAnswers)
	}

	if len(a.Galleys) != 1 {
		t.Fatalf("galleys = %+v", a.Galleys)
	}
	g := a.Galleys[0]
	if g.File == nil || g.File.ID != f.ID || g.File.MimeType != "application/pdf" {
		t.Errorf("galley file = %+v", g.File)
	}
	if len(g.Images) != 1 || g.Images[0].OriginalFilename != "fig1.png" {
		t.Errorf("galley images = %+v", g.Images)
	}
	if a.RenderGalley == nil || a.RenderGalley.ID != galleyID {
		t.Errorf("renderGalley = %+v", a.RenderGalley)
	}
	if len(a.SupplementaryFiles) != 1 || a.SupplementaryFiles[0].OriginalFilename != "data.csv" {
		t.Errorf("supplementaryFiles = %+v", a.SupplementaryFiles)
	}
}

func TestRepo_GetArticle_NotFound(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	_, err := repo.GetArticle(context.Background(), 999999999)
	assertIsDomainError(t, err, domain.ErrNotFound)
}

func TestRepo_GetJournal(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)

	j := testhelper.SeedJournal(t, pool)

	got, err := repo.GetJournal(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetJournal: %v", err)
	}
	if got.Code != j.Code || got.Domain != j.Domain || got.Unit != j.Unit {
		t.Errorf("journal = %+v, want %+v", got, j)
	}
	if !got.Secure {
		t.Error("is_secure must roundtrip")
	}
}

func TestRepo_SortedArticleIDs(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	j := testhelper.SeedJournal(t, pool)
	iss := testhelper.SeedIssue(t, pool, j.ID, 1, "1")
	front := testhelper.SeedSection(t, pool, "Editorial")
	body := testhelper.SeedSection(t, pool, "Article")

	seed := func(sectionID *int64, published bool) int64 {
		return testhelper.SeedArticle(t, pool, j.ID, testhelper.ArticleOpts{
			Published: published,
			IssueID:   &iss.ID,
			SectionID: sectionID,
		})
	}
	editorial := seed(&front.ID, true)
	first := seed(&body.ID, true)
	second := seed(&body.ID, true)
	unordered := seed(&body.ID, true)
	seed(&body.ID, false) // unpublished, must not appear

	// Editorial section ahead of the body; swap the body articles so the
	// result order differs from insertion order.
	testhelper.SeedOrdering(t, pool, iss.ID, front.ID, editorial, 0, 0)
	testhelper.SeedOrdering(t, pool, iss.ID, body.ID, second, 1, 0)
	testhelper.SeedOrdering(t, pool, iss.ID, body.ID, first, 1, 1)

	ids, err := repo.SortedArticleIDs(ctx, iss.ID)
	if err != nil {
		t.Fatalf("SortedArticleIDs: %v", err)
	}
	want := []int64{editorial, second, first, unordered}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestRepo_SectionAndArticleOrder(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	j := testhelper.SeedJournal(t, pool)
	iss := testhelper.SeedIssue(t, pool, j.ID, 1, "1")
	sec := testhelper.SeedSection(t, pool, "Article")
	articleID := testhelper.SeedArticle(t, pool, j.ID, testhelper.ArticleOpts{
		Published: true, IssueID: &iss.ID, SectionID: &sec.ID,
	})

	_, err := repo.SectionOrder(ctx, iss.ID, sec.ID)
	assertIsDomainError(t, err, domain.ErrNotFound)
	_, err = repo.ArticleOrder(ctx, iss.ID, sec.ID, articleID)
	assertIsDomainError(t, err, domain.ErrNotFound)

	testhelper.SeedOrdering(t, pool, iss.ID, sec.ID, articleID, 2, 4)

	so, err := repo.SectionOrder(ctx, iss.ID, sec.ID)
	if err != nil {
		t.Fatalf("SectionOrder: %v", err)
	}
	if so != 2 {
		t.Errorf("sectionOrder = %d, want 2", so)
	}
	ao, err := repo.ArticleOrder(ctx, iss.ID, sec.ID, articleID)
	if err != nil {
		t.Fatalf("ArticleOrder: %v", err)
	}
	if ao != 4 {
		t.Errorf("articleOrder = %d, want 4", ao)
	}
}

func TestRepo_MarkArticleRemote(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	j := testhelper.SeedJournal(t, pool)
	articleID := testhelper.SeedArticle(t, pool, j.ID, testhelper.ArticleOpts{Published: true})

	if err := repo.MarkArticleRemote(ctx, articleID, "https://escholarship.org/uc/item/AAAAAAAA"); err != nil {
		t.Fatalf("MarkArticleRemote: %v", err)
	}

	a, err := repo.GetArticle(ctx, articleID)
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if !a.IsRemote {
		t.Error("article must be flagged remote")
	}
	if a.RemoteURL != "https://escholarship.org/uc/item/AAAAAAAA" {
		t.Errorf("remoteURL = %q", a.RemoteURL)
	}
}

func TestRepo_GetFile(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)

	j := testhelper.SeedJournal(t, pool)
	articleID := testhelper.SeedArticle(t, pool, j.ID, testhelper.ArticleOpts{Published: true})
	f := testhelper.SeedFile(t, pool, articleID, "paper.pdf", "application/pdf")

	got, err := repo.GetFile(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if got.ArticleID != articleID || got.OriginalFilename != "paper.pdf" || got.UUIDFilename != f.UUIDFilename {
		t.Errorf("file = %+v", got)
	}

	_, err = repo.GetFile(context.Background(), 999999999)
	assertIsDomainError(t, err, domain.ErrNotFound)
}

func TestRepo_CreateAndDeleteFiles(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	j := testhelper.SeedJournal(t, pool)
	articleID := testhelper.SeedArticle(t, pool, j.ID, testhelper.ArticleOpts{Published: true})

	created, err := repo.CreateFile(ctx, &domain.File{
		ArticleID:        articleID,
		OriginalFilename: "AAAAAAAA.html",
		UUIDFilename:     uuid.New().String(),
		Label:            "Generated HTML",
		MimeType:         "text/html",
		Size:             2048,
	})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if created.ID == 0 || created.Label != "Generated HTML" {
		t.Errorf("created = %+v", created)
	}

	removed, err := repo.DeleteFilesByName(ctx, articleID, "AAAAAAAA.html")
	if err != nil {
		t.Fatalf("DeleteFilesByName: %v", err)
	}
	if len(removed) != 1 || removed[0].ID != created.ID {
		t.Fatalf("removed = %+v", removed)
	}
	if removed[0].UUIDFilename != created.UUIDFilename {
		t.Error("removed rows must carry the stored filename for byte cleanup")
	}

	_, err = repo.GetFile(ctx, created.ID)
	assertIsDomainError(t, err, domain.ErrNotFound)
}

func TestRepo_XSLFiles(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	x := seedXSLFile(t, pool, "default")

	byLabel, err := repo.XSLFileByLabel(ctx, x.Label)
	if err != nil {
		t.Fatalf("XSLFileByLabel: %v", err)
	}
	if byLabel.ID != x.ID || byLabel.Path != x.Path {
		t.Errorf("byLabel = %+v, want %+v", byLabel, x)
	}

	byID, err := repo.XSLFileByID(ctx, x.ID)
	if err != nil {
		t.Fatalf("XSLFileByID: %v", err)
	}
	if byID.Label != x.Label {
		t.Errorf("byID = %+v", byID)
	}

	_, err = repo.XSLFileByLabel(ctx, "no-such-label")
	assertIsDomainError(t, err, domain.ErrNotFound)
}

func TestRepo_AssignGalleyXSL(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	j := testhelper.SeedJournal(t, pool)
	articleID := testhelper.SeedArticle(t, pool, j.ID, testhelper.ArticleOpts{Published: true})
	f := testhelper.SeedFile(t, pool, articleID, "paper.xml", "application/xml")
	galleyID := testhelper.SeedGalley(t, pool, articleID, f.ID, "XML", true)
	x := seedXSLFile(t, pool, "jats")

	if err := repo.AssignGalleyXSL(ctx, galleyID, x.ID); err != nil {
		t.Fatalf("AssignGalleyXSL: %v", err)
	}

	a, err := repo.GetArticle(ctx, articleID)
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if len(a.Galleys) != 1 {
		t.Fatalf("galleys = %+v", a.Galleys)
	}
	if got := a.Galleys[0].XSLFileID; got == nil || *got != x.ID {
		t.Errorf("xslFileID = %v, want %d", got, x.ID)
	}
}

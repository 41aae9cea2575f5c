package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cdl-publishing/eschol-connector/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedJournal creates a journal with a unit mapping row.
// Returns a filled domain.Journal.
func SeedJournal(t *testing.T, pool *pgxpool.Pool) domain.Journal {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	j := domain.Journal{
		Code:   "jrnl" + suffix,
		Name:   "Test Journal " + suffix,
		ISSN:   "1234-5678",
		Domain: "journal-" + suffix + ".example.org",
		Secure: true,
		Unit:   "unit_" + suffix,
	}

	err := pool.QueryRow(ctx,
		`INSERT INTO journals (code, name, issn, domain, is_secure)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		j.Code, j.Name, j.ISSN, j.Domain, j.Secure,
	).Scan(&j.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedJournal insert journal: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO journal_units (journal_id, unit, default_css_url) VALUES ($1, $2, $3)`,
		j.ID, j.Unit, j.DefaultCSSURL,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedJournal insert journal_unit: %v", err)
	}

	return j
}

// SeedUser creates a platform account. Returns a filled domain.User.
func SeedUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()
	ctx := context.Background()

	u := domain.User{Email: "owner-" + uniqueSuffix() + "@example.com"}
	err := pool.QueryRow(ctx,
		`INSERT INTO users (email) VALUES ($1) RETURNING id`, u.Email,
	).Scan(&u.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedUser insert user: %v", err)
	}
	return u
}

// SeedIssue creates an issue in the journal. Returns a filled domain.Issue.
func SeedIssue(t *testing.T, pool *pgxpool.Pool, journalID int64, volume int, number string) domain.Issue {
	t.Helper()
	ctx := context.Background()

	iss := domain.Issue{
		JournalID: journalID,
		Volume:    volume,
		Number:    number,
		Title:     "Issue " + number,
		Date:      time.Now().UTC().Truncate(time.Microsecond),
	}
	err := pool.QueryRow(ctx,
		`INSERT INTO issues (journal_id, volume, number, title, date)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		iss.JournalID, iss.Volume, iss.Number, iss.Title, iss.Date,
	).Scan(&iss.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedIssue insert issue: %v", err)
	}
	return iss
}

// SeedSection creates a section. Returns a filled domain.Section.
func SeedSection(t *testing.T, pool *pgxpool.Pool, name string) domain.Section {
	t.Helper()
	ctx := context.Background()

	sec := domain.Section{Name: name, Plural: name + "s"}
	err := pool.QueryRow(ctx,
		`INSERT INTO sections (name, plural) VALUES ($1, $2) RETURNING id`,
		sec.Name, sec.Plural,
	).Scan(&sec.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedSection insert section: %v", err)
	}
	return sec
}

// ArticleOpts tweaks SeedArticle defaults.
type ArticleOpts struct {
	Published bool
	OwnerID   *int64
	IssueID   *int64
	SectionID *int64
	Title     string
}

// SeedArticle creates an article row with an author, a DOI identifier and one
// keyword. Returns the article ID; use the journal repository to load the full
// aggregate.
func SeedArticle(t *testing.T, pool *pgxpool.Pool, journalID int64, opts ArticleOpts) int64 {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	title := opts.Title
	if title == "" {
		title = "Article " + suffix
	}
	now := time.Now().UTC().Truncate(time.Microsecond)

	var datePublished *time.Time
	if opts.Published {
		datePublished = &now
	}

	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO articles
			(journal_id, issue_id, section_id, owner_id, title, abstract, language,
			 peer_reviewed, is_published, date_submitted, date_published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		journalID, opts.IssueID, opts.SectionID, opts.OwnerID, title,
		"Abstract "+suffix, "en", true, opts.Published, now, datePublished,
	).Scan(&id)
	if err != nil {
		t.Fatalf("testhelper: SeedArticle insert article: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO article_authors
			(article_id, first_name, last_name, institution, email, is_corporate, sequence)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, "Ada", "Tester", "Test University", "ada-"+suffix+"@example.com", false, 0,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedArticle insert author: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO identifiers (article_id, id_type, identifier) VALUES ($1, 'doi', $2)`,
		id, "10.1234/test."+suffix,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedArticle insert identifier: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO keywords (article_id, word, sequence) VALUES ($1, $2, 0)`,
		id, "testing",
	)
	if err != nil {
		t.Fatalf("testhelper: SeedArticle insert keyword: %v", err)
	}

	return id
}

// SeedFile creates a stored-file row for an article. Returns a filled domain.File.
func SeedFile(t *testing.T, pool *pgxpool.Pool, articleID int64, name, mime string) domain.File {
	t.Helper()
	ctx := context.Background()

	f := domain.File{
		ArticleID:        articleID,
		OriginalFilename: name,
		UUIDFilename:     uuid.New().String(),
		MimeType:         mime,
		Size:             1024,
	}
	err := pool.QueryRow(ctx,
		`INSERT INTO files (article_id, original_filename, uuid_filename, label, mime_type, size, is_remote)
		 VALUES ($1, $2, $3, $4, $5, $6, false) RETURNING id`,
		f.ArticleID, f.OriginalFilename, f.UUIDFilename, f.Label, f.MimeType, f.Size,
	).Scan(&f.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedFile insert file: %v", err)
	}
	return f
}

// SeedGalley creates a galley pointing at a stored file and marks it as the
// article's render galley. Returns the galley ID.
func SeedGalley(t *testing.T, pool *pgxpool.Pool, articleID, fileID int64, galleyType string, public bool) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO galleys (article_id, label, type, sequence, public, is_remote, file_id)
		 VALUES ($1, $2, $3, 0, $4, false, $5) RETURNING id`,
		articleID, galleyType, galleyType, public, fileID,
	).Scan(&id)
	if err != nil {
		t.Fatalf("testhelper: SeedGalley insert galley: %v", err)
	}

	_, err = pool.Exec(ctx,
		`UPDATE articles SET render_galley_id = $1 WHERE id = $2`, id, articleID,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedGalley set render galley: %v", err)
	}
	return id
}

// SeedOrdering places a section and an article within an issue.
func SeedOrdering(t *testing.T, pool *pgxpool.Pool, issueID, sectionID, articleID int64, sectionOrder, articleOrder int) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx,
		`INSERT INTO section_orderings (issue_id, section_id, ordering)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (issue_id, section_id) DO UPDATE SET ordering = EXCLUDED.ordering`,
		issueID, sectionID, sectionOrder,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedOrdering insert section_ordering: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO article_orderings (issue_id, section_id, article_id, ordering)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (issue_id, article_id) DO UPDATE SET ordering = EXCLUDED.ordering`,
		issueID, sectionID, articleID, articleOrder,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedOrdering insert article_ordering: %v", err)
	}
}

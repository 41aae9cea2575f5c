// Package journal reads the publishing platform's own records: articles,
// issues, galleys, files and ordering rows. The platform owns this schema;
// the connector treats it as a read-only source except for the two writes
// the deposit pipeline is responsible for (galley XSL fallback assignment
// and the remote-hosting flags set after a successful deposit).
package journal

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/cdl-publishing/eschol-connector/internal/adapter/postgres"
	"github.com/cdl-publishing/eschol-connector/internal/domain"
)

// Repo provides read access to platform records backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new journal repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// GetArticle loads an article snapshot with every relation the deposit
// pipeline consumes: owner, journal (with unit mapping), issue, section,
// authors, identifiers, keywords, field answers, funders, galleys with
// their files and images, and supplementary files.
func (r *Repo) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	a, renderGalleyID, sectionID, issueID, err := r.articleRow(ctx, q, id)
	if err != nil {
		return nil, err
	}

	if sectionID != nil {
		a.Section, err = r.section(ctx, q, *sectionID)
		if err != nil {
			return nil, err
		}
	}
	if issueID != nil {
		a.Issue, err = r.GetIssue(ctx, *issueID)
		if err != nil {
			return nil, err
		}
	}

	if a.Authors, err = r.authors(ctx, q, id); err != nil {
		return nil, err
	}
	if a.Identifiers, err = r.identifiers(ctx, q, id); err != nil {
		return nil, err
	}
	if a.Keywords, err = r.keywords(ctx, q, id); err != nil {
		return nil, err
	}
	if a.FieldAnswers, err = r.fieldAnswers(ctx, q, id); err != nil {
		return nil, err
	}
	if a.Funders, err = r.funders(ctx, q, id); err != nil {
		return nil, err
	}
	if a.Galleys, err = r.galleys(ctx, q, id); err != nil {
		return nil, err
	}
	if a.SupplementaryFiles, err = r.supplementaryFiles(ctx, q, id); err != nil {
		return nil, err
	}

	if renderGalleyID != nil {
		for i := range a.Galleys {
			if a.Galleys[i].ID == *renderGalleyID {
				a.RenderGalley = &a.Galleys[i]
				break
			}
		}
	}

	return a, nil
}

func (r *Repo) articleRow(ctx context.Context, q postgres.Querier, id int64) (*domain.Article, *int64, *int64, *int64, error) {
	sql, args, err := postgres.Builder.
		Select(`a.id, a.title, a.abstract, a.language, a.peer_reviewed, a.is_published,
			a.first_page, a.last_page, a.custom_how_to_cite, a.publisher_name,
			a.license_url, a.is_remote, a.remote_url,
			a.date_submitted, a.date_accepted, a.date_published,
			a.render_galley_id, a.section_id, a.issue_id,
			u.id, u.email,
			j.id, j.code, j.name, j.issn, j.domain, j.is_secure,
			ju.unit, ju.default_css_url`).
		From("articles a").
		Join("journals j ON j.id = a.journal_id").
		LeftJoin("users u ON u.id = a.owner_id").
		LeftJoin("journal_units ju ON ju.journal_id = j.id").
		Where("a.id = ?", id).
		ToSql()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("article build query: %w", err)
	}

	var (
		a                                 domain.Article
		abstract, language, howToCite     *string
		publisherName, licenseURL, remote *string
		firstPage, lastPage               *int
		renderGalleyID, sectionID         *int64
		issueID                           *int64
		ownerID                           *int64
		ownerEmail                        *string
		issn, unit, cssURL                *string
	)
	err = q.QueryRow(ctx, sql, args...).Scan(
		&a.ID, &a.Title, &abstract, &language, &a.PeerReviewed, &a.IsPublished,
		&firstPage, &lastPage, &howToCite, &publisherName,
		&licenseURL, &a.IsRemote, &remote,
		&a.DateSubmitted, &a.DateAccepted, &a.DatePublished,
		&renderGalleyID, &sectionID, &issueID,
		&ownerID, &ownerEmail,
		&a.Journal.ID, &a.Journal.Code, &a.Journal.Name, &issn, &a.Journal.Domain, &a.Journal.Secure,
		&unit, &cssURL,
	)
	if err != nil {
		return nil, nil, nil, nil, mapError(err, "article", id)
	}

	a.Abstract = deref(abstract)
	a.Language = deref(language)
	a.CustomHowToCite = deref(howToCite)
	a.PublisherName = deref(publisherName)
	a.LicenseURL = deref(licenseURL)
	a.RemoteURL = deref(remote)
	a.Journal.ISSN = deref(issn)
	a.Journal.Unit = deref(unit)
	a.Journal.DefaultCSSURL = deref(cssURL)
	if firstPage != nil {
		a.FirstPage = *firstPage
	}
	if lastPage != nil {
		a.LastPage = *lastPage
	}
	if ownerID != nil {
		a.Owner = &domain.User{ID: *ownerID, Email: deref(ownerEmail)}
	}

	return &a, renderGalleyID, sectionID, issueID, nil
}

// GetJournal returns one journal row with its unit mapping.
func (r *Repo) GetJournal(ctx context.Context, id int64) (*domain.Journal, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Select("j.id, j.code, j.name, j.issn, j.domain, j.is_secure, ju.unit, ju.default_css_url").
		From("journals j").
		LeftJoin("journal_units ju ON ju.journal_id = j.id").
		Where("j.id = ?", id).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("journal build query: %w", err)
	}

	var (
		j                  domain.Journal
		issn, unit, cssURL *string
	)
	err = q.QueryRow(ctx, sql, args...).Scan(&j.ID, &j.Code, &j.Name, &issn, &j.Domain, &j.Secure, &unit, &cssURL)
	if err != nil {
		return nil, mapError(err, "journal", id)
	}
	j.ISSN = deref(issn)
	j.Unit = deref(unit)
	j.DefaultCSSURL = deref(cssURL)
	return &j, nil
}

// GetIssue returns one issue row.
func (r *Repo) GetIssue(ctx context.Context, id int64) (*domain.Issue, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Select("id, journal_id, volume, number, title, date, description, cover_caption, cover_image_url").
		From("issues").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("issue build query: %w", err)
	}

	var (
		iss                      domain.Issue
		title, desc, capt, cover *string
	)
	err = q.QueryRow(ctx, sql, args...).Scan(&iss.ID, &iss.JournalID, &iss.Volume,
		&iss.Number, &title, &iss.Date, &desc, &capt, &cover)
	if err != nil {
		return nil, mapError(err, "issue", id)
	}
	iss.Title = deref(title)
	iss.Description = deref(desc)
	iss.CoverCaption = deref(capt)
	iss.CoverImageURL = deref(cover)
	return &iss, nil
}

func (r *Repo) section(ctx context.Context, q postgres.Querier, id int64) (*domain.Section, error) {
	sql, args, err := postgres.Builder.
		Select(`s.id, s.name, s.plural,
			(SELECT count(1) FROM articles a WHERE a.section_id = s.id AND a.is_published)`).
		From("sections s").
		Where("s.id = ?", id).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("section build query: %w", err)
	}

	var (
		sec    domain.Section
		plural *string
	)
	if err := q.QueryRow(ctx, sql, args...).Scan(&sec.ID, &sec.Name, &plural, &sec.PublishedCount); err != nil {
		return nil, mapError(err, "section", id)
	}
	sec.Plural = deref(plural)
	return &sec, nil
}

// SortedArticleIDs returns the issue's published articles in document order:
// section ordering first, article ordering within the section second.
// Articles without ordering rows sort last within their group.
func (r *Repo) SortedArticleIDs(ctx context.Context, issueID int64) ([]int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Select("a.id").
		From("articles a").
		LeftJoin("section_orderings so ON so.issue_id = a.issue_id AND so.section_id = a.section_id").
		LeftJoin("article_orderings ao ON ao.issue_id = a.issue_id AND ao.article_id = a.id").
		Where("a.issue_id = ? AND a.is_published", issueID).
		OrderBy("COALESCE(so.ordering, 2147483647)", "COALESCE(ao.ordering, 2147483647)", "a.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sorted articles build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "issue", issueID)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err, "issue", issueID)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SectionOrder returns the 0-based ordering of a section within an issue.
// Returns domain.ErrNotFound when no explicit ordering row exists.
func (r *Repo) SectionOrder(ctx context.Context, issueID, sectionID int64) (int, error) {
	return r.orderValue(ctx, "section_orderings", postgres.Builder.
		Select("ordering").From("section_orderings").
		Where("issue_id = ? AND section_id = ?", issueID, sectionID))
}

// ArticleOrder returns the 0-based ordering of an article within its section.
// Returns domain.ErrNotFound when no explicit ordering row exists.
func (r *Repo) ArticleOrder(ctx context.Context, issueID, sectionID, articleID int64) (int, error) {
	return r.orderValue(ctx, "article_orderings", postgres.Builder.
		Select("ordering").From("article_orderings").
		Where("issue_id = ? AND section_id = ? AND article_id = ?", issueID, sectionID, articleID))
}

func (r *Repo) orderValue(ctx context.Context, entity string, b sq.SelectBuilder) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s build query: %w", entity, err)
	}

	var ord int
	if err := q.QueryRow(ctx, sql, args...).Scan(&ord); err != nil {
		return 0, mapError(err, entity, 0)
	}
	return ord, nil
}

// GetFile returns one stored-file row.
func (r *Repo) GetFile(ctx context.Context, id int64) (*domain.File, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Select(fileColumns).
		From("files").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("file build query: %w", err)
	}

	f, err := scanFile(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err, "file", id)
	}
	return f, nil
}

// XSLFileByLabel returns the stylesheet row registered under the label.
func (r *Repo) XSLFileByLabel(ctx context.Context, label string) (*domain.XSLFile, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Select("id, label, path").
		From("xsl_files").
		Where("label = ?", label).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("xsl_file build query: %w", err)
	}

	var x domain.XSLFile
	if err := q.QueryRow(ctx, sql, args...).Scan(&x.ID, &x.Label, &x.Path); err != nil {
		return nil, mapError(err, "xsl_file", 0)
	}
	return &x, nil
}

// XSLFileByID returns one stylesheet row.
func (r *Repo) XSLFileByID(ctx context.Context, id int64) (*domain.XSLFile, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Select("id, label, path").
		From("xsl_files").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("xsl_file build query: %w", err)
	}

	var x domain.XSLFile
	if err := q.QueryRow(ctx, sql, args...).Scan(&x.ID, &x.Label, &x.Path); err != nil {
		return nil, mapError(err, "xsl_file", id)
	}
	return &x, nil
}

// AssignGalleyXSL persists the default-stylesheet fallback onto a galley so
// later renders use the same stylesheet.
func (r *Repo) AssignGalleyXSL(ctx context.Context, galleyID, xslFileID int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Update("galleys").
		Set("xsl_file_id", xslFileID).
		Where("id = ?", galleyID).
		ToSql()
	if err != nil {
		return fmt.Errorf("galley build update: %w", err)
	}

	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return mapError(err, "galley", galleyID)
	}
	return nil
}

// MarkArticleRemote flags the article as externally hosted at url.
func (r *Repo) MarkArticleRemote(ctx context.Context, articleID int64, url string) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Update("articles").
		Set("is_remote", true).
		Set("remote_url", url).
		Where("id = ?", articleID).
		ToSql()
	if err != nil {
		return fmt.Errorf("article build update: %w", err)
	}

	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return mapError(err, "article", articleID)
	}
	return nil
}

// CreateFile registers a generated derivative file for an article.
func (r *Repo) CreateFile(ctx context.Context, f *domain.File) (*domain.File, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Insert("files").
		Columns("article_id", "original_filename", "uuid_filename", "label", "mime_type", "size", "is_remote", "remote_url").
		Values(f.ArticleID, f.OriginalFilename, f.UUIDFilename, f.Label, f.MimeType, f.Size, f.IsRemote, f.RemoteURL).
		Suffix("RETURNING " + fileColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("file build insert: %w", err)
	}

	out, err := scanFile(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err, "file", f.ArticleID)
	}
	return out, nil
}

// DeleteFilesByName removes prior derivative rows with the given original
// filename for an article and returns the removed rows so the caller can
// delete the stored bytes too.
func (r *Repo) DeleteFilesByName(ctx context.Context, articleID int64, originalFilename string) ([]domain.File, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder.
		Delete("files").
		Where("article_id = ? AND original_filename = ?", articleID, originalFilename).
		Suffix("RETURNING " + fileColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("file build delete: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "file", articleID)
	}
	defer rows.Close()

	var out []domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, mapError(err, "file", articleID)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Relation loaders
// ---------------------------------------------------------------------------

const fileColumns = "id, article_id, original_filename, uuid_filename, label, mime_type, size, is_remote, remote_url"

const fileColumnsF = "f.id, f.article_id, f.original_filename, f.uuid_filename, f.label, f.mime_type, f.size, f.is_remote, f.remote_url"

func (r *Repo) authors(ctx context.Context, q postgres.Querier, articleID int64) ([]domain.Author, error) {
	sql, args, err := postgres.Builder.
		Select("first_name, middle_name, last_name, institution, email, orcid, is_corporate").
		From("article_authors").
		Where("article_id = ?", articleID).
		OrderBy("sequence ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("authors build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "authors", articleID)
	}
	defer rows.Close()

	var out []domain.Author
	for rows.Next() {
		var (
			a                          domain.Author
			middle, inst, email, orcid *string
		)
		if err := rows.Scan(&a.FirstName, &middle, &a.LastName, &inst, &email, &orcid, &a.IsCorporate); err != nil {
			return nil, mapError(err, "authors", articleID)
		}
		a.MiddleName = deref(middle)
		a.Institution = deref(inst)
		a.Email = deref(email)
		a.ORCID = deref(orcid)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) identifiers(ctx context.Context, q postgres.Querier, articleID int64) ([]domain.Identifier, error) {
	sql, args, err := postgres.Builder.
		Select("id_type, identifier").
		From("identifiers").
		Where("article_id = ?", articleID).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("identifiers build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "identifiers", articleID)
	}
	defer rows.Close()

	var out []domain.Identifier
	for rows.Next() {
		var id domain.Identifier
		if err := rows.Scan(&id.Type, &id.Value); err != nil {
			return nil, mapError(err, "identifiers", articleID)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repo) keywords(ctx context.Context, q postgres.Querier, articleID int64) ([]string, error) {
	sql, args, err := postgres.Builder.
		Select("word").
		From("keywords").
		Where("article_id = ? AND word <> ''", articleID).
		OrderBy("sequence ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("keywords build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "keywords", articleID)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, mapError(err, "keywords", articleID)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *Repo) fieldAnswers(ctx context.Context, q postgres.Querier, articleID int64) ([]domain.FieldAnswer, error) {
	sql, args, err := postgres.Builder.
		Select("field_name, answer").
		From("field_answers").
		Where("article_id = ?", articleID).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("field_answers build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "field_answers", articleID)
	}
	defer rows.Close()

	var out []domain.FieldAnswer
	for rows.Next() {
		var fa domain.FieldAnswer
		if err := rows.Scan(&fa.Field, &fa.Answer); err != nil {
			return nil, mapError(err, "field_answers", articleID)
		}
		out = append(out, fa)
	}
	return out, rows.Err()
}

func (r *Repo) funders(ctx context.Context, q postgres.Querier, articleID int64) ([]domain.Funder, error) {
	sql, args, err := postgres.Builder.
		Select("name, fundref_id").
		From("funders").
		Where("article_id = ?", articleID).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("funders build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "funders", articleID)
	}
	defer rows.Close()

	var out []domain.Funder
	for rows.Next() {
		var (
			f       domain.Funder
			fundref *string
		)
		if err := rows.Scan(&f.Name, &fundref); err != nil {
			return nil, mapError(err, "funders", articleID)
		}
		f.FundRefID = deref(fundref)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repo) galleys(ctx context.Context, q postgres.Querier, articleID int64) ([]domain.Galley, error) {
	sql, args, err := postgres.Builder.
		Select(`g.id, g.article_id, g.label, g.type, g.sequence, g.public,
			g.is_remote, g.remote_file, g.file_id, g.css_file_id, g.xsl_file_id`).
		From("galleys g").
		Where("g.article_id = ?", articleID).
		OrderBy("g.sequence ASC", "g.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("galleys build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "galleys", articleID)
	}

	type galleyRefs struct {
		fileID, cssFileID *int64
	}
	var (
		out  []domain.Galley
		refs []galleyRefs
	)
	for rows.Next() {
		var (
			g          domain.Galley
			gType      *string
			remoteFile *string
			gr         galleyRefs
		)
		if err := rows.Scan(&g.ID, &g.ArticleID, &g.Label, &gType, &g.Sequence, &g.Public,
			&g.IsRemote, &remoteFile, &gr.fileID, &gr.cssFileID, &g.XSLFileID); err != nil {
			rows.Close()
			return nil, mapError(err, "galleys", articleID)
		}
		g.Type = deref(gType)
		g.RemoteFile = deref(remoteFile)
		out = append(out, g)
		refs = append(refs, gr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, mapError(err, "galleys", articleID)
	}
	rows.Close()

	for i := range out {
		if refs[i].fileID != nil {
			f, err := r.fileByID(ctx, q, *refs[i].fileID)
			if err != nil {
				return nil, err
			}
			out[i].File = f
		}
		if refs[i].cssFileID != nil {
			f, err := r.fileByID(ctx, q, *refs[i].cssFileID)
			if err != nil {
				return nil, err
			}
			out[i].CSSFile = f
		}
		imgs, err := r.galleyImages(ctx, q, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Images = imgs
	}
	return out, nil
}

func (r *Repo) galleyImages(ctx context.Context, q postgres.Querier, galleyID int64) ([]domain.File, error) {
	sql, args, err := postgres.Builder.
		Select(fileColumnsF).
		From("galley_images gi").
		Join("files f ON f.id = gi.file_id").
		Where("gi.galley_id = ?", galleyID).
		OrderBy("f.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("galley_images build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "galley_images", galleyID)
	}
	defer rows.Close()

	var out []domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, mapError(err, "galley_images", galleyID)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *Repo) supplementaryFiles(ctx context.Context, q postgres.Querier, articleID int64) ([]domain.File, error) {
	sql, args, err := postgres.Builder.
		Select(fileColumnsF).
		From("supplementary_files sf").
		Join("files f ON f.id = sf.file_id").
		Where("sf.article_id = ?", articleID).
		OrderBy("sf.sequence ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("supplementary_files build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "supplementary_files", articleID)
	}
	defer rows.Close()

	var out []domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, mapError(err, "supplementary_files", articleID)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *Repo) fileByID(ctx context.Context, q postgres.Querier, id int64) (*domain.File, error) {
	sql, args, err := postgres.Builder.
		Select(fileColumns).
		From("files").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("file build query: %w", err)
	}

	f, err := scanFile(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err, "file", id)
	}
	return f, nil
}

func scanFile(row pgx.Row) (*domain.File, error) {
	var (
		f         domain.File
		label     *string
		remoteURL *string
	)
	err := row.Scan(&f.ID, &f.ArticleID, &f.OriginalFilename, &f.UUIDFilename,
		&label, &f.MimeType, &f.Size, &f.IsRemote, &remoteURL)
	if err != nil {
		return nil, err
	}
	f.Label = deref(label)
	f.RemoteURL = deref(remoteURL)
	return &f, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// mapError converts pgx/pgconn errors into domain errors.
func mapError(err error, entity string, id int64) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %d: %w", entity, id, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", entity, id, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %d: %w", entity, id, domain.ErrAlreadyExists)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %d: %w", entity, id, domain.ErrNotFound)
		}
	}

	return fmt.Errorf("%s %d: %w", entity, id, err)
}

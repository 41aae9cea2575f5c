package deposit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cdl-publishing/eschol-connector/internal/domain"
	"github.com/cdl-publishing/eschol-connector/internal/eschol"
)

const dateLayout = "2006-01-02"

// nullISSN is the placeholder the platform stores for journals without a
// registered ISSN; it must never reach the deposit payload.
const nullISSN = "0000-0000"

// buildItem assembles the full deposit item for an article. Optional fields
// are set only when the underlying attribute is non-empty; the Item struct's
// omitempty tags keep absent fields out of the serialized payload. The
// renderer's content fields are merged in; when an EscholArticle already
// exists its ark becomes the item's id, signaling an update.
func (s *Service) buildItem(ctx context.Context, a *domain.Article, epub *domain.EscholArticle, content *eschol.Content) (*eschol.Item, error) {
	sourceName := s.cfg.SourceName
	sourceID := strconv.FormatInt(a.ID, 10)
	if epub != nil && epub.SourceName != "" {
		sourceName = epub.SourceName
		sourceID = epub.SourceID
		if sourceID == "" {
			s.log.ErrorContext(ctx, "source_id not defined for overridden source",
				slog.Int64("article_id", a.ID),
				slog.String("source_name", epub.SourceName),
			)
		}
	}

	item := &eschol.Item{
		SourceName:     sourceName,
		SourceID:       sourceID,
		SourceURL:      a.Journal.Domain,
		SubmitterEmail: a.Owner.Email,
		Title:          a.Title,
		Type:           eschol.TypeArticle,
		Published:      formatDate(a.DatePublished),
		IsPeerReviewed: a.PeerReviewed,
		ContentVersion: eschol.ContentPublisherVersion,
		Journal:        a.Journal.Name,
		Units:          []string{a.Journal.UnitCode()},
		PubRelation:    eschol.PubRelationExternal,
	}

	item.Abstract = a.Abstract
	if a.Journal.ISSN != "" && a.Journal.ISSN != nullISSN {
		item.ISSN = a.Journal.ISSN
	}
	item.DateSubmitted = formatDate(a.DateSubmitted)
	item.DateAccepted = formatDate(a.DateAccepted)
	item.DatePublished = formatDate(a.DatePublished)
	item.CustomCitation = a.CustomHowToCite
	if a.FirstPage > 0 {
		item.FPage = strconv.Itoa(a.FirstPage)
	}
	if a.LastPage > 0 {
		item.LPage = strconv.Itoa(a.LastPage)
	}
	item.Language = a.Language

	if a.Section != nil {
		if a.Section.Plural != "" && a.Section.PublishedCount > 1 {
			item.SectionHeader = a.Section.Plural
		} else {
			item.SectionHeader = a.Section.Name
		}
	}

	item.Keywords = a.Keywords
	item.Rights = normalizeRights(a.LicenseURL)
	item.Publisher = a.PublisherName
	item.DataAvailability, item.DataURL = normalizeDataAvailability(a.FieldAnswers)

	if a.Issue != nil {
		order, err := s.orderInSection(ctx, a.Issue.ID, sectionID(a), a.ID)
		if err != nil {
			return nil, fmt.Errorf("order in section: %w", err)
		}
		item.Volume = strconv.Itoa(a.Issue.Volume)
		item.Issue = a.Issue.Number
		item.IssueTitle = a.Issue.Title
		item.IssueDate = a.Issue.Date.Format(dateLayout)
		item.IssueDescription = a.Issue.Description
		item.IssueCoverCaption = a.Issue.CoverCaption
		item.OrderInSection = order
	}

	item.Authors = buildAuthors(a.Authors)
	item.Grants = buildGrants(a.Funders)

	if content != nil {
		if epub == nil && content.Ark != "" {
			item.ID = content.Ark
		}
		item.ExternalLinks = content.ExternalLinks
		item.ContentLink = content.ContentLink
		item.ContentFileName = content.ContentFileName
		item.SuppFiles = content.SuppFiles
		item.ImgFiles = content.ImgFiles
		item.CSSFiles = content.CSSFiles
	}
	if epub != nil {
		item.ID = epub.Ark
	}

	item.LocalIDs = s.normalizeLocalIDs(a)

	return item, nil
}

func buildAuthors(authors []domain.Author) []eschol.Author {
	if len(authors) == 0 {
		return nil
	}
	out := make([]eschol.Author, 0, len(authors))
	for _, fa := range authors {
		var au eschol.Author
		if fa.IsCorporate {
			au.NameParts = eschol.NameParts{Organization: fa.LastName}
		} else {
			au.NameParts = eschol.NameParts{
				FName:       fa.FirstName,
				MName:       fa.MiddleName,
				LName:       fa.LastName,
				Institution: fa.Institution,
			}
		}
		au.Email = fa.Email
		au.ORCID = fa.ORCID
		out = append(out, au)
	}
	return out
}

func buildGrants(funders []domain.Funder) []eschol.Grant {
	if len(funders) == 0 {
		return nil
	}
	out := make([]eschol.Grant, 0, len(funders))
	for _, f := range funders {
		out = append(out, eschol.Grant{Name: f.Name, Reference: f.FundRefID})
	}
	return out
}

func sectionID(a *domain.Article) int64 {
	if a.Section == nil {
		return 0
	}
	return a.Section.ID
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

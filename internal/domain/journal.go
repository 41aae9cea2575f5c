// Package domain holds the connector's view of the journal platform's
// records plus the records the connector owns itself. Journal-side types are
// read-only snapshots loaded by the journal repository; the connector never
// writes them back except for the two narrow updates the deposit pipeline
// owns (galley XSL fallback assignment, remote-hosting flags).
package domain

import "time"

// Journal is the publication an article belongs to.
type Journal struct {
	ID            int64
	Code          string
	Name          string
	ISSN          string
	Domain        string
	Secure        bool
	Unit          string // eScholarship unit code; empty when no mapping row exists
	DefaultCSSURL string
}

// UnitCode returns the eScholarship unit for the journal, falling back to
// the journal code when no explicit unit mapping exists.
func (j Journal) UnitCode() string {
	if j.Unit != "" {
		return j.Unit
	}
	return j.Code
}

// Issue is one published issue of a journal.
type Issue struct {
	ID            int64
	JournalID     int64
	Volume        int
	Number        string // free text; may be non-numeric ("2-3", "Special")
	Title         string
	Date          time.Time
	Description   string
	CoverCaption  string
	CoverImageURL string // site-relative path; empty when no cover image
}

// Section groups articles within an issue.
type Section struct {
	ID             int64
	Name           string
	Plural         string
	PublishedCount int // published articles in this section
}

// User is the minimal slice of a platform account the connector needs.
type User struct {
	ID    int64
	Email string
}

// Identifier is a persistent identifier attached to an article.
type Identifier struct {
	Type  string // "doi", "pubid", ...
	Value string
}

// FieldAnswer is a submission-form answer keyed by field name.
type FieldAnswer struct {
	Field  string
	Answer string
}

// Funder is a funding source attached to an article.
type Funder struct {
	Name      string
	FundRefID string
}

// Author is a frozen author record as it appeared at publication time.
type Author struct {
	FirstName   string
	MiddleName  string
	LastName    string
	Institution string
	Email       string
	ORCID       string
	IsCorporate bool
}

// File is a stored or remote file attached to an article.
type File struct {
	ID               int64
	ArticleID        int64
	OriginalFilename string
	UUIDFilename     string
	Label            string
	MimeType         string
	Size             int64
	IsRemote         bool
	RemoteURL        string
}

// Galley is a publication-ready rendering artifact attached to an article:
// either a local file or a remote link.
type Galley struct {
	ID         int64
	ArticleID  int64
	Label      string
	Type       string // "PDF", "XML", or empty
	Sequence   int
	Public     bool
	IsRemote   bool
	RemoteFile string // remote URL when IsRemote
	File       *File
	CSSFile    *File
	XSLFileID  *int64
	Images     []File
}

// Article is a read-only snapshot of a platform article with every relation
// the deposit pipeline consumes preloaded.
type Article struct {
	ID              int64
	Title           string
	Abstract        string
	Language        string
	PeerReviewed    bool
	IsPublished     bool
	FirstPage       int
	LastPage        int
	CustomHowToCite string
	PublisherName   string
	LicenseURL      string
	IsRemote        bool
	RemoteURL       string

	DateSubmitted *time.Time
	DateAccepted  *time.Time
	DatePublished *time.Time

	Owner   *User
	Journal Journal
	Issue   *Issue
	Section *Section

	RenderGalley *Galley
	Galleys      []Galley

	Authors            []Author
	Identifiers        []Identifier
	Keywords           []string
	FieldAnswers       []FieldAnswer
	Funders            []Funder
	SupplementaryFiles []File
}

// DOI returns the article's DOI identifier, or "" when none is registered.
func (a *Article) DOI() string {
	for _, id := range a.Identifiers {
		if id.Type == "doi" {
			return id.Value
		}
	}
	return ""
}

// XSLFile is a registered JATS stylesheet galleys can reference.
type XSLFile struct {
	ID    int64
	Label string
	Path  string
}

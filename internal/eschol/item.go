// Package eschol defines the wire types of the eScholarship deposit API.
// The adapter in internal/adapter/eschol transmits them; the deposit service
// assembles them. Optional fields are pointers or slices with omitempty so
// the serialized item carries only the keys that were actually set; the
// API treats a present-but-empty key differently from an absent one.
package eschol

import "errors"

// ErrMalformedResponse marks an API response that carried neither a data nor
// an errors key. Callers surface it as a generic API failure.
var ErrMalformedResponse = errors.New("malformed api response")

// Item is the depositItem mutation input.
type Item struct {
	// ID is the existing ark when the article was deposited before; its
	// presence signals update semantics to eScholarship.
	ID string `json:"id,omitempty"`

	// Required fields, always serialized.
	SourceName     string   `json:"sourceName"`
	SourceID       string   `json:"sourceID"`
	SubmitterEmail string   `json:"submitterEmail"`
	Title          string   `json:"title"`
	Type           string   `json:"type"`
	Published      string   `json:"published"`
	IsPeerReviewed bool     `json:"isPeerReviewed"`
	ContentVersion string   `json:"contentVersion"`
	Units          []string `json:"units"`
	PubRelation    string   `json:"pubRelation"`

	SourceURL string `json:"sourceURL,omitempty"`
	Journal   string `json:"journal,omitempty"`

	Abstract       string   `json:"abstract,omitempty"`
	ISSN           string   `json:"issn,omitempty"`
	DateSubmitted  string   `json:"dateSubmitted,omitempty"`
	DateAccepted   string   `json:"dateAccepted,omitempty"`
	DatePublished  string   `json:"datePublished,omitempty"`
	CustomCitation string   `json:"customCitation,omitempty"`
	FPage          string   `json:"fpage,omitempty"`
	LPage          string   `json:"lpage,omitempty"`
	Language       string   `json:"language,omitempty"`
	SectionHeader  string   `json:"sectionHeader,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	Rights         string   `json:"rights,omitempty"`
	Publisher      string   `json:"publisher,omitempty"`

	DataAvailability string `json:"dataAvailability,omitempty"`
	DataURL          string `json:"dataURL,omitempty"`

	// Issue context, present only when the article belongs to an issue.
	Volume            string `json:"volume,omitempty"`
	Issue             string `json:"issue,omitempty"`
	IssueTitle        string `json:"issueTitle,omitempty"`
	IssueDate         string `json:"issueDate,omitempty"`
	IssueDescription  string `json:"issueDescription,omitempty"`
	IssueCoverCaption string `json:"issueCoverCaption,omitempty"`
	OrderInSection    int    `json:"orderInSection,omitempty"`

	Authors []Author `json:"authors,omitempty"`
	Grants  []Grant  `json:"grants,omitempty"`

	// Content fields produced by the galley renderer.
	ExternalLinks   []string   `json:"externalLinks,omitempty"`
	ContentLink     string     `json:"contentLink,omitempty"`
	ContentFileName string     `json:"contentFileName,omitempty"`
	SuppFiles       []SuppFile `json:"suppFiles,omitempty"`
	ImgFiles        []ImgFile  `json:"imgFiles,omitempty"`
	CSSFiles        *ImgFile   `json:"cssFiles,omitempty"`

	LocalIDs []LocalID `json:"localIDs,omitempty"`
}

// NameParts is the structured person name of an author.
type NameParts struct {
	FName        string `json:"fname,omitempty"`
	MName        string `json:"mname,omitempty"`
	LName        string `json:"lname,omitempty"`
	Institution  string `json:"institution,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// Author is one entry of the item's author list. Corporate authors carry a
// bare organization name instead of person name parts.
type Author struct {
	NameParts NameParts `json:"nameParts"`
	Email     string    `json:"email,omitempty"`
	ORCID     string    `json:"orcid,omitempty"`
}

// Grant is one entry of the item's funder list.
type Grant struct {
	Name      string `json:"name"`
	Reference string `json:"reference,omitempty"`
}

// SuppFile is a supplementary file entry with a resolvable fetch link.
type SuppFile struct {
	File        string `json:"file"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	FetchLink   string `json:"fetchLink"`
	Title       string `json:"title,omitempty"`
}

// ImgFile is an image (or CSS) reference with a resolvable fetch link.
type ImgFile struct {
	File      string `json:"file"`
	FetchLink string `json:"fetchLink"`
}

// LocalID is one source-side identifier of the item.
type LocalID struct {
	ID        string `json:"id"`
	Scheme    string `json:"scheme"`
	SubScheme string `json:"subScheme,omitempty"`
}

// DepositResult is the payload returned by a successful depositItem mutation.
type DepositResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Content carries the content-link fields the galley renderer produces for
// one article, merged into the item by the assembler.
type Content struct {
	Ark             string
	ExternalLinks   []string
	ContentLink     string
	ContentFileName string
	SuppFiles       []SuppFile
	ImgFiles        []ImgFile
	CSSFiles        *ImgFile
}

// IssueMeta is the issue-level metadata pushed by the updateIssue mutation.
// Issue requires a numeric issue number; covers cannot be attached to issues
// with free-text numbering.
type IssueMeta struct {
	Journal       string `json:"journal"`
	Issue         int    `json:"issue"`
	Volume        int    `json:"volume"`
	CoverImageURL string `json:"coverImageURL,omitempty"`
	CoverCaption  string `json:"coverCaption,omitempty"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Constants for the item's fixed-value fields.
const (
	TypeArticle             = "ARTICLE"
	ContentPublisherVersion = "PUBLISHER_VERSION"
	PubRelationExternal     = "EXTERNAL_PUB"

	SchemeDOI     = "DOI"
	SchemeOtherID = "OTHER_ID"
)

package domain

import (
	"fmt"
	"strings"
	"time"
)

// AccessTokenTTL is the validity window for signed file-download tokens.
const AccessTokenTTL = 24 * time.Hour

// EscholArticle links a platform article to its eScholarship item. At most
// one exists per article; it is created lazily on the first successful
// deposit (or when a provisional ark is minted) and updated on every
// subsequent attempt.
type EscholArticle struct {
	ID              int64
	ArticleID       int64
	Ark             string
	SourceName      string // overrides the connector's own source name when set
	SourceID        string
	IsDOIRegistered bool
	DOIResultText   string
	DatePublished   time.Time
}

// ShortArk returns the last 8 characters of the ark's final path segment,
// the form eScholarship item URLs use.
func (e EscholArticle) ShortArk() string {
	parts := strings.Split(e.Ark, "/")
	last := parts[len(parts)-1]
	if len(last) > 8 {
		last = last[len(last)-8:]
	}
	return last
}

// EscholURL returns the public item URL under the given eScholarship base.
func (e EscholArticle) EscholURL(base string) string {
	return fmt.Sprintf("%suc/item/%s", base, e.ShortArk())
}

// HasDOIError reports whether the last DOI registration attempt failed.
func (e EscholArticle) HasDOIError() bool {
	return !(e.IsDOIRegistered && (e.DOIResultText == "" || strings.Contains(e.DOIResultText, "success")))
}

// AccessToken grants time-boxed read access to one (article, file) pair.
// Tokens are opaque random strings; validity requires an exact match of all
// three attributes plus issuance within AccessTokenTTL.
type AccessToken struct {
	ID        int64
	Token     string
	ArticleID int64
	FileID    int64
	CreatedAt time.Time
}

// Expired reports whether the token fell outside the TTL window at now.
func (t AccessToken) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) > AccessTokenTTL
}

// ArticlePublicationHistory is an immutable audit record of one deposit
// attempt for one article.
type ArticlePublicationHistory struct {
	ID         int64
	ArticleID  int64
	IssuePubID *int64 // set when the attempt was part of an issue batch
	Success    bool
	Result     string
	Date       time.Time
}

// String renders the row the way the admin screens display it.
func (h ArticlePublicationHistory) String() string {
	outcome := "failed"
	if h.Success {
		outcome = "successful"
	}
	return fmt.Sprintf("article %d publication %s on %s", h.ArticleID, outcome, h.Date.Format(time.RFC3339))
}

// IssuePublicationHistory is the audit record of one batch deposit of an
// issue. Success is the conjunction of the cover-metadata outcome and every
// child article outcome; IsComplete is set only after all articles in the
// issue have been attempted.
type IssuePublicationHistory struct {
	ID         int64
	IssueID    int64
	Success    bool
	IsComplete bool
	Result     string
	Date       time.Time
}

// Summary renders the batch outcome with child counts.
func (h IssuePublicationHistory) Summary(published, total int) string {
	outcome := "failed"
	if h.Success {
		outcome = "successful"
	}
	return fmt.Sprintf("issue %d publication %s on %s: %d of %d articles published.",
		h.IssueID, outcome, h.Date.Format(time.RFC3339), published, total)
}

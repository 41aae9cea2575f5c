package deposit

import (
	"fmt"
	"strings"

	"github.com/cdl-publishing/eschol-connector/internal/domain"
	"github.com/cdl-publishing/eschol-connector/internal/eschol"
)

// validRights is the only set of license URLs eScholarship accepts as a
// rights value. Anything else is dropped from the payload, not errored.
var validRights = []string{
	"https://creativecommons.org/licenses/by/4.0/",
	"https://creativecommons.org/licenses/by-sa/4.0/",
	"https://creativecommons.org/licenses/by-nd/4.0/",
	"https://creativecommons.org/licenses/by-nc/4.0/",
	"https://creativecommons.org/licenses/by-nc-sa/4.0/",
	"https://creativecommons.org/licenses/by-nc-nd/4.0/",
}

// normalizeRights returns the license URL with a trailing slash when it is
// one of the accepted Creative Commons 4.0 variants, "" otherwise.
func normalizeRights(licenseURL string) string {
	if licenseURL == "" {
		return ""
	}
	if !strings.HasSuffix(licenseURL, "/") {
		licenseURL += "/"
	}
	for _, r := range validRights {
		if licenseURL == r {
			return licenseURL
		}
	}
	return ""
}

// dataAvailabilityCodes maps the submission form's free-text answers to the
// short codes the deposit schema expects.
var dataAvailabilityCodes = map[string]string{
	"Public repository": "publicRepo",
	"Public repository: available after publication": "publicRepoLater",
	"Supplemental files":                             "suppFiles",
	"Within the manuscript":                          "withinManuscript",
	"Available upon request":                         "onRequest",
	"Managed by a third party":                       "thirdParty",
	"Not available":                                  "notAvail",
}

// normalizeDataAvailability resolves the first recognized "Data Availability"
// answer to its code. When the code is publicRepo, the companion "Data URL"
// answer rides along.
func normalizeDataAvailability(answers []domain.FieldAnswer) (code, dataURL string) {
	for _, fa := range answers {
		if fa.Field != "Data Availability" {
			continue
		}
		if c, ok := dataAvailabilityCodes[fa.Answer]; ok {
			code = c
			break
		}
	}
	if code == "publicRepo" {
		for _, fa := range answers {
			if fa.Field == "Data URL" {
				dataURL = fa.Answer
				break
			}
		}
	}
	return code, dataURL
}

// normalizeLocalIDs maps the article's identifiers to localID entries and
// appends the synthetic <prefix>_<id> entry last, so every deposited item
// carries at least one traceable source identifier.
func (s *Service) normalizeLocalIDs(a *domain.Article) []eschol.LocalID {
	out := make([]eschol.LocalID, 0, len(a.Identifiers)+1)
	for _, id := range a.Identifiers {
		if id.Type == "doi" {
			out = append(out, eschol.LocalID{ID: id.Value, Scheme: eschol.SchemeDOI})
			continue
		}
		out = append(out, eschol.LocalID{ID: id.Value, Scheme: eschol.SchemeOtherID, SubScheme: id.Type})
	}
	out = append(out, eschol.LocalID{
		ID:        fmt.Sprintf("%s_%d", s.cfg.SourceName, a.ID),
		Scheme:    eschol.SchemeOtherID,
		SubScheme: "other",
	})
	return out
}

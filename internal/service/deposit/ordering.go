package deposit

import (
	"context"
	"errors"
	"fmt"

	"github.com/cdl-publishing/eschol-connector/internal/domain"
)

// maxArticleOrder is the largest article position the orderInSection
// encoding can carry: the article order occupies the four low-order digits.
const maxArticleOrder = 9999

// orderInSection combines the section's 1-based position within the issue
// and the article's 1-based position within its section into one sortable
// integer: section order in the high digits, article order zero-padded to
// four digits in the low digits. Positions without an explicit ordering row
// default to 1. Orders beyond four digits cannot be encoded and return an
// error rather than a silently lossy value.
func (s *Service) orderInSection(ctx context.Context, issueID, sectionID, articleID int64) (int, error) {
	sectionOrder := 1
	if ord, err := s.journal.SectionOrder(ctx, issueID, sectionID); err == nil {
		sectionOrder = ord + 1
	} else if !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("section order: %w", err)
	}

	articleOrder := 1
	if ord, err := s.journal.ArticleOrder(ctx, issueID, sectionID, articleID); err == nil {
		articleOrder = ord + 1
	} else if !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("article order: %w", err)
	}

	if articleOrder > maxArticleOrder {
		return 0, fmt.Errorf("article order %d exceeds the %d-position encoding limit", articleOrder, maxArticleOrder)
	}

	return sectionOrder*10000 + articleOrder, nil
}

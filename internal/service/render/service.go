// Package render turns an article's chosen galley into the content-link
// fields of a deposit item: a direct link for binary galleys, an external
// link for remote galleys, and a full JATS-to-HTML pipeline (XSLT, wrapper
// template, xmllint normalization, image-link rewriting) for XML galleys.
package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/cdl-publishing/eschol-connector/internal/config"
	"github.com/cdl-publishing/eschol-connector/internal/domain"
	"github.com/cdl-publishing/eschol-connector/internal/eschol"
)

// pdfMimeTypes are the mime types recognized as PDF companions.
var pdfMimeTypes = []string{"application/pdf", "application/x-pdf"}

// xmlMimeTypes trigger the JATS rendering pipeline.
var xmlMimeTypes = []string{"application/xml", "text/xml"}

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type journalRepo interface {
	XSLFileByID(ctx context.Context, id int64) (*domain.XSLFile, error)
	XSLFileByLabel(ctx context.Context, label string) (*domain.XSLFile, error)
	AssignGalleyXSL(ctx context.Context, galleyID, xslFileID int64) error
	CreateFile(ctx context.Context, f *domain.File) (*domain.File, error)
	DeleteFilesByName(ctx context.Context, articleID int64, originalFilename string) ([]domain.File, error)
}

type epubRepo interface {
	Create(ctx context.Context, articleID int64, ark string) (*domain.EscholArticle, error)
}

type tokenRepo interface {
	Create(ctx context.Context, articleID, fileID int64) (*domain.AccessToken, error)
}

type arkMinter interface {
	MintProvisionalID(ctx context.Context, sourceName, sourceID string) (string, error)
}

type blobStore interface {
	Path(articleID int64, uuidFilename string) string
	Write(articleID int64, uuidFilename string, content io.Reader) (int64, error)
	Remove(articleID int64, uuidFilename string) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements galley rendering.
type Service struct {
	log       *slog.Logger
	journal   journalRepo
	epubs     epubRepo
	tokens    tokenRepo
	minter    arkMinter
	blobs     blobStore
	cfg       config.RenderConfig
	depCfg    config.DepositConfig
	escholCfg config.EscholConfig
}

// NewService creates a new render service.
func NewService(
	logger *slog.Logger,
	journal journalRepo,
	epubs epubRepo,
	tokens tokenRepo,
	minter arkMinter,
	blobs blobStore,
	cfg config.RenderConfig,
	depCfg config.DepositConfig,
	escholCfg config.EscholConfig,
) *Service {
	return &Service{
		log:       logger.With("service", "render"),
		journal:   journal,
		epubs:     epubs,
		tokens:    tokens,
		minter:    minter,
		blobs:     blobs,
		cfg:       cfg,
		depCfg:    depCfg,
		escholCfg: escholCfg,
	}
}

// Render produces the content fields for an article's deposit item. The
// returned EscholArticle is non-nil when a record already existed or the
// JATS pipeline minted one; the caller persists any further changes.
// Supplementary files are always appended after any XML/PDF entries.
func (s *Service) Render(ctx context.Context, a *domain.Article, epub *domain.EscholArticle) (*eschol.Content, *domain.EscholArticle, error) {
	content := &eschol.Content{}
	if epub != nil {
		content.Ark = epub.Ark
	}

	galley := selectGalley(a)
	if galley != nil && galley.Public {
		switch {
		case galley.IsRemote:
			content.ExternalLinks = []string{galley.RemoteFile}
		case galley.File != nil && isXML(galley.File.MimeType):
			var err error
			epub, err = s.renderJATS(ctx, a, galley, epub, content)
			if err != nil {
				return nil, epub, fmt.Errorf("render jats galley: %w", err)
			}
		case galley.File != nil:
			link, err := s.fileURL(ctx, a.ID, galley.File.ID)
			if err != nil {
				return nil, epub, err
			}
			content.ContentLink = link
			content.ContentFileName = galley.File.OriginalFilename
		}
	}

	for _, f := range a.SupplementaryFiles {
		entry, err := s.suppFileEntry(ctx, a.ID, f, "", "")
		if err != nil {
			return nil, epub, err
		}
		content.SuppFiles = append(content.SuppFiles, entry)
	}

	return content, epub, nil
}

// selectGalley returns the article's render galley, falling back to the
// first public PDF galley by sequence when none is selected.
func selectGalley(a *domain.Article) *domain.Galley {
	if a.RenderGalley != nil {
		return a.RenderGalley
	}
	for i := range a.Galleys {
		g := &a.Galleys[i]
		if g.Public && g.File != nil && g.File.MimeType == "application/pdf" {
			return g
		}
	}
	return nil
}

// companionPDF finds the PDF rendered alongside an XML galley: first any
// public galley explicitly typed PDF, else the first public untyped galley
// whose file carries a PDF mime type.
func companionPDF(a *domain.Article) *domain.File {
	for i := range a.Galleys {
		g := &a.Galleys[i]
		if g.Public && g.Type == "PDF" && g.File != nil {
			return g.File
		}
	}
	for i := range a.Galleys {
		g := &a.Galleys[i]
		if g.Public && g.Type == "" && g.File != nil && isPDF(g.File.MimeType) {
			return g.File
		}
	}
	return nil
}

// fileURL mints a fresh access token for the (article, file) pair and
// returns the signed download URL. Tokens are never reused between calls.
func (s *Service) fileURL(ctx context.Context, articleID, fileID int64) (string, error) {
	tok, err := s.tokens.Create(ctx, articleID, fileID)
	if err != nil {
		return "", fmt.Errorf("mint access token: %w", err)
	}
	return fmt.Sprintf("%s/download/%d/file/%d?access=%s",
		s.cfg.PublicBaseURL, articleID, fileID, url.QueryEscape(tok.Token)), nil
}

// suppFileEntry builds one suppFiles entry. filename and title override the
// stored values when set (the JATS pipeline renames its XML/PDF entries).
func (s *Service) suppFileEntry(ctx context.Context, articleID int64, f domain.File, filename, title string) (eschol.SuppFile, error) {
	link, err := s.fileURL(ctx, articleID, f.ID)
	if err != nil {
		return eschol.SuppFile{}, err
	}
	if filename == "" {
		filename = f.OriginalFilename
	}
	return eschol.SuppFile{
		File:        filename,
		ContentType: f.MimeType,
		Size:        f.Size,
		FetchLink:   link,
		Title:       title,
	}, nil
}

// imgFileEntry builds one imgFiles entry: remote images link directly, local
// ones get a signed download URL.
func (s *Service) imgFileEntry(ctx context.Context, articleID int64, f domain.File) (eschol.ImgFile, error) {
	if f.IsRemote {
		return eschol.ImgFile{File: f.OriginalFilename, FetchLink: f.RemoteURL}, nil
	}
	link, err := s.fileURL(ctx, articleID, f.ID)
	if err != nil {
		return eschol.ImgFile{}, err
	}
	return eschol.ImgFile{File: f.OriginalFilename, FetchLink: link}, nil
}

// provisionalArk obtains an ark ahead of first deposit: minted through the
// API when configured, the fixed placeholder otherwise.
func (s *Service) provisionalArk(ctx context.Context, articleID int64) (string, error) {
	if !s.escholCfg.Configured() {
		return s.depCfg.PlaceholderArk, nil
	}
	ark, err := s.minter.MintProvisionalID(ctx, s.depCfg.SourceName, strconv.FormatInt(articleID, 10))
	if err != nil {
		return "", fmt.Errorf("mint provisional id: %w", err)
	}
	return ark, nil
}

func isXML(mime string) bool {
	for _, m := range xmlMimeTypes {
		if mime == m {
			return true
		}
	}
	return false
}

func isPDF(mime string) bool {
	for _, m := range pdfMimeTypes {
		if mime == m {
			return true
		}
	}
	return false
}

package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os/exec"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/cdl-publishing/eschol-connector/internal/domain"
	"github.com/cdl-publishing/eschol-connector/internal/eschol"
)

// wrapperHTML frames the XSLT output as a standalone page with the unit's
// default stylesheet and the galley's own CSS, when present.
const wrapperHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
{{if .DefaultCSSURL}}<link rel="stylesheet" type="text/css" href="{{.DefaultCSSURL}}"/>
{{end}}{{if .CSSFileURL}}<link rel="stylesheet" type="text/css" href="{{.CSSFileURL}}"/>
{{end}}</head>
<body>
<div class="article-content">
{{.ArticleContent}}
</div>
</body>
</html>
`

var wrapperTmpl = template.Must(template.New("wrapper").Parse(wrapperHTML))

type wrapperData struct {
	ArticleContent template.HTML
	DefaultCSSURL  string
	CSSFileURL     string
}

// renderJATS runs the full XML pipeline for a JATS galley: XSLT to HTML,
// wrapper template, xmllint normalization, image-link rewriting, storage of
// the generated HTML as a new article file replacing any prior derivative,
// and the XML/PDF/image/CSS sidecar entries. When no EscholArticle exists
// yet, a provisional ark is minted so the generated filenames are stable.
func (s *Service) renderJATS(ctx context.Context, a *domain.Article, galley *domain.Galley, epub *domain.EscholArticle, content *eschol.Content) (*domain.EscholArticle, error) {
	xsl, err := s.resolveXSL(ctx, galley)
	if err != nil {
		return epub, err
	}

	xmlPath := s.blobs.Path(a.ID, galley.File.UUIDFilename)
	body, err := s.runXSLT(ctx, xsl.Path, xmlPath)
	if err != nil {
		return epub, err
	}

	var cssURL string
	if galley.CSSFile != nil {
		entry, err := s.imgFileEntry(ctx, a.ID, *galley.CSSFile)
		if err != nil {
			return epub, err
		}
		content.CSSFiles = &entry
		cssURL = entry.FetchLink
	}

	var page bytes.Buffer
	err = wrapperTmpl.Execute(&page, wrapperData{
		ArticleContent: template.HTML(body),
		DefaultCSSURL:  a.Journal.DefaultCSSURL,
		CSSFileURL:     cssURL,
	})
	if err != nil {
		return epub, fmt.Errorf("wrapper template: %w", err)
	}

	html, err := s.runXMLLint(ctx, page.Bytes())
	if err != nil {
		return epub, err
	}

	if epub == nil {
		ark, err := s.provisionalArk(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		epub, err = s.epubs.Create(ctx, a.ID, ark)
		if err != nil {
			return nil, fmt.Errorf("create eschol record: %w", err)
		}
	}
	content.Ark = epub.Ark
	shortArk := lastSegment(epub.Ark)

	imgs := make([]eschol.ImgFile, 0, len(galley.Images))
	links := make(map[string]string, len(galley.Images))
	for _, img := range galley.Images {
		entry, err := s.imgFileEntry(ctx, a.ID, img)
		if err != nil {
			return epub, err
		}
		imgs = append(imgs, entry)
		links[img.OriginalFilename] = entry.FetchLink
	}
	content.ImgFiles = imgs

	if len(links) > 0 {
		html, err = rewriteImageLinks(html, links)
		if err != nil {
			return epub, err
		}
	}

	htmlFile, err := s.storeGeneratedHTML(ctx, a, shortArk, html)
	if err != nil {
		return epub, err
	}

	link, err := s.fileURL(ctx, a.ID, htmlFile.ID)
	if err != nil {
		return epub, err
	}
	content.ContentLink = link
	content.ContentFileName = htmlFile.OriginalFilename

	xmlEntry, err := s.suppFileEntry(ctx, a.ID, *galley.File, shortArk+".xml", "[XML] "+a.Title)
	if err != nil {
		return epub, err
	}
	content.SuppFiles = append(content.SuppFiles, xmlEntry)

	if pdf := companionPDF(a); pdf != nil {
		pdfEntry, err := s.suppFileEntry(ctx, a.ID, *pdf, shortArk+".pdf", "[PDF] "+a.Title)
		if err != nil {
			return epub, err
		}
		content.SuppFiles = append(content.SuppFiles, pdfEntry)
	}

	return epub, nil
}

// resolveXSL returns the galley's stylesheet, assigning and persisting the
// configured default when none is set so later renders use the same one.
func (s *Service) resolveXSL(ctx context.Context, galley *domain.Galley) (*domain.XSLFile, error) {
	if galley.XSLFileID != nil {
		xsl, err := s.journal.XSLFileByID(ctx, *galley.XSLFileID)
		if err == nil {
			return xsl, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("load xsl file: %w", err)
		}
	}

	xsl, err := s.journal.XSLFileByLabel(ctx, s.cfg.DefaultXSLLabel)
	if err != nil {
		return nil, fmt.Errorf("load default xsl %q: %w", s.cfg.DefaultXSLLabel, err)
	}
	if err := s.journal.AssignGalleyXSL(ctx, galley.ID, xsl.ID); err != nil {
		return nil, fmt.Errorf("assign default xsl: %w", err)
	}
	galley.XSLFileID = &xsl.ID
	return xsl, nil
}

// runXSLT transforms the JATS XML into an HTML fragment via xsltproc.
func (s *Service) runXSLT(ctx context.Context, xslPath, xmlPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, s.cfg.XSLTProcPath, xslPath, xmlPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("xsltproc: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// runXMLLint normalizes the assembled page through xmllint's HTML parser,
// recovering from the tag soup XSLT stylesheets tend to produce.
func (s *Service) runXMLLint(ctx context.Context, page []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, s.cfg.XMLLintPath,
		"--html", "--xmlout", "--format", "--encode", "utf-8", "/dev/stdin")
	cmd.Stdin = bytes.NewReader(page)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("xmllint: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// rewriteImageLinks points <img src> references at the signed fetch links so
// the generated HTML resolves its images wherever it is served from.
func rewriteImageLinks(html []byte, links map[string]string) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse generated html: %w", err)
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok {
			return
		}
		if link, ok := links[path.Base(src)]; ok {
			sel.SetAttr("src", link)
		}
	})

	out, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("serialize generated html: %w", err)
	}
	return []byte(out), nil
}

// storeGeneratedHTML writes the rendered page as <shortArk>.html, removing
// any previously generated file of the same name first.
func (s *Service) storeGeneratedHTML(ctx context.Context, a *domain.Article, shortArk string, html []byte) (*domain.File, error) {
	filename := shortArk + ".html"

	old, err := s.journal.DeleteFilesByName(ctx, a.ID, filename)
	if err != nil {
		return nil, fmt.Errorf("delete prior html: %w", err)
	}
	for _, f := range old {
		if rmErr := s.blobs.Remove(a.ID, f.UUIDFilename); rmErr != nil {
			s.log.WarnContext(ctx, "stale derivative not removed",
				slog.Int64("article_id", a.ID), slog.String("file", f.UUIDFilename))
		}
	}

	uuidName := uuid.New().String() + ".html"
	n, err := s.blobs.Write(a.ID, uuidName, bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("store generated html: %w", err)
	}

	file, err := s.journal.CreateFile(ctx, &domain.File{
		ArticleID:        a.ID,
		OriginalFilename: filename,
		UUIDFilename:     uuidName,
		Label:            "Generated HTML",
		MimeType:         "text/html",
		Size:             n,
	})
	if err != nil {
		return nil, fmt.Errorf("register generated html: %w", err)
	}
	return file, nil
}

func lastSegment(ark string) string {
	parts := strings.Split(ark, "/")
	return parts[len(parts)-1]
}

package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/cdl-publishing/eschol-connector/internal/domain"
)

// tokenValidator checks whether an access token grants a (article, file) pair.
type tokenValidator interface {
	Validate(ctx context.Context, articleID, fileID int64, token string) (bool, error)
}

// fileGetter loads file metadata from the platform database.
type fileGetter interface {
	GetFile(ctx context.Context, id int64) (*domain.File, error)
}

// blobOpener opens stored file bytes.
type blobOpener interface {
	Open(articleID int64, uuidFilename string) (io.ReadCloser, error)
}

// DownloadHandler serves token-signed file downloads. These are the URLs
// embedded in deposit payloads so the eScholarship harvester can fetch
// content without platform credentials.
type DownloadHandler struct {
	tokens tokenValidator
	files  fileGetter
	blobs  blobOpener
	log    *slog.Logger
}

// NewDownloadHandler creates a DownloadHandler.
func NewDownloadHandler(tokens tokenValidator, files fileGetter, blobs blobOpener, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{tokens: tokens, files: files, blobs: blobs, log: logger.With("handler", "download")}
}

// File handles GET /download/{article_id}/file/{file_id}?access=TOKEN.
// A missing, expired or mismatched token yields 403; a file the token is
// valid for but whose row or bytes are gone yields 404.
func (h *DownloadHandler) File(w http.ResponseWriter, r *http.Request) {
	articleID, ok := pathID(w, r, "article_id")
	if !ok {
		return
	}
	fileID, ok := pathID(w, r, "file_id")
	if !ok {
		return
	}

	tok := r.URL.Query().Get("access")
	if tok == "" {
		writeError(w, http.StatusForbidden, "access token required")
		return
	}

	valid, err := h.tokens.Validate(r.Context(), articleID, fileID, tok)
	if err != nil {
		h.log.ErrorContext(r.Context(), "token validation failed",
			slog.Int64("article_id", articleID), slog.Int64("file_id", fileID),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !valid {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	f, err := h.files.GetFile(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		h.log.ErrorContext(r.Context(), "load file failed",
			slog.Int64("file_id", fileID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if f.ArticleID != articleID {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	body, err := h.blobs.Open(articleID, f.UUIDFilename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		h.log.ErrorContext(r.Context(), "open file failed",
			slog.Int64("file_id", fileID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", f.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.OriginalFilename))
	if f.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	}
	io.Copy(w, body) //nolint:errcheck
}

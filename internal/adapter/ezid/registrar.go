// Package ezid registers DOIs against the EZID identifier service. The API
// is plain HTTP with ANVL bodies; a create request targets the DOI at the
// public eScholarship item URL.
package ezid

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/cdl-publishing/eschol-connector/internal/config"
)

// Registrar creates or updates a DOI pointing at a target URL.
type Registrar struct {
	endpoint   string
	username   string
	password   string
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a Registrar from the EZID section of the config.
func New(cfg config.EZIDConfig, logger *slog.Logger) *Registrar {
	return &Registrar{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("adapter", "ezid"),
	}
}

// Register creates the DOI (or updates it if it already exists) with the
// given target URL. Returns the raw EZID status line.
func (r *Registrar) Register(ctx context.Context, doi, target string) (string, error) {
	reqURL := r.endpoint + "/id/doi:" + url.PathEscape(doi)
	body := "_target: " + target + "\n_profile: datacite\n"

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ezid: create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=UTF-8")
	req.SetBasicAuth(r.username, r.password)

	q := req.URL.Query()
	q.Set("update_if_exists", "yes")
	req.URL.RawQuery = q.Encode()

	r.log.DebugContext(ctx, "ezid register", slog.String("doi", doi))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ezid: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("ezid: read body: %w", err)
	}
	status := strings.TrimSpace(string(respBody))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return status, fmt.Errorf("ezid: unexpected status %d: %s", resp.StatusCode, status)
	}
	return status, nil
}

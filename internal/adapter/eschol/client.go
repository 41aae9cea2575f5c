// Package eschol implements the HTTP client for the eScholarship submission
// API. All operations are GraphQL mutations posted as {query, variables}
// envelopes; the access token rides in the query string and the privileged
// key, when configured, in a request header.
package eschol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cdl-publishing/eschol-connector/internal/config"
	"github.com/cdl-publishing/eschol-connector/internal/eschol"
)

const (
	depositItemQuery = `mutation depositItem($item: DepositItemInput!) {
  depositItem(input: $item) { id message }
}`

	mintProvisionalIDQuery = `mutation mintProvisionalID($input: MintProvisionalIDInput!) {
  mintProvisionalID(input: $input) { id }
}`

	updateIssueQuery = `mutation updateIssue($input: UpdateIssueInput!) {
  updateIssue(input: $input) { message }
}`
)

// Client talks to the eScholarship submission API.
type Client struct {
	apiURL        string
	accessToken   string
	privilegedKey string
	retryDelay    time.Duration
	httpClient    *http.Client
	log           *slog.Logger
}

// NewClient creates a Client from the eScholarship section of the config.
func NewClient(cfg config.EscholConfig, logger *slog.Logger) *Client {
	return &Client{
		apiURL:        cfg.APIURL,
		accessToken:   cfg.AccessToken,
		privilegedKey: cfg.PrivilegedKey,
		retryDelay:    cfg.RetryDelay,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		log:           logger.With("adapter", "eschol"),
	}
}

// Deposit submits one item. On success the returned ID is the permanent ark
// assigned (or confirmed) by eScholarship.
func (c *Client) Deposit(ctx context.Context, item *eschol.Item) (*eschol.DepositResult, error) {
	var out struct {
		DepositItem eschol.DepositResult `json:"depositItem"`
	}
	if err := c.mutate(ctx, "depositItem", depositItemQuery, map[string]any{"item": item}, &out); err != nil {
		return nil, err
	}
	return &out.DepositItem, nil
}

// MintProvisionalID reserves an ark for a source record ahead of its first
// deposit, so DOI registration can reference a stable item URL.
func (c *Client) MintProvisionalID(ctx context.Context, sourceName, sourceID string) (string, error) {
	var out struct {
		MintProvisionalID struct {
			ID string `json:"id"`
		} `json:"mintProvisionalID"`
	}
	vars := map[string]any{"input": map[string]any{
		"sourceName": sourceName,
		"sourceID":   sourceID,
	}}
	if err := c.mutate(ctx, "mintProvisionalID", mintProvisionalIDQuery, vars, &out); err != nil {
		return "", err
	}
	return out.MintProvisionalID.ID, nil
}

// UpdateIssue pushes issue-level metadata (cover image, caption, numbering).
func (c *Client) UpdateIssue(ctx context.Context, meta *eschol.IssueMeta) (string, error) {
	var out struct {
		UpdateIssue struct {
			Message string `json:"message"`
		} `json:"updateIssue"`
	}
	if err := c.mutate(ctx, "updateIssue", updateIssueQuery, map[string]any{"input": meta}, &out); err != nil {
		return "", err
	}
	return out.UpdateIssue.Message, nil
}

type gqlEnvelope struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// mutate posts one GraphQL mutation and decodes the named field of the data
// envelope into out. API-level errors come back as Go errors with every
// message the server reported.
func (c *Client) mutate(ctx context.Context, op, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(gqlEnvelope{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("eschol: marshal %s: %w", op, err)
	}

	reqURL := c.apiURL
	if c.accessToken != "" {
		sep := "?"
		if strings.Contains(reqURL, "?") {
			sep = "&"
		}
		reqURL += sep + "access=" + url.QueryEscape(c.accessToken)
	}

	c.log.DebugContext(ctx, "eschol request", slog.String("op", op))

	resp, err := c.doWithRetry(ctx, op, reqURL, body)
	if err != nil {
		c.log.ErrorContext(ctx, "eschol request failed", slog.String("op", op), slog.String("error", err.Error()))
		return fmt.Errorf("eschol: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("eschol: %s read body: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("eschol: %s unexpected status %d: %s", op, resp.StatusCode, truncate(respBody, 200))
	}

	var env gqlResponse
	if err := json.Unmarshal(respBody, &env); err != nil {
		c.log.ErrorContext(ctx, "eschol non-json response", slog.String("op", op), slog.String("body", truncate(respBody, 500)))
		return fmt.Errorf("eschol: %s: %w", op, eschol.ErrMalformedResponse)
	}

	if len(env.Errors) > 0 {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("eschol: %s: %s", op, strings.Join(msgs, "; "))
	}

	if env.Data == nil {
		c.log.ErrorContext(ctx, "eschol malformed response", slog.String("op", op), slog.String("body", truncate(respBody, 500)))
		return fmt.Errorf("eschol: %s: %w", op, eschol.ErrMalformedResponse)
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("eschol: %s decode data: %w", op, err)
	}

	c.log.DebugContext(ctx, "eschol response", slog.String("op", op), slog.Int("status", resp.StatusCode))
	return nil
}

// doWithRetry executes the request with a single retry when the server
// reports a database deadlock, which the submission API surfaces
// intermittently under concurrent deposits.
func (c *Client) doWithRetry(ctx context.Context, op, reqURL string, body []byte) (*http.Response, error) {
	resp, err := c.do(ctx, reqURL, body)
	if err != nil {
		return nil, err
	}

	if !isDeadlock(resp) || ctx.Err() != nil {
		return resp, nil
	}

	resp.Body.Close()
	c.log.WarnContext(ctx, "eschol retry after deadlock", slog.String("op", op))

	select {
	case <-time.After(c.retryDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return c.do(ctx, reqURL, body)
}

func (c *Client) do(ctx context.Context, reqURL string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.privilegedKey != "" {
		req.Header.Set("Privileged", c.privilegedKey)
	}
	return c.httpClient.Do(req)
}

// isDeadlock peeks at the response body for the deadlock signature and
// restores the body for the caller.
func isDeadlock(resp *http.Response) bool {
	if resp.StatusCode == http.StatusOK {
		return false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return false
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return bytes.Contains(bytes.ToLower(body), []byte("deadlock"))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

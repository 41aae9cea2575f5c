//go:build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	escholapi "github.com/cdl-publishing/eschol-connector/internal/adapter/eschol"
	"github.com/cdl-publishing/eschol-connector/internal/adapter/postgres/epub"
	"github.com/cdl-publishing/eschol-connector/internal/adapter/postgres/history"
	"github.com/cdl-publishing/eschol-connector/internal/adapter/postgres/journal"
	"github.com/cdl-publishing/eschol-connector/internal/adapter/postgres/testhelper"
	"github.com/cdl-publishing/eschol-connector/internal/adapter/postgres/token"
	"github.com/cdl-publishing/eschol-connector/internal/blobstore"
	"github.com/cdl-publishing/eschol-connector/internal/config"
	"github.com/cdl-publishing/eschol-connector/internal/domain"
	"github.com/cdl-publishing/eschol-connector/internal/service/deposit"
	"github.com/cdl-publishing/eschol-connector/internal/service/render"
	"github.com/cdl-publishing/eschol-connector/internal/tasks"
	"github.com/cdl-publishing/eschol-connector/internal/transport/middleware"
	"github.com/cdl-publishing/eschol-connector/internal/transport/rest"
)

// ---------------------------------------------------------------------------
// escholStub plays the eScholarship submission API: it answers the three
// GraphQL mutations the connector sends and records every deposited item so
// tests can inspect the exact payload.
// ---------------------------------------------------------------------------

type escholStub struct {
	mu        sync.Mutex
	minted    int
	deposits  []map[string]any
	issueMeta []map[string]any
}

func (s *escholStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(env.Query, "depositItem"):
			item, _ := env.Variables["item"].(map[string]any)
			s.deposits = append(s.deposits, item)

			ark, _ := item["id"].(string)
			if ark == "" {
				ark = s.nextArk()
			}
			fmt.Fprintf(w, `{"data":{"depositItem":{"id":%q,"message":"Deposited"}}}`, ark)

		case strings.Contains(env.Query, "mintProvisionalID"):
			fmt.Fprintf(w, `{"data":{"mintProvisionalID":{"id":%q}}}`, s.nextArk())

		case strings.Contains(env.Query, "updateIssue"):
			meta, _ := env.Variables["input"].(map[string]any)
			s.issueMeta = append(s.issueMeta, meta)
			fmt.Fprint(w, `{"data":{"updateIssue":{"message":"Cover Image uploaded"}}}`)

		default:
			http.Error(w, "unknown operation", http.StatusBadRequest)
		}
	})
}

func (s *escholStub) nextArk() string {
	s.minted++
	return fmt.Sprintf("ark:/13030/qt%08d", s.minted)
}

func (s *escholStub) lastDeposit(t *testing.T) map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.deposits) == 0 {
		t.Fatal("no deposits recorded by the eschol stub")
	}
	return s.deposits[len(s.deposits)-1]
}

func (s *escholStub) depositCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deposits)
}

// ---------------------------------------------------------------------------
// testServer wraps the full-stack HTTP server for E2E tests.
// ---------------------------------------------------------------------------

type testServer struct {
	URL    string
	Client *http.Client
	Pool   *pgxpool.Pool
	Blobs  *blobstore.Store
	Eschol *escholStub
	Runner *tasks.Runner
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct{ t *testing.T }

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// setupTestServer bootstraps the full application stack backed by a real
// PostgreSQL container (shared via testhelper) and a stubbed eScholarship
// API. The connector's own URL becomes the public base URL, so fetch links
// embedded in deposits resolve against the server under test.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	pool := testhelper.SetupTestDB(t)
	logger := slog.New(slog.NewTextHandler(testLogWriter{t}, nil))

	stub := &escholStub{}
	stubSrv := httptest.NewServer(stub.handler())
	t.Cleanup(stubSrv.Close)

	// The router needs service URLs that are only known once the outer
	// server is listening, so route through a late-bound handler.
	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	escholCfg := config.EscholConfig{
		APIURL:      stubSrv.URL,
		AccessToken: "e2e-token",
		BaseURL:     "https://escholarship.org/",
		Timeout:     10 * time.Second,
		RetryDelay:  10 * time.Millisecond,
	}
	depositCfg := config.DepositConfig{
		SourceName:     "janeway",
		PlaceholderArk: "ark:/13030/qtXXXXXXXX",
	}
	renderCfg := config.RenderConfig{
		PublicBaseURL:   srv.URL,
		FilesDir:        t.TempDir(),
		DefaultXSLLabel: "default",
		XSLTProcPath:    "xsltproc",
		XMLLintPath:     "xmllint",
	}

	journalRepo := journal.New(pool)
	epubRepo := epub.New(pool)
	historyRepo := history.New(pool)
	tokenRepo := token.New(pool)
	blobs := blobstore.New(renderCfg.FilesDir)

	client := escholapi.NewClient(escholCfg, logger)

	renderSvc := render.NewService(logger, journalRepo, epubRepo, tokenRepo, client, blobs,
		renderCfg, depositCfg, escholCfg)
	depositSvc := deposit.NewService(logger, journalRepo, epubRepo, historyRepo, client, renderSvc,
		depositCfg, escholCfg)

	runner := tasks.NewRunner(logger, time.Minute)
	depositSvc.SetTaskRunner(runner)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		runner.Shutdown(ctx) //nolint:errcheck
	})

	healthHandler := rest.NewHealthHandler(pool, "e2e-test")
	depositHandler := rest.NewDepositHandler(depositSvc, logger)
	downloadHandler := rest.NewDownloadHandler(tokenRepo, journalRepo, blobs, logger)

	router := rest.NewRouter(healthHandler, depositHandler, downloadHandler)
	handler = middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Logger(logger),
	)(router)

	return &testServer{
		URL:    srv.URL,
		Client: srv.Client(),
		Pool:   pool,
		Blobs:  blobs,
		Eschol: stub,
		Runner: runner,
	}
}

// ---------------------------------------------------------------------------
// HTTP helpers
// ---------------------------------------------------------------------------

func (ts *testServer) post(t *testing.T, path string) (int, map[string]any) {
	t.Helper()

	resp, err := ts.Client.Post(ts.URL+path, "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, body
}

func (ts *testServer) getJSON(t *testing.T, path string, out any) int {
	t.Helper()

	resp, err := ts.Client.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode
}

// ---------------------------------------------------------------------------
// Seed helpers
// ---------------------------------------------------------------------------

// depositFixture is a published article with a public PDF galley whose bytes
// exist in the blob store, placed in an issue and section.
type depositFixture struct {
	Journal   domain.Journal
	IssueID   int64
	ArticleID int64
	File      domain.File
	PDFBytes  []byte
}

func seedDepositableArticle(t *testing.T, ts *testServer) depositFixture {
	t.Helper()
	pool := ts.Pool

	j := testhelper.SeedJournal(t, pool)
	owner := testhelper.SeedUser(t, pool)
	iss := testhelper.SeedIssue(t, pool, j.ID, 4, "2")
	sec := testhelper.SeedSection(t, pool, "Article")
	articleID := testhelper.SeedArticle(t, pool, j.ID, testhelper.ArticleOpts{
		Published: true,
		OwnerID:   &owner.ID,
		IssueID:   &iss.ID,
		SectionID: &sec.ID,
	})
	f := testhelper.SeedFile(t, pool, articleID, "paper.pdf", "application/pdf")
	testhelper.SeedGalley(t, pool, articleID, f.ID, "PDF", true)

	// The seeded file row claims 1024 bytes; store exactly that many so
	// Content-Length matches what the download endpoint advertises.
	pdf := bytes.Repeat([]byte("%PDF"), 256)
	if _, err := ts.Blobs.Write(articleID, f.UUIDFilename, bytes.NewReader(pdf)); err != nil {
		t.Fatalf("write blob: %v", err)
	}

	return depositFixture{
		Journal:   j,
		IssueID:   iss.ID,
		ArticleID: articleID,
		File:      f,
		PDFBytes:  pdf,
	}
}

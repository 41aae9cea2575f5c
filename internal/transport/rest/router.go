package rest

import "net/http"

// NewRouter assembles the HTTP route table.
func NewRouter(health *HealthHandler, dep *DepositHandler, dl *DownloadHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", health.Health)
	mux.HandleFunc("GET /live", health.Live)
	mux.HandleFunc("GET /ready", health.Ready)

	mux.HandleFunc("POST /articles/{article_id}/deposit", dep.DepositArticle)
	mux.HandleFunc("POST /issues/{issue_id}/deposit", dep.DepositIssue)
	mux.HandleFunc("GET /issues/{issue_id}/articles", dep.IssueArticles)
	mux.HandleFunc("GET /history", dep.History)

	mux.HandleFunc("GET /download/{article_id}/file/{file_id}", dl.File)

	return mux
}

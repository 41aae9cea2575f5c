// Command deposit-article runs one deposit attempt for a single article and
// prints the recorded outcome.
//
// Usage:
//
//	deposit-article --article=42
//
// Exit codes: 0 = attempt recorded as success, 1 = failure or error.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cdl-publishing/eschol-connector/internal/app"
	"github.com/cdl-publishing/eschol-connector/internal/config"
)

func main() {
	articleID := flag.Int64("article", 0, "id of the article to deposit")
	flag.Parse()

	if *articleID <= 0 {
		fmt.Fprintln(os.Stderr, "Usage: deposit-article --article=42")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	comps, err := app.BuildComponents(ctx, cfg, logger)
	if err != nil {
		logger.Error("build components", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer comps.Pool.Close()

	rec, err := comps.Deposit.SendArticle(ctx, *articleID, nil)
	if err != nil {
		logger.Error("deposit article", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println(rec.Result)
	if !rec.Success {
		os.Exit(1)
	}
}

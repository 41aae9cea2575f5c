// Command mint-ark prints an article's eScholarship ark, minting a
// provisional one when the article has never been deposited.
//
// Usage:
//
//	mint-ark --article=42
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
	articleID := flag.Int64("article", 0, "id of the article")
	flag.Parse()

	if *articleID <= 0 {
		fmt.Fprintln(os.Stderr, "Usage: mint-ark --article=42")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	comps, err := app.BuildComponents(ctx, cfg, logger)
	if err != nil {
		logger.Error("build components", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer comps.Pool.Close()

	ark, err := comps.Deposit.MintArk(ctx, *articleID)
	if err != nil {
		logger.Error("mint ark", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println(ark)
}

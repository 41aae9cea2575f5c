// Command deposit-issue runs a full issue deposit batch (cover metadata plus
// every published article in display order) and prints the batch outcome.
//
// Usage:
//
//	deposit-issue --issue=9
//
// Exit codes: 0 = batch recorded as success, 1 = failure or error.
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
	issueID := flag.Int64("issue", 0, "id of the issue to deposit")
	flag.Parse()

	if *issueID <= 0 {
		fmt.Fprintln(os.Stderr, "Usage: deposit-issue --issue=9")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	comps, err := app.BuildComponents(ctx, cfg, logger)
	if err != nil {
		logger.Error("build components", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer comps.Pool.Close()

	// Without a task runner the batch runs inline; the guard against an
	// already-open batch still applies.
	if err := comps.Deposit.ScheduleIssueDeposit(ctx, *issueID); err != nil {
		logger.Error("deposit issue", slog.String("error", err.Error()))
		os.Exit(1)
	}

	batches, err := comps.History.ListRecentForIssue(ctx, *issueID, 1)
	if err != nil || len(batches) == 0 {
		logger.Error("load batch outcome", slog.Int64("issue_id", *issueID))
		os.Exit(1)
	}

	fmt.Println(batches[0].Result)
	if !batches[0].Success {
		os.Exit(1)
	}
}

// Command budgetwatch-check runs one budget alert pass for the given owners
// and prints the reports as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"budgetwatch/internal/cli"
	"budgetwatch/internal/log"
	"budgetwatch/internal/services"
)

func main() {
	owners := flag.String("owners", "", "comma-separated owner IDs to check")
	useInbox := flag.Bool("inbox", false, "store fallback alerts in the inbox instead of logging them")
	flag.Parse()

	ids := splitOwners(*owners)
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "usage: budgetwatch-check -owners id1,id2 [-inbox]")
		os.Exit(2)
	}

	cfg, logger := cli.LoadAndValidateConfig()

	fallback := cli.LogFallback
	if *useInbox {
		fallback = cli.InboxFallback
	}
	app, err := cli.NewApp(context.Background(), cfg, logger, fallback)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	reports := make([]services.Report, 0, len(ids))
	failed := false
	for _, owner := range ids {
		report, err := app.Alerts.Check(context.Background(), owner)
		if err != nil {
			logger.Error("Budget check failed", log.FieldOwner, owner, log.FieldError, err)
			failed = true
			continue
		}
		reports = append(reports, report)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		logger.Error("Failed to write report", log.FieldError, err)
		failed = true
	}
	if failed {
		_ = app.Close()
		os.Exit(1)
	}
}

func splitOwners(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

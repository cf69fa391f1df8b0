// Command ingest checks and loads AssetPlan CSV exports from the command
// line.
//
//	ingest check export.csv other.csv   # validate, print a summary
//	ingest load export.csv              # validate and save to Postgres
//	ingest migrate                      # apply database migrations
//	ingest env                          # list configuration variables
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errRejected) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

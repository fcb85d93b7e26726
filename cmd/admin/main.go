// Package main is the biobank-admin CLI executable.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sakif/biobank/internal/admin"
)

func main() { os.Exit(run()) }

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := admin.RootCommand().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

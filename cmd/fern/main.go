// Package main is the entry point of the fern catalog sync CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ramsey-B/fern/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}

// Package main is the entry point for the China Telecom usage monitor.
// It wires signal handling around the command tree.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/cli"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the requested command until it finishes or a signal arrives.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.Sync()

	return cli.Execute(ctx)
}

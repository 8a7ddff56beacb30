package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(os.Stdin, os.Stdout)
	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("Command failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

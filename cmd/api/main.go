package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rafaelmatth/task-manager-backend/internal/application"
)

const build = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := application.New()
	if err := app.Start(ctx, build); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}

	if err := app.Wait(ctx, stop); err != nil {
		os.Exit(1)
	}
}

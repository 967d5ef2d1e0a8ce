// Package main is the entry point for the notioncal CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"notioncal/internal/backend/googlecalendar"
	"notioncal/internal/backend/notion"
	"notioncal/internal/cli"
	"notioncal/internal/config"
	"notioncal/internal/service"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	dispatcher := cli.NewDispatcher(cli.Backends{
		Source: func(ctx context.Context, cfg *config.Config) (service.Source, error) {
			return notion.New(cfg.Notion)
		},
		Calendar: func(ctx context.Context, cfg *config.Config) (service.Calendar, error) {
			return googlecalendar.New(ctx, cfg.Google)
		},
	})

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

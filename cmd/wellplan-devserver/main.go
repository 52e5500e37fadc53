// cmd/wellplan-devserver/main.go
//
// Runs the canned planning API on WELLPLAN_DEV_HOST:WELLPLAN_DEV_PORT
// (127.0.0.1:8000 by default) until interrupted.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kingrea/wellplan/internal/devserver"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	srv := devserver.NewServer(devserver.LoadSettings(), devserver.WithLogger(logger))
	if err := srv.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting dev server: %v\n", err)
		os.Exit(1)
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping dev server: %v\n", err)
		os.Exit(1)
	}
}

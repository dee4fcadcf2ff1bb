// In-memory moneyboard backend for local development.
//
// Usage: go run ./cmd/fakeapi --addr localhost:8000 --access-ttl 1m
//
// Point the CLI at it with --api-url http://localhost:8000/api and log in as
// the seeded demo user.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tonimelisma/moneyboard/internal/fakeapi"
)

const shutdownTimeout = 5 * time.Second

func main() {
	addr := flag.String("addr", "localhost:8000", "listen address")
	accessTTL := flag.Duration("access-ttl", fakeapi.DefaultAccessTTL, "access token lifetime")
	keepRefresh := flag.Bool("keep-refresh", false, "do not rotate refresh tokens")
	noSeed := flag.Bool("no-seed", false, "start without the demo user")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(*addr, fakeapi.Options{
		AccessTTL:   *accessTTL,
		KeepRefresh: *keepRefresh,
		NoSeed:      *noSeed,
		Logger:      logger,
	}, logger); err != nil {
		fmt.Fprintf(os.Stderr, "fakeapi: %v\n", err)
		os.Exit(1)
	}
}

func run(addr string, opts fakeapi.Options, logger *slog.Logger) error {
	srv, err := fakeapi.New(opts)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)

	go func() {
		errc <- httpSrv.ListenAndServe()
	}()

	logger.Info("fakeapi listening",
		slog.String("addr", addr),
		slog.String("api_url", "http://"+addr+"/api"),
		slog.String("demo_email", fakeapi.DemoEmail),
		slog.Duration("access_ttl", opts.AccessTTL),
	)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	logger.Info("fakeapi shutting down", slog.Int64("requests", srv.Requests()), slog.Int64("refreshes", srv.RefreshCalls()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return httpSrv.Shutdown(shutdownCtx)
}

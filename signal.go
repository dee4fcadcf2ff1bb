package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// interruptExitCode is the conventional status for a process ended by SIGINT.
const interruptExitCode = 130

// interruptContext returns a context canceled by the first SIGINT or SIGTERM,
// which aborts in-flight requests. A credential refresh already under way
// still completes, so the stored pair is never left half written. A second
// signal exits immediately.
func interruptContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		for n := 0; ; n++ {
			select {
			case sig := <-sigCh:
				if n > 0 {
					logger.Warn("second signal, exiting", slog.String("signal", sig.String()))
					os.Exit(interruptExitCode)
				}

				logger.Info("signal received, canceling requests", slog.String("signal", sig.String()))
				cancel()
			case <-parent.Done():
				cancel()

				return
			}
		}
	}()

	return ctx
}

package main

import (
	"context"
	"log/slog"
)

func main() {
	ctx := interruptContext(context.Background(), slog.Default())

	cmd, err := newRootCmd().ExecuteContextC(ctx)
	if err != nil {
		cc, _ := cliContextFrom(cmd.Context())
		exitOnError(err, cc)
	}
}

// Command datecontext serves the analyze_date_context MCP tool and offers
// one-shot lookups from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	// Embedded zone database so IANA zones from the geocoder always load.
	_ "time/tzdata"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cmd/gicesite/main.go
//
// gicesite serves the public site and its admin dashboard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dalemusser/gicesite/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, bootstrap.Hooks); err != nil {
		fmt.Fprintln(os.Stderr, "gicesite:", err)
		os.Exit(1)
	}
}

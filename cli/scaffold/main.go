package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	scaffoldcmder "github.com/papercomputeco/scaffold/cmd/scaffold"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := scaffoldcmder.NewScaffoldCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

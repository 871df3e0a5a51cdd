package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	// Canceled on interrupt so every command can shut down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mapview",
		Short:         "Address map page backed by a geocoding provider",
		SilenceUsage:  true,
	}

	root.AddCommand(newServeCmd(), newGeocodeCmd())

	return root
}

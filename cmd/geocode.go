package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/UnknownOlympus/mapview/internal/config"
	"github.com/UnknownOlympus/mapview/internal/geocoding"
	"github.com/UnknownOlympus/mapview/internal/mapsurface"
	"github.com/UnknownOlympus/mapview/internal/mapview"
	"github.com/UnknownOlympus/mapview/internal/metrics"
	"github.com/UnknownOlympus/mapview/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newGeocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <address...>",
		Short: "Geocode an address and print the popup text the page would show",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad()
			logger := setupLogger(cfg.Env)
			appMetrics := metrics.NewMetrics(prometheus.NewRegistry())

			provider, pool, err := buildProvider(cmd.Context(), cfg, logger, appMetrics)
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}

			view := mapview.New(logger, provider, cfg.ProviderType, appMetrics)

			return geocodeOnce(cmd.Context(), view, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
}

// geocodeOnce drives a headless view through one geocode and prints the popup.
func geocodeOnce(ctx context.Context, view *mapview.View, address string, out io.Writer) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		<-view.Done()
	}()
	go view.Run(loopCtx)

	if err := view.Load(ctx, mapsurface.New(models.Coordinates{}, mapview.DefaultZoom)); err != nil {
		return err
	}
	if err := view.SetAddress(ctx, address); err != nil {
		return err
	}
	if err := <-view.Geocode(ctx); err != nil {
		return fmt.Errorf("geocode was not successful for the following reason: %s: %w", geocoding.Status(err), err)
	}

	state, err := view.Snapshot(ctx)
	if err != nil {
		return err
	}

	frame := state.Render()
	if frame.Popup == nil {
		return fmt.Errorf("no popup for %q", address)
	}
	_, err = fmt.Fprintln(out, frame.Popup.Text)

	return err
}

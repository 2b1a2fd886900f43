package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joeblew999/plat-parking/internal/db"
	"github.com/joeblew999/plat-parking/internal/geocode"
	"github.com/joeblew999/plat-parking/internal/observability"
	"github.com/joeblew999/plat-parking/internal/zones"
)

// zones subcommand: summarize the permit zone CSV
func zonesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zones",
		Short: "Summarize a residential parking permit zone CSV",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := observability.NewLogger(opts.LogLevel, opts.LogFormat)
			csvPath, _ := cmd.Flags().GetString("csv")
			limit, _ := cmd.Flags().GetInt("limit")

			rows, err := zones.ReadFile(csvPath)
			if err != nil {
				fatal(logger, "read zones", err)
			}

			conn, err := db.Open(db.Config{})
			if err != nil {
				fatal(logger, "open duckdb", err)
			}
			defer conn.Close()

			st, err := zones.ComputeStats(cmd.Context(), conn, csvPath, limit)
			if err != nil {
				fatal(logger, "compute stats", err)
			}
			printStats(os.Stdout, st, len(zones.ActiveSegments(rows)))
		}),
	}
	cmd.Flags().String("csv", "Residential_Parking_Permit_Zones.csv", "Permit zone CSV file")
	cmd.Flags().Int("limit", 10, "Length of the top-N lists")
	return cmd
}

func printStats(w io.Writer, st zones.Stats, active int) {
	fmt.Fprintf(w, "Total rows:             %s\n", humanize.Comma(int64(st.TotalRows)))
	fmt.Fprintf(w, "Unique zones:           %s\n", humanize.Comma(int64(st.UniqueZones)))
	fmt.Fprintf(w, "Unique street segments: %s\n", humanize.Comma(int64(st.UniqueStreets)))
	fmt.Fprintf(w, "Active segments:        %s\n", humanize.Comma(int64(active)))

	fmt.Fprintln(w, "\nMost common zones:")
	for _, c := range st.TopZones {
		fmt.Fprintf(w, "  %-10s %s\n", c.Value, humanize.Comma(int64(c.Count)))
	}
	fmt.Fprintln(w, "\nMost common street names:")
	for _, c := range st.TopStreetNames {
		fmt.Fprintf(w, "  %-20s %s\n", c.Value, humanize.Comma(int64(c.Count)))
	}
}

// geocode subcommand: build the segment dataset from the permit zone CSV
func geocodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Geocode permit zone address ranges into the segment GeoJSON",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := observability.NewLogger(opts.LogLevel, opts.LogFormat)
			metrics := observability.NewMetricsForTesting()
			flags := cmd.Flags()

			csvPath, _ := flags.GetString("csv")
			out, _ := flags.GetString("out")
			if out == "" {
				out = datasetPath(opts)
			}
			cachePath, _ := flags.GetString("cache")
			if cachePath == "" {
				cachePath = filepath.Join(opts.DataDir, "geocode-cache.db")
			}
			nominatimURL, _ := flags.GetString("nominatim-url")
			userAgent, _ := flags.GetString("user-agent")
			delay, _ := flags.GetDuration("delay")
			maxErrors, _ := flags.GetInt("max-errors")

			rows, err := zones.ReadFile(csvPath)
			if err != nil {
				fatal(logger, "read zones", err)
			}

			if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
				fatal(logger, "create cache directory", err)
			}
			store, err := geocode.OpenStore(cachePath)
			if err != nil {
				fatal(logger, "open cache", err)
			}
			defer store.Close()
			cached, _ := store.Len()
			logger.Info("geocode cache opened", "path", cachePath, "entries", cached)

			client := geocode.NewClient(nominatimURL, userAgent, 30*time.Second, metrics, logger)
			g, err := geocode.NewCachedGeocoder(client, store, 4096, metrics)
			if err != nil {
				fatal(logger, "create cache", err)
			}

			b := geocode.NewBuilder(g, logger)
			b.Delay = delay
			b.MaxErrors = maxErrors

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			start := time.Now()
			fc, rep, err := b.Build(ctx, rows)
			if err != nil {
				logger.Error("geocoding aborted", "error", err,
					"segments", rep.Segments, "errors", rep.Errors)
				store.Close()
				os.Exit(1)
			}
			if err := geocode.WriteFile(out, fc); err != nil {
				fatal(logger, "write dataset", err)
			}

			info, _ := os.Stat(out)
			var size string
			if info != nil {
				size = humanize.Bytes(uint64(info.Size()))
			}
			logger.Info("dataset written",
				"path", out,
				"size", size,
				"segments", rep.Segments,
				"features", rep.Features,
				"skipped", rep.Skipped,
				"errors", rep.Errors,
				"took", time.Since(start).Round(time.Millisecond).String(),
			)
		}),
	}
	f := cmd.Flags()
	f.String("csv", "Residential_Parking_Permit_Zones.csv", "Permit zone CSV file")
	f.String("out", "", "Output GeoJSON (default: the dataset in --data-dir)")
	f.String("cache", "", "Geocode cache database (default: geocode-cache.db in --data-dir)")
	f.String("nominatim-url", geocode.DefaultNominatimURL, "Nominatim search endpoint")
	f.String("user-agent", "plat-parking/0.1 (residential parking zone map)", "User-Agent sent to Nominatim")
	f.Duration("delay", geocode.DefaultDelay, "Wait after every uncached lookup")
	f.Int("max-errors", geocode.DefaultMaxErrors, "Abort after more than this many failed lookups")
	return cmd
}

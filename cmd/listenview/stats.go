package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/wesm/listenview/internal/history"
	"github.com/wesm/listenview/internal/metrics"
)

type statsOptions struct {
	from string
	to   string
	tz   string
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			"Usage: listenview stats [flags] file...\n\nFlags:\n")
		fs.PrintDefaults()
	}
	var opts statsOptions
	fs.StringVar(&opts.from, "from", "", "Start of the window (date or timestamp)")
	fs.StringVar(&opts.to, "to", "", "End of the window, inclusive")
	fs.StringVar(&opts.tz, "tz", metrics.DefaultTimezone, "Analysis timezone")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	if err := stats(context.Background(), os.Stdout, opts, fs.Args()); err != nil {
		log.Fatalf("stats: %v", err)
	}
}

// stats builds a table from the export files at paths and
// writes the metrics bundle for the window as indented JSON.
// An empty window writes the no-data message instead.
func stats(
	ctx context.Context, w io.Writer, opts statsOptions, paths []string,
) error {
	loc, err := time.LoadLocation(opts.tz)
	if err != nil {
		return fmt.Errorf("loading timezone %q: %w", opts.tz, err)
	}
	window, err := history.ParseRange(opts.from, opts.to)
	if err != nil {
		return err
	}

	payloads := make([][]byte, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading export: %w", err)
		}
		payloads[i] = data
	}
	tbl, err := history.BuildFromPayloads(ctx, payloads)
	if err != nil {
		return err
	}

	var out any
	bundle, err := metrics.New(metrics.Options{Location: loc}).
		Compute(tbl.Slice(window))
	switch {
	case errors.Is(err, metrics.ErrNoData):
		out = map[string]string{"error": "No data in this timeframe"}
	case err != nil:
		return err
	default:
		out = bundle
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

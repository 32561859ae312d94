package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/loadboard/internal/seedevents"
	"github.com/okian/loadboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultTrucks     = 200
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 10 * time.Second
	defaultRunTimeout = 10 * time.Minute
	defaultAttempts   = 10
	defaultSettle     = 500 * time.Millisecond
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		date       = flag.String("date", "", "Day to load trucks on, YYYY-MM-DD (default today)")
		trucks     = flag.Int("trucks", defaultTrucks, "Number of truck days to generate")
		products   = flag.String("products", "Diesel,Gasoline,LPG", "Comma separated product names")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		duplicates = flag.Float64("duplicates", 0.05, "Share of events sent twice")
		malformed  = flag.Float64("malformed", 0.05, "Share of trucks with an extra unparseable event")
		variants   = flag.Float64("variants", 0.3, "Share of events with label or layout variants")
		ordered    = flag.Bool("ordered", false, "Submit events in chronological order")
		seed       = flag.Uint64("seed", 0, "Random seed, 0 for a clock based one")
		attempts   = flag.Int("attempts", defaultAttempts, "Verification attempts")
		settle     = flag.Duration("settle", defaultSettle, "Delay between verification attempts")
		outputFile = flag.String("output", "", "Write the generated events to this JSON file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seedevents.ShowHelp()
		return
	}

	closer, err := seedevents.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	cfg := &seedevents.Config{
		BaseURL:       strings.TrimRight(*baseURL, "/"),
		Trucks:        *trucks,
		Products:      splitProducts(*products),
		Workers:       *workers,
		Timeout:       *timeout,
		DuplicateRate: *duplicates,
		MalformedRate: *malformed,
		VariantRate:   *variants,
		Shuffle:       !*ordered,
		Seed:          *seed,
		Settle:        *settle,
		Attempts:      *attempts,
		OutputFile:    *outputFile,
		Verbose:       *verbose,
	}
	if *date != "" {
		d, err := time.Parse("2006-01-02", *date)
		if err != nil {
			os.Stderr.WriteString("Invalid -date: " + err.Error() + "\n")
			os.Exit(2)
		}
		cfg.Date = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	if _, err := seedevents.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "seed run failed", logger.Error(err))
		cancel()
		stop()
		_ = closer.Close()
		os.Exit(1)
	}
}

func splitProducts(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

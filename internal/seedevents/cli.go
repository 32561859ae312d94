package seedevents

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/loadboard/pkg/logger"
)

// SetupLogging initializes the logger, teeing output to logFile when set.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	if logFile == "" {
		return io.NopCloser(nil), nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.SetOutput(io.MultiWriter(os.Stdout, file)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to redirect logs: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	os.Stdout.WriteString(`Loadboard Seed Tool
===================

Pushes synthetic truck days (waiting -> start loading -> complete) to a
running loadboard service started with feed_type=eventlog, refreshes it and
checks the dashboard reports every truck with the right total time.

Usage:
  go run ./cmd/seed-events [options]

Options:
  -url string         Base URL of the service (default "http://localhost:9080")
  -date string        Day to load trucks on, YYYY-MM-DD (default today)
  -trucks int         Number of truck days (default 200)
  -products string    Comma separated product names (default "Diesel,Gasoline,LPG")
  -workers int        Concurrent submitters (default CPU cores * 2)
  -timeout duration   HTTP request timeout (default 10s)
  -duplicates float   Share of events sent twice (default 0.05)
  -malformed float    Share of trucks with an extra unparseable event (default 0.05)
  -variants float     Share of events with label or layout variants (default 0.3)
  -ordered            Submit events in chronological order
  -seed uint          Random seed, 0 for a clock based one
  -attempts int       Verification attempts (default 10)
  -settle duration    Delay between verification attempts (default 500ms)
  -output string      Write the generated events to this JSON file
  -log string         Also write logs to this file
  -verbose            Enable debug logging
  -help               Show this help message
`)
}

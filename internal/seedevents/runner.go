// Package seedevents drives a running loadboard service with synthetic
// truck days and checks the dashboard reports them back.
package seedevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/loadboard/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// ErrVerification is returned when the service does not report the
// generated trucks.
var ErrVerification = errors.New("seed verification failed")

// Defaults fills unset fields.
func (c *Config) Defaults() {
	if c.Date.IsZero() {
		c.Date = time.Now()
	}
	if len(c.Products) == 0 {
		c.Products = []string{"Diesel", "Gasoline", "LPG"}
	}
	if c.PlatePrefix == "" {
		c.PlatePrefix = strings.ToUpper(uuid.NewString()[:4])
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Attempts <= 0 {
		c.Attempts = 1
	}
}

// Run executes a complete seeding run.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg.Defaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()
	date := cfg.Date.Format("2006-01-02")

	log.Info(ctx, "starting loadboard seed run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("date", date),
		logger.Int("trucks", cfg.Trucks),
		logger.Int("workers", cfg.Workers),
		logger.String("platePrefix", cfg.PlatePrefix),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate truck days
	trucks, events := Generate(ctx, cfg, stats)

	// Step 3: Submit events concurrently
	submitEvents(ctx, cfg, client, events, stats)
	if stats.EventsFailed > 0 {
		return stats, fmt.Errorf("%d events were rejected", stats.EventsFailed)
	}

	// Step 4: Refresh and verify until the pushed events are visible
	var err error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err = verifyOnce(ctx, client, date, trucks, stats); err == nil {
			break
		}
		log.Info(ctx, "seeded trucks not visible yet", logger.Int("attempt", attempt), logger.Error(err))
		if attempt < cfg.Attempts {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(cfg.Settle):
			}
		}
	}
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrVerification, err)
	}

	// Step 5: Save events to file
	if cfg.OutputFile != "" {
		if err := saveEventsToFile(ctx, cfg.OutputFile, events); err != nil {
			log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

func verifyOnce(ctx context.Context, client *HTTPClient, date string, trucks []Truck, stats *Stats) error {
	if err := triggerRefresh(ctx, client); err != nil {
		return err
	}
	rows, err := fetchIntervals(ctx, client, date)
	if err != nil {
		return err
	}
	verified, err := verifyIntervals(trucks, rows)
	stats.TrucksVerified = verified
	if err != nil {
		return err
	}
	summary, err := fetchSummary(ctx, client, date)
	if err != nil {
		return err
	}
	return verifySummary(trucks, summary)
}

// saveEventsToFile saves the generated events as a JSON array.
func saveEventsToFile(ctx context.Context, filename string, events []Event) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, eventsPerSecond float64
	if stats.EventsSubmitted > 0 {
		acceptRate = float64(stats.EventsAccepted) / float64(stats.EventsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("trucksGenerated", stats.TrucksGenerated),
		logger.Int("trucksVerified", stats.TrucksVerified),
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsMalformed", stats.EventsMalformed),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsAccepted", stats.EventsAccepted),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("backpressured", stats.Backpressured),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}

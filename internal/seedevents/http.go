package seedevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/loadboard/pkg/logger"
)

// HTTPClient wraps http.Client for the service endpoints used by a run.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// submitResult classifies one POST /events call.
type submitResult int

const (
	resultAccepted submitResult = iota
	resultDuplicate
	resultFailed
)

// submitEvents posts events concurrently using a worker pool.
func submitEvents(ctx context.Context, cfg *Config, client *HTTPClient, events []Event, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting events", logger.Int("events", len(events)), logger.Int("workers", cfg.Workers))

	var submitted, accepted, duplicate, failed, backpressured atomic.Int64

	eventChan := make(chan Event, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range eventChan {
				res, retries := submitSingleEvent(ctx, client, ev)
				submitted.Add(1)
				backpressured.Add(int64(retries))
				switch res {
				case resultAccepted:
					accepted.Add(1)
				case resultDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "event rejected", logger.String("eventID", ev.EventID), logger.String("timestamp", ev.Timestamp))
					}
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, ev := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- ev:
			}
		}
	}()
	wg.Wait()

	stats.EventsSubmitted = int(submitted.Load())
	stats.EventsAccepted = int(accepted.Load())
	stats.EventsDuplicate = int(duplicate.Load())
	stats.EventsFailed = int(failed.Load())
	stats.Backpressured = int(backpressured.Load())

	log.Info(ctx, "event submission completed",
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("failed", stats.EventsFailed),
		logger.Int("backpressured", stats.Backpressured))
}

// submitSingleEvent posts one event, retrying while the service reports
// backpressure. It returns the outcome and the number of 429 answers seen.
func submitSingleEvent(ctx context.Context, client *HTTPClient, ev Event) (submitResult, int) {
	retries := 0
	for {
		code, body, err := client.do(ctx, http.MethodPost, "/events", ev)
		if err != nil {
			return resultFailed, retries
		}
		switch code {
		case http.StatusAccepted:
			return resultAccepted, retries
		case http.StatusOK:
			var ack AckResponse
			if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
				return resultDuplicate, retries
			}
			return resultAccepted, retries
		case http.StatusTooManyRequests:
			retries++
			if retries > maxBackpressureRetries {
				return resultFailed, retries
			}
			select {
			case <-ctx.Done():
				return resultFailed, retries
			case <-time.After(backpressureDelay * time.Duration(retries)):
			}
		default:
			return resultFailed, retries
		}
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	code, _, err := client.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", code)
	}
	return nil
}

// triggerRefresh asks the service to rebuild its snapshot.
func triggerRefresh(ctx context.Context, client *HTTPClient) error {
	code, body, err := client.do(ctx, http.MethodPost, "/refresh", nil)
	if err != nil {
		return fmt.Errorf("refresh request failed: %w", err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("refresh failed with status %d: %s", code, bytes.TrimSpace(body))
	}
	return nil
}

// intervalRow is the subset of an /intervals row the verifier reads.
type intervalRow struct {
	Key struct {
		Date    string `json:"date"`
		Product string `json:"product"`
		Plate   string `json:"plate"`
	} `json:"key"`
	Durations struct {
		WaitingMin *float64 `json:"waiting_min"`
		LoadingMin *float64 `json:"loading_min"`
		TotalMin   *float64 `json:"total_min"`
	} `json:"durations"`
}

type summaryEntry struct {
	Product      string `json:"product"`
	VehicleCount int    `json:"vehicle_count"`
}

func fetchIntervals(ctx context.Context, client *HTTPClient, date string) ([]intervalRow, error) {
	var out struct {
		Rows []intervalRow `json:"rows"`
	}
	if err := getJSON(ctx, client, "/intervals?date="+url.QueryEscape(date), &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

func fetchSummary(ctx context.Context, client *HTTPClient, date string) ([]summaryEntry, error) {
	var out struct {
		Summary []summaryEntry `json:"summary"`
	}
	if err := getJSON(ctx, client, "/summary?date="+url.QueryEscape(date), &out); err != nil {
		return nil, err
	}
	return out.Summary, nil
}

func getJSON(ctx context.Context, client *HTTPClient, path string, v any) error {
	code, body, err := client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", path, code, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/okian/loadboard/internal/domain/model"
	"github.com/okian/loadboard/pkg/logger"
	"github.com/okian/loadboard/pkg/metrics"
)

const (
	defaultHTTPTimeout    = 10 * time.Second
	defaultHTTPRetries    = 3
	defaultHTTPBackoff    = 500 * time.Millisecond
	defaultHTTPMaxBackoff = 5 * time.Second
	maxErrorBody          = 512
)

// HTTPSource fetches a CSV export over HTTP.
type HTTPSource struct {
	url        string
	client     *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	log        logger.Logger
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default tuned client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout bounds each fetch attempt.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetry sets retry count and backoff bounds. maxRetries counts retries
// after the first attempt.
func WithRetry(maxRetries int, backoff, maxBackoff time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		if maxRetries >= 0 {
			s.maxRetries = maxRetries
		}
		if backoff > 0 {
			s.backoff = backoff
		}
		if maxBackoff > 0 {
			s.maxBackoff = maxBackoff
		}
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l logger.Logger) HTTPOption {
	return func(s *HTTPSource) {
		if l != nil {
			s.log = l
		}
	}
}

// NewHTTPSource creates a source reading the CSV at url.
func NewHTTPSource(url string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		url:        url,
		timeout:    defaultHTTPTimeout,
		maxRetries: defaultHTTPRetries,
		backoff:    defaultHTTPBackoff,
		maxBackoff: defaultHTTPMaxBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = newHTTPClient()
	}
	if s.log == nil {
		s.log = logger.Get().Named("feed.http")
	}
	return s
}

func newHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Transport: tr}
}

// Name implements Source.
func (s *HTTPSource) Name() string { return "csv_url" }

// Fetch downloads and decodes the CSV, retrying transport and status
// failures. Schema errors are returned without retrying.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.RawEvent, error) {
	var out []model.RawEvent
	attempt := 0
	err := retry(ctx, s.maxRetries+1, s.backoff, s.maxBackoff, isPermanent, func() error {
		attempt++
		start := time.Now()
		events, err := s.fetchOnce(ctx)
		elapsed := float64(time.Since(start).Milliseconds())
		if err != nil {
			metrics.RecordFeedFetch(s.Name(), "error", elapsed)
			s.log.Warn(ctx, "feed fetch attempt failed",
				logger.Int("attempt", attempt),
				logger.Error(err))
			return err
		}
		metrics.RecordFeedFetch(s.Name(), metrics.OutcomeSuccess, elapsed)
		out = events
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context) ([]model.RawEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrFetch, resp.StatusCode, string(b))
	}

	events, err := DecodeCSV(resp.Body)
	if err != nil {
		if errors.Is(err, ErrSchema) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return events, nil
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrSchema) || errors.Is(err, context.Canceled)
}

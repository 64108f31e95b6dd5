// Package connecteam is a read-only client for the Connecteam users and
// time clock APIs.
package connecteam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/phillip-england/clockboard/internal/envutil"
	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL = "https://api.connecteam.com"
	breakerName    = "connecteam"
	maxBodyBytes   = 8 << 20
)

var (
	ErrUpstreamUnavailable = errors.New("connecteam unavailable")
	ErrMalformedResponse   = errors.New("connecteam returned malformed data")
	ErrMissingAPIKey       = errors.New("CONNECTEAM_API_KEY is required")

	// ErrOutsideBusinessHours is returned by Source.Entries when the fetch
	// is skipped because the stores are closed.
	ErrOutsideBusinessHours = errors.New("outside business hours")
)

// APIError is a non-2xx response from Connecteam.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("connecteam %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests {
		return ErrUpstreamUnavailable
	}
	return nil
}

// Recorder receives per-call observations. *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveUpstream(endpoint, outcome string, d time.Duration)
	SetBreakerState(name string, state int)
}

type Config struct {
	BaseURL  string
	APIKey   string
	Location *time.Location
	Timeout  time.Duration

	// Breaker trips after this many consecutive failures and stays open
	// for BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
	Recorder   Recorder
	Now        func() time.Time
}

func DefaultConfigFromEnv() (Config, error) {
	loc, err := time.LoadLocation(envutil.String("TIMEZONE", "America/Los_Angeles"))
	if err != nil {
		return Config{}, fmt.Errorf("load TIMEZONE: %w", err)
	}
	return Config{
		BaseURL:         envutil.String("CONNECTEAM_BASE_URL", DefaultBaseURL),
		APIKey:          strings.TrimSpace(envutil.String("CONNECTEAM_API_KEY", "")),
		Location:        loc,
		Timeout:         envutil.Duration("UPSTREAM_TIMEOUT", 10*time.Second),
		BreakerFailures: uint32(envutil.Int("BREAKER_FAILURES", 5)),
		BreakerCooldown: envutil.Duration("BREAKER_COOLDOWN", 30*time.Second),
	}, nil
}

type Client struct {
	baseURL    string
	apiKey     string
	loc        *time.Location
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	recorder   Recorder
	now        func() time.Time
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		loc:        cfg.Location,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		recorder:   cfg.Recorder,
		now:        cfg.Now,
	}

	failures := cfg.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			if c.recorder != nil {
				c.recorder.SetBreakerState(name, int(to))
			}
		},
	})
	if c.recorder != nil {
		c.recorder.SetBreakerState(breakerName, int(gobreaker.StateClosed))
	}
	return c, nil
}

func (c *Client) Location() *time.Location {
	return c.loc
}

// callResult carries errors that should not count against the breaker.
type callResult struct {
	body []byte
	err  error
}

// get performs a GET and decodes the JSON body into out. endpoint is a
// short label for metrics and logs.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		if c.recorder != nil {
			c.recorder.ObserveUpstream(endpoint, outcome, time.Since(start))
		}
	}()

	res, err := c.breaker.Execute(func() (interface{}, error) {
		body, err := c.roundTrip(ctx, path, query)
		if err != nil && !countsAgainstBreaker(err) {
			return callResult{err: err}, nil
		}
		return callResult{body: body}, err
	})
	if err != nil {
		outcome = "unavailable"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "breaker_open"
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		return err
	}

	result := res.(callResult)
	if result.err != nil {
		outcome = "error"
		return result.err
	}
	if err := sonic.Unmarshal(result.body, out); err != nil {
		outcome = "malformed"
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Path: path, Body: snippet}
	}
	return body, nil
}

// countsAgainstBreaker is true for failures that say something about the
// upstream's health rather than about this request.
func countsAgainstBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

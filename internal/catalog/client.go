// Package catalog looks up poster and genre data for a movie title from an
// external catalog service.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/Clark-Hu/movie-spaces/internal/domain"
	"github.com/Clark-Hu/movie-spaces/internal/metrics"
)

// ErrNotFound is returned when upstream cannot find the requested title.
var ErrNotFound = errors.New("catalog: not found")

// ErrUnavailable is returned while the circuit is open or upstream fails.
var ErrUnavailable = errors.New("catalog: unavailable")

// Result contains the data used to fill in a new movie.
type Result struct {
	Title      string
	Genre      *string
	PosterURL  *string
	LeadActors []string
}

// Client defines the contract for querying the catalog.
type Client interface {
	Lookup(ctx context.Context, title string) (*Result, error)
}

// Disabled is used when no catalog is configured. Every lookup misses.
type Disabled struct{}

// Lookup always returns ErrNotFound.
func (Disabled) Lookup(context.Context, string) (*Result, error) {
	return nil, ErrNotFound
}

// Options configures an HTTPClient.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  zerolog.Logger
	// HTTPClient overrides the default transport, mainly for tests.
	HTTPClient *http.Client
}

// HTTPClient implements Client over HTTP behind a circuit breaker.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*Result]
	logger  zerolog.Logger
}

const breakerName = "catalog"

// NewHTTPClient constructs a new HTTP-backed catalog client.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("catalog url %q must be absolute", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		}
	}

	logger := opts.Logger
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	breaker := gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A miss is an answer, not a failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("catalog: circuit state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &HTTPClient{
		baseURL: parsed,
		apiKey:  opts.APIKey,
		client:  httpClient,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// Lookup retrieves catalog data by title.
func (c *HTTPClient) Lookup(ctx context.Context, title string) (*Result, error) {
	res, err := c.breaker.Execute(func() (*Result, error) {
		return c.fetch(ctx, title)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res, err
}

// State reports the breaker state for health output.
func (c *HTTPClient) State() string {
	return c.breaker.State().String()
}

func (c *HTTPClient) fetch(ctx context.Context, title string) (*Result, error) {
	rel := &url.URL{Path: c.baseURL.Path + "/catalog"}
	q := rel.Query()
	q.Set("title", title)
	rel.RawQuery = q.Encode()
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload apiResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode catalog response: %w", err)
		}
		return convertToResult(title, payload), nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		c.logger.Warn().Int("status", resp.StatusCode).Str("title", title).Msg("catalog: unexpected status")
		return nil, fmt.Errorf("catalog: upstream returned %d", resp.StatusCode)
	}
}

type apiResponse struct {
	Title      string   `json:"title"`
	Genre      *string  `json:"genre"`
	PosterURL  *string  `json:"posterUrl"`
	LeadActors []string `json:"leadActors"`
}

// convertToResult normalizes the payload: genre is mapped onto the known
// vocabulary, blank poster URLs are dropped and actor names are trimmed.
func convertToResult(requested string, payload apiResponse) *Result {
	res := &Result{Title: strings.TrimSpace(payload.Title)}
	if res.Title == "" {
		res.Title = requested
	}
	if payload.Genre != nil {
		g := domain.NormalizeGenre(*payload.Genre)
		res.Genre = &g
	}
	if payload.PosterURL != nil {
		if u := strings.TrimSpace(*payload.PosterURL); u != "" {
			res.PosterURL = &u
		}
	}
	res.LeadActors = domain.ParseLeadActors(strings.Join(payload.LeadActors, ","))
	return res
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

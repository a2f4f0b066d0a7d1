package exchange

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// restClient is the shared HTTP layer under every adapter: one rate
// limiter and one circuit breaker per venue, so a misbehaving exchange
// trips its own breaker without touching the others.
type restClient struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

type ClientOptions struct {
	Timeout        time.Duration
	RatePerSec     float64
	BreakerMinReqs int

	// BaseURL overrides the venue's production endpoint (tests).
	BaseURL string
}

func (o *ClientOptions) defaults() {
	if o.Timeout == 0 {
		o.Timeout = 10 * time.Second
	}
	if o.RatePerSec == 0 {
		o.RatePerSec = 10
	}
	if o.BreakerMinReqs == 0 {
		o.BreakerMinReqs = 5
	}
}

func newRESTClient(name, base string, opts ClientOptions) *restClient {
	opts.defaults()
	if opts.BaseURL != "" {
		base = opts.BaseURL
	}
	minReqs := uint32(opts.BreakerMinReqs)
	return &restClient{
		base:    base,
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), int(opts.RatePerSec)),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.Requests >= minReqs && float64(c.TotalFailures)/float64(c.Requests) > 0.6
			},
		}),
	}
}

// getJSON performs a rate-limited GET through the breaker and decodes
// the body into out.
func (c *restClient) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := c.breaker.Execute(func() (interface{}, error) {
		endpoint := c.base + path
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "GET %s", path)
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "GET %s: read body", path)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Errorf("GET %s: status %d: %s", path, resp.StatusCode, truncate(b, 200))
		}
		return b, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return errors.Wrapf(err, "GET %s: decode", path)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

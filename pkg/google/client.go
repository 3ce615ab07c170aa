// Package google provides clients for the Google APIs that feed audit signals:
// Places, PageSpeed Insights, Safe Browsing, Cloud Vision, Natural Language,
// Chrome UX Report and Translation.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Default API hosts.
const (
	placesBaseURL       = "https://places.googleapis.com"
	pagespeedBaseURL    = "https://www.googleapis.com"
	safeBrowsingBaseURL = "https://safebrowsing.googleapis.com"
	visionBaseURL       = "https://vision.googleapis.com"
	languageBaseURL     = "https://language.googleapis.com"
	cruxBaseURL         = "https://chromeuxreport.googleapis.com"
	translateBaseURL    = "https://translation.googleapis.com"
)

// Client bundles every Google API used by the audit.
type Client interface {
	Places
	PageSpeed
	SafeBrowsing
	Vision
	Language
	CrUX
	Translator
}

// StatusError is returned when an API answers with a non-2xx status.
type StatusError struct {
	API        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("google: %s unexpected status %d: %s", e.API, e.StatusCode, e.Body)
}

// IsStatus reports whether err carries a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

type endpoints struct {
	places       string
	pagespeed    string
	safeBrowsing string
	vision       string
	language     string
	crux         string
	translate    string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL points every API at the same host (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.ep = endpoints{url, url, url, url, url, url, url}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second across all APIs.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLocale sets the locale PageSpeed reports in.
func WithLocale(locale string) Option {
	return func(c *httpClient) {
		c.locale = locale
	}
}

// WithStrategy sets the PageSpeed device strategy ("mobile" or "desktop").
func WithStrategy(strategy string) Option {
	return func(c *httpClient) {
		c.strategy = strategy
	}
}

type httpClient struct {
	apiKey   string
	ep       endpoints
	http     *http.Client
	limiter  *rate.Limiter
	locale   string
	strategy string
}

// NewClient creates a client for all audit Google APIs. Individual calls are
// bounded by the caller's context; the http.Client timeout is a backstop.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey: apiKey,
		ep: endpoints{
			places:       placesBaseURL,
			pagespeed:    pagespeedBaseURL,
			safeBrowsing: safeBrowsingBaseURL,
			vision:       visionBaseURL,
			language:     languageBaseURL,
			crux:         cruxBaseURL,
			translate:    translateBaseURL,
		},
		http: &http.Client{
			Timeout: 90 * time.Second,
		},
		locale:   "pt-BR",
		strategy: "mobile",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do sends one request and decodes a JSON response into out. Non-2xx answers
// are returned as *StatusError.
func (c *httpClient) do(ctx context.Context, api, method, url string, in any, out any, headers map[string]string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrapf(err, "google: %s rate limit", api)
		}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return eris.Wrapf(err, "google: %s marshal request", api)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return eris.Wrapf(err, "google: %s create request", api)
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "google: %s send request", api)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "google: %s read response", api)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{API: api, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrapf(err, "google: %s unmarshal response", api)
	}
	return nil
}

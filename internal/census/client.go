// Package census fetches tables from the Census Bureau data API as
// header-first matrices.
package census

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poverty-pockets/pockets-backend/internal/logging"
	"github.com/poverty-pockets/pockets-backend/internal/tabular"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Census data API root.
	BaseURL = "https://api.census.gov/data"

	// DefaultRate is the request rate the client allows per second.
	DefaultRate = 5
)

var ErrNoData = errors.New("census api returned no rows")

// Query describes one table request.
type Query struct {
	// Source names the request in logs, metrics and load status.
	Source string `yaml:"source" json:"source"`

	// Dataset is the path below BaseURL, e.g. "2020/dec/pl".
	Dataset string `yaml:"dataset" json:"dataset"`

	Get []string `yaml:"get" json:"get"`
	For string   `yaml:"for" json:"for"`
	In  []string `yaml:"in" json:"in,omitempty"`
}

// Values builds the query string; key is omitted when empty.
func (q Query) Values(key string) url.Values {
	params := url.Values{}
	params.Set("get", strings.Join(q.Get, ","))
	params.Set("for", q.For)
	for _, in := range q.In {
		params.Add("in", in)
	}
	if key != "" {
		params.Set("key", key)
	}
	return params
}

// CacheKey identifies the query independent of the API key.
func (q Query) CacheKey() string {
	return q.Dataset + "?" + q.Values("").Encode()
}

// Response is a fetched table.
type Response struct {
	Matrix    tabular.Matrix
	FromCache bool
	FetchedAt time.Time
}

// Fetcher retrieves census tables.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (Response, error)
}

// Client is an HTTP client for the Census data API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a Census API client. An empty baseURL uses BaseURL and a
// non-positive rps uses DefaultRate.
func NewClient(apiKey, baseURL string, rps float64) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	if rps <= 0 {
		rps = DefaultRate
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Fetch requests one table. The API answers with a JSON array of arrays whose
// first row is the header.
func (c *Client) Fetch(ctx context.Context, q Query) (Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, strings.Trim(q.Dataset, "/"))
	fullURL := fmt.Sprintf("%s?%s", endpoint, q.Values(c.apiKey).Encode())

	start := time.Now()
	logging.LogRequest(q.Source, http.MethodGet, endpoint, map[string]any{
		"get": q.Get,
		"for": q.For,
		"in":  q.In,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors quote the request URL, which carries the key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = endpoint
		}
		logging.LogError(q.Source, "fetch", err)
		return Response{}, fmt.Errorf("census request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return Response{}, ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("census status %d", resp.StatusCode)
		logging.LogError(q.Source, "fetch", err)
		return Response{}, err
	}

	var rows [][]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		logging.LogError(q.Source, "decode", err)
		return Response{}, fmt.Errorf("decode census: %w", err)
	}

	logging.LogResponse(q.Source, resp.StatusCode, time.Since(start), len(rows))

	if len(rows) < 2 {
		return Response{}, ErrNoData
	}
	return Response{Matrix: tabular.Matrix(rows), FetchedAt: start}, nil
}

// HealthCheck verifies the API answers a minimal request.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Fetch(ctx, Query{
		Source:  "healthcheck",
		Dataset: "2020/dec/pl",
		Get:     []string{"NAME"},
		For:     "state:06",
	})
	return err
}

// Package directory fetches pharmacy records from the MINSAL open-data
// endpoints. Fetches are bulk: the full national listing comes down in one
// call and all filtering happens locally, because the upstream's own query
// parameters are not reliable.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/farmachile/medagent/config"
	"github.com/farmachile/medagent/resilience"
	"github.com/farmachile/medagent/types"
)

// Source is one pharmacy listing (general or on-duty).
type Source interface {
	FetchAll(ctx context.Context) ([]types.LocationRecord, error)
}

// Client talks to one MINSAL endpoint.
type Client struct {
	url    string
	name   string
	http   *http.Client
	retry  *resilience.RetryConfig
}

// NewLocales returns the general pharmacy listing source.
func NewLocales(cfg config.Config) *Client {
	return newClient(cfg.MinsalLocalesURL, "minsal_locales", cfg.UpstreamTimeout)
}

// NewOnDuty returns the on-duty pharmacy listing source.
func NewOnDuty(cfg config.Config) *Client {
	return newClient(cfg.MinsalTurnosURL, "minsal_turnos", cfg.UpstreamTimeout)
}

func newClient(url, name string, timeout time.Duration) *Client {
	transport := http.DefaultTransport
	if strings.EqualFold(os.Getenv("MINSAL_HTTP_DEBUG"), "true") {
		transport = &loggingRT{base: transport}
	}
	return &Client{
		url:   url,
		name:  name,
		http:  &http.Client{Timeout: timeout, Transport: transport},
		retry: resilience.DefaultRetryConfig(),
	}
}

// FetchAll downloads the full listing. Timeouts and unreachable upstreams
// come back as classified faults so handlers can degrade per domain.
func (c *Client) FetchAll(ctx context.Context) ([]types.LocationRecord, error) {
	var records []types.LocationRecord
	err := resilience.RetryWithConfig(ctx, c.retry, func() error {
		var err error
		records, err = c.fetchOnce(ctx)
		return err
	})
	if err != nil {
		return nil, c.classify(err)
	}
	return records, nil
}

func (c *Client) fetchOnce(ctx context.Context) ([]types.LocationRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", c.name, err)
	}
	if res.StatusCode/100 != 2 {
		return nil, &httpStatusError{name: c.name, status: res.StatusCode}
	}
	return decodeRecords(c.name, body)
}

// decodeRecords accepts both shapes the endpoints are known to emit: a bare
// array and a {"data": [...]} wrapper. Field values arrive as strings or
// numbers; everything is flattened to string.
func decodeRecords(name string, body []byte) ([]types.LocationRecord, error) {
	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		var wrapper struct {
			Data []map[string]any `json:"data"`
		}
		if err2 := json.Unmarshal(body, &wrapper); err2 != nil || wrapper.Data == nil {
			return nil, fmt.Errorf("%s: decode response: %w", name, err)
		}
		rows = wrapper.Data
	}

	records := make([]types.LocationRecord, 0, len(rows))
	for _, row := range rows {
		rec := make(types.LocationRecord, len(row))
		for k, v := range row {
			rec[k] = stringify(v)
		}
		records = append(records, rec)
	}
	return records, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func (c *Client) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewUpstreamTimeout(c.name, err)
	}
	var netTimeout interface{ Timeout() bool }
	if errors.As(err, &netTimeout) && netTimeout.Timeout() {
		return types.NewUpstreamTimeout(c.name, err)
	}
	return types.NewUpstreamUnavailable(c.name, err)
}

type httpStatusError struct {
	name   string
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("%s: http %d", e.name, e.status)
}

// Retryable reports whether the upstream answer is worth another attempt.
// Client errors are final, server errors and rate limits are transient.
func (e *httpStatusError) Retryable() bool {
	return e.status >= 500 || e.status == http.StatusTooManyRequests
}

package crmexport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/pkg/config"
	"github.com/wonny/revops/pkg/httputil"
	"github.com/wonny/revops/pkg/logger"
)

// ErrNoExport means the endpoint has no export for the requested date
var ErrNoExport = errors.New("no export available for the requested date")

// Client downloads normalized snapshot exports from the CRM export
// endpoint. One file per snapshot date.
type Client struct {
	http    *httputil.Client
	baseURL string
	token   string
	logger  *logger.Logger
}

// NewClient creates an export client. Requests are rate limited and
// retried per the export config.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	httpClient := httputil.NewWithTimeout(cfg, log, cfg.Export.Timeout).
		WithRetry(3, time.Second).
		WithRateLimit(cfg.Export.RateLimit, 1)

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.Export.BaseURL, "/"),
		token:   cfg.Export.AuthToken,
		logger:  log,
	}
}

// FetchSnapshot downloads the export CSV for one snapshot date.
// The caller owns the returned body.
func (c *Client) FetchSnapshot(ctx context.Context, date time.Time) (io.ReadCloser, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("export base url is not configured")
	}

	day := fiscal.DateOnly(date).Format(time.DateOnly)
	url := fmt.Sprintf("%s/exports/snapshots/%s.csv", c.baseURL, day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create export request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch export %s: %w", day, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("export %s: %w", day, ErrNoExport)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("export %s: unexpected status %d", day, resp.StatusCode)
	}
}

// Package rest implements persistence.Store against a PostgREST-compatible
// backend such as the REST facade of a managed Postgres service.
package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/example/marinagate/internal/persistence"
)

// Config describes how to reach the backend.
type Config struct {
	// BaseURL points at the REST root, e.g. https://project.example.co/rest/v1.
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

// Client is a persistence.Store backed by PostgREST tables.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

var _ persistence.Store = (*Client)(nil)

// New builds a client for the configured backend.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("rest: base URL cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("apikey", cfg.APIKey).SetAuthToken(cfg.APIKey)
	}

	return &Client{http: client, logger: logger.With("component", "rest_store")}, nil
}

// Close satisfies persistence.Store. The HTTP client holds no resources that need releasing.
func (c *Client) Close() error {
	return nil
}

// Ping checks that the backend answers a trivial query.
func (c *Client) Ping(ctx context.Context) error {
	var rows []siteRow
	return c.selectRows(ctx, tableSites, url.Values{"select": {"id"}, "limit": {"1"}}, &rows)
}

// apiError is the error body PostgREST returns.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&apiError{})
}

func (c *Client) insert(ctx context.Context, table string, body any, out any) error {
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(body).
		SetResult(out).
		Post("/" + table)
	return c.check(ctx, http.MethodPost, table, resp, err)
}

func (c *Client) update(ctx context.Context, table, id string, body any, out any) error {
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", "eq."+id).
		SetBody(body).
		SetResult(out).
		Patch("/" + table)
	return c.check(ctx, http.MethodPatch, table, resp, err)
}

func (c *Client) selectRows(ctx context.Context, table string, params url.Values, out any) error {
	resp, err := c.request(ctx).
		SetQueryParamsFromValues(params).
		SetResult(out).
		Get("/" + table)
	return c.check(ctx, http.MethodGet, table, resp, err)
}

// deleteRows removes matching rows and reports how many were deleted.
func (c *Client) deleteRows(ctx context.Context, table string, params url.Values) (int, error) {
	var deleted []struct {
		ID string `json:"id"`
	}
	params.Set("select", "id")
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParamsFromValues(params).
		SetResult(&deleted).
		Delete("/" + table)
	if err := c.check(ctx, http.MethodDelete, table, resp, err); err != nil {
		return 0, err
	}
	return len(deleted), nil
}

// count reads the exact row count from the Content-Range header.
func (c *Client) count(ctx context.Context, table string) (int, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	resp, err := c.request(ctx).
		SetHeader("Prefer", "count=exact").
		SetQueryParam("select", "id").
		SetQueryParam("limit", "1").
		SetResult(&rows).
		Get("/" + table)
	if err := c.check(ctx, http.MethodGet, table, resp, err); err != nil {
		return 0, err
	}

	contentRange := resp.Header().Get("Content-Range")
	if idx := strings.LastIndex(contentRange, "/"); idx >= 0 {
		if total, convErr := strconv.Atoi(contentRange[idx+1:]); convErr == nil {
			return total, nil
		}
	}
	return len(rows), nil
}

func (c *Client) check(ctx context.Context, method, table string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.ErrorContext(ctx, "backend request failed", "method", method, "table", table, "error", err)
		return fmt.Errorf("rest: %s %s: %w", method, table, err)
	}
	if !resp.IsError() {
		c.logger.DebugContext(ctx, "backend request", "method", method, "table", table,
			"status", resp.StatusCode(), "duration", resp.Time())
		return nil
	}

	apiErr, _ := resp.Error().(*apiError)
	if apiErr == nil {
		apiErr = &apiError{}
	}
	c.logger.WarnContext(ctx, "backend rejected request",
		"method", method,
		"table", table,
		"status", resp.StatusCode(),
		"code", apiErr.Code,
		"message", apiErr.Message,
	)
	return mapError(resp.StatusCode(), apiErr)
}

// mapError translates PostgREST status codes and Postgres SQLSTATE values into
// persistence sentinels.
func mapError(status int, apiErr *apiError) error {
	detail := fmt.Errorf("rest: status %d: %s %s", status, apiErr.Code, apiErr.Message)
	switch apiErr.Code {
	case "23505":
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, detail)
	case "23503":
		return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, detail)
	case "23514", "23502":
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, detail)
	case "PGRST116":
		return persistence.ErrNotFound
	}
	switch status {
	case http.StatusNotFound:
		return persistence.ErrNotFound
	case http.StatusConflict:
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, detail)
	}
	return detail
}

func eq(value string) string {
	return "eq." + value
}

package dataservice

import (
	"bytes"
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

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
	"github.com/p-blackswan/allocation-timeline/internal/models"
	"github.com/p-blackswan/allocation-timeline/internal/requestid"
	"github.com/p-blackswan/allocation-timeline/internal/retry"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to a remote data service over its JSON API.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPClient
	retry      retry.Config
	logger     zerolog.Logger
}

// NewClient creates a client for the service at baseURL. token, if set, is
// sent as a bearer token.
func NewClient(baseURL, token string, timeout time.Duration, attempts int, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry.DefaultConfig().WithAttempts(attempts),
		logger:     logger.With().Str("component", "dataservice").Str("backend", "http").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// SetRetry replaces the retry policy.
func (c *Client) SetRetry(cfg retry.Config) {
	c.retry = cfg
}

// Ping checks the remote service answers its liveness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, "ping", http.MethodGet, "/healthz", nil, nil)
}

// FetchChartData calls POST /api/v1/chart-data.
func (c *Client) FetchChartData(ctx context.Context, q ChartQuery) (*ChartData, error) {
	var out ChartData
	if err := c.call(ctx, OpFetchChartData, http.MethodPost, "/api/v1/chart-data", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchResources calls GET /api/v1/resources.
func (c *Client) FetchResources(ctx context.Context) ([]models.ResourceSummary, error) {
	var out struct {
		Resources []models.ResourceSummary `json:"resources"`
	}
	if err := c.call(ctx, OpFetchResources, http.MethodGet, "/api/v1/resources", nil, &out); err != nil {
		return nil, err
	}
	return out.Resources, nil
}

// FetchProjects calls GET /api/v1/projects.
func (c *Client) FetchProjects(ctx context.Context) ([]models.Project, error) {
	var out struct {
		Projects []models.Project `json:"projects"`
	}
	if err := c.call(ctx, OpFetchProjects, http.MethodGet, "/api/v1/projects", nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// SaveAllocation calls POST /api/v1/allocations. Only updates of an existing
// allocation are retried: they carry absolute dates and converge. A create
// that timed out may already have been stored, so it is attempted once.
func (c *Client) SaveAllocation(ctx context.Context, p models.AllocationPatch) (*SaveResult, error) {
	policy := c.retry
	if p.IsCreate() {
		policy = c.retry.WithAttempts(1)
	}
	var out SaveResult
	if err := c.callWith(ctx, policy, OpSaveAllocation, http.MethodPost, "/api/v1/allocations", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAllocation calls DELETE /api/v1/allocations/:id once. A retry after
// an unseen success would surface as not found.
func (c *Client) DeleteAllocation(ctx context.Context, allocationID string) error {
	if allocationID == "" {
		return perrors.Invalid("allocation id is required")
	}
	return c.callWith(ctx, c.retry.WithAttempts(1), OpDeleteAllocation, http.MethodDelete, "/api/v1/allocations/"+url.PathEscape(allocationID), nil, nil)
}

// call runs one request under the client's retry policy.
func (c *Client) call(ctx context.Context, op, method, path string, in, out any) error {
	return c.callWith(ctx, c.retry, op, method, path, in, out)
}

func (c *Client) callWith(ctx context.Context, policy retry.Config, op, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("%s: marshaling request: %w", op, err)
		}
	}

	return retry.Do(ctx, policy, func(ctx context.Context) error {
		return c.do(ctx, method, path, body, out)
	}, func(attempt int, err error) {
		c.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("Data service call failed, retrying")
	})
}

// do executes a single request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestid.Header, requestid.FromContext(ctx))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(raw))
	var p problem
	if json.Unmarshal(raw, &p) == nil && (p.Detail != "" || p.Title != "") {
		msg = p.Detail
		if msg == "" {
			msg = p.Title
		}
	}

	e := perrors.NewAPIError("dataservice", resp.StatusCode, msg)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		e.Err = perrors.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		e.Err = perrors.ErrInvalidInput
	case resp.StatusCode == http.StatusTooManyRequests:
		e.Err = perrors.ErrRateLimit
	case resp.StatusCode >= 500:
		e.Err = perrors.ErrUnavailable
	}
	return e
}

func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("executing request: %v: %w", err, perrors.ErrTimeout)
	}
	return fmt.Errorf("executing request: %v: %w", err, perrors.ErrUnavailable)
}

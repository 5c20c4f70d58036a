// Package boardclient calls the work board RPC routes and unwraps the
// response envelope into typed values and *errors.Error failures.
package boardclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/internal/boardstate"
	"github.com/angelmondragon/workboard-backend/pkg/board"
	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

const (
	basePath       = "/api/v1/workboard"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20

	defaultReadRetries   = 2
	defaultRetryInterval = 200 * time.Millisecond
)

var (
	_ boardstate.MutationClient = (*Client)(nil)
	_ boardstate.Loader         = (*Client)(nil)
)

type Client struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	readRetries   uint64
	retryInterval time.Duration
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithReadRetries sets how often a failed list call is retried after a
// retryable error. Mutations are never retried. Zero disables retries.
func WithReadRetries(retries int, interval time.Duration) Option {
	return func(c *Client) {
		if retries < 0 {
			retries = 0
		}
		c.readRetries = uint64(retries)
		if interval > 0 {
			c.retryInterval = interval
		}
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base url is required")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid base url")
	}

	client := &Client{
		baseURL:       trimmed,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		readRetries:   defaultReadRetries,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) ListAssignments(ctx context.Context, weekStart types.Date) ([]board.AssignmentView, error) {
	query := url.Values{}
	if !weekStart.IsZero() {
		query.Set("weekStart", weekStart.String())
	}
	var out []board.AssignmentView
	err := c.get(ctx, "/assignments", query, &out)
	return out, err
}

func (c *Client) ListUnassignedJobs(ctx context.Context) (board.UnassignedJobs, error) {
	var out board.UnassignedJobs
	err := c.get(ctx, "/unassigned", nil, &out)
	return out, err
}

func (c *Client) ListTechnicians(ctx context.Context) ([]board.TechnicianView, error) {
	var out []board.TechnicianView
	err := c.get(ctx, "/technicians", nil, &out)
	return out, err
}

func (c *Client) CreateAssignment(ctx context.Context, req board.CreateAssignmentRequest) (board.AssignmentView, error) {
	var out board.AssignmentView
	err := c.do(ctx, http.MethodPost, "/assignments", nil, req, &out)
	return out, err
}

func (c *Client) MoveAssignment(ctx context.Context, req board.MoveAssignmentRequest) (board.AssignmentView, error) {
	var out board.AssignmentView
	err := c.do(ctx, http.MethodPost, "/assignments/"+req.ID.String()+"/move", nil, req, &out)
	return out, err
}

func (c *Client) RemoveAssignment(ctx context.Context, id uuid.UUID) error {
	_, err := c.RemoveAssignmentDetailed(ctx, id)
	return err
}

// RemoveAssignmentDetailed removes an assignment and returns the job it
// freed.
func (c *Client) RemoveAssignmentDetailed(ctx context.Context, id uuid.UUID) (board.RemovedAssignment, error) {
	var out board.RemovedAssignment
	err := c.do(ctx, http.MethodDelete, "/assignments/"+id.String(), nil, nil, &out)
	return out, err
}

func (c *Client) CreateTechnician(ctx context.Context, req board.CreateTechnicianRequest) (board.TechnicianView, error) {
	var out board.TechnicianView
	err := c.do(ctx, http.MethodPost, "/technicians", nil, req, &out)
	return out, err
}

func (c *Client) UpdateTechnician(ctx context.Context, req board.UpdateTechnicianRequest) (board.TechnicianView, error) {
	var out board.TechnicianView
	err := c.do(ctx, http.MethodPatch, "/technicians/"+req.ID.String(), nil, req, &out)
	return out, err
}

func (c *Client) DeleteTechnician(ctx context.Context, id uuid.UUID) (board.RemovedTechnician, error) {
	var out board.RemovedTechnician
	err := c.do(ctx, http.MethodDelete, "/technicians/"+id.String(), nil, nil, &out)
	return out, err
}

// get retries reads with exponential backoff while the failure is
// retryable.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, c.readRetries), ctx)

	return backoff.Retry(func() error {
		err := c.do(ctx, http.MethodGet, path, query, nil, out)
		if err != nil && !pkgerrors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, retry)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *types.APIError `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + basePath + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "read response body")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, fmt.Sprintf("unexpected response (status %d)", resp.StatusCode))
	}
	if !env.Success {
		return decodeError(resp.StatusCode, env.Error)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "decode response data")
	}
	return nil
}

func decodeError(status int, apiErr *types.APIError) error {
	if apiErr == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("request failed with status %d", status))
	}
	err := pkgerrors.New(pkgerrors.ParseCode(apiErr.Code), apiErr.Message)
	if apiErr.Details != nil {
		err = err.WithDetails(apiErr.Details)
	}
	return err
}

// Package client talks to the transcript archive's HTTP API. It wraps a
// retrying HTTP client with JSON encoding, request ids, bearer auth, and
// translation of failures into CollaboratorError values.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	acerrors "github.com/otherjamesbrown/aircheck-cli/pkg/errors"
	"github.com/otherjamesbrown/aircheck-cli/pkg/logging"
)

// Default transport settings.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultRetryMax     = 3
	DefaultRetryWaitMin = 500 * time.Millisecond
	DefaultRetryWaitMax = 5 * time.Second
)

// TokenSource supplies the bearer token for authenticated requests. An empty
// token means the request goes out anonymous.
type TokenSource func() (string, error)

// Client is an archive API client. Construct it with New; the zero value is
// not usable.
type Client struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
	token   TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithLogger routes transport logging to the given logger.
func WithLogger(log logging.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTokenSource attaches bearer-token authentication.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithHTTPClient replaces the underlying HTTP client, dropping the default
// retry behavior. Mostly useful in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New builds a client for the archive at baseURL. Transient failures (429
// and 5xx) are retried with exponential backoff before surfacing an error.
func New(baseURL string, opts ...Option) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = DefaultRetryMax
	retry.RetryWaitMin = DefaultRetryWaitMin
	retry.RetryWaitMax = DefaultRetryWaitMax
	retry.Logger = nil

	hc := retry.StandardClient()
	hc.Timeout = DefaultTimeout

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		log:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the archive base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get issues a GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// post issues a POST with a JSON body and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		token, err := c.token()
		if err != nil {
			return fmt.Errorf("load credentials: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.log.Debug("archive request",
		logging.F("method", method),
		logging.F("path", path),
		logging.F("request_id", requestID),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return acerrors.Classify(err, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &acerrors.CollaboratorError{
			Code:      acerrors.ErrBadResponse,
			Endpoint:  path,
			RequestID: requestID,
			Message:   "read response body",
			Cause:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp, data, path, requestID)
	}

	// A 2xx body can still carry an application-level rejection.
	if rejectMsg := rejection(data); rejectMsg != "" {
		return &acerrors.CollaboratorError{
			Code:      acerrors.ErrServerRejected,
			Endpoint:  path,
			RequestID: requestID,
			Message:   rejectMsg,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &acerrors.CollaboratorError{
			Code:      acerrors.ErrBadResponse,
			Endpoint:  path,
			RequestID: requestID,
			Message:   fmt.Sprintf("decode archive response: %v", err),
			Cause:     err,
		}
	}
	return nil
}

// errorBody is the shape the archive uses for failures; which field is set
// varies by endpoint.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// rejection extracts an application-level error message from a 2xx body, or
// "" when the body carries none.
func rejection(data []byte) string {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		return ""
	}
	if eb.Error != "" {
		return eb.Error
	}
	return eb.Detail
}

func (c *Client) statusError(resp *http.Response, data []byte, path, requestID string) error {
	msg := strings.TrimSpace(string(data))
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		if eb.Error != "" {
			msg = eb.Error
		} else if eb.Detail != "" {
			msg = eb.Detail
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	if id := resp.Header.Get("X-Request-Id"); id != "" {
		requestID = id
	}

	code := acerrors.ErrServerRejected
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		code = acerrors.ErrRateLimit
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		code = acerrors.ErrTimeout
	case resp.StatusCode >= 500:
		code = acerrors.ErrServiceUnavailable
	}

	return &acerrors.CollaboratorError{
		Code:       code,
		Endpoint:   path,
		StatusCode: resp.StatusCode,
		RequestID:  requestID,
		Message:    msg,
	}
}

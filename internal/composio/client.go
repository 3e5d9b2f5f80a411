package composio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/gmailagent/internal/instrumentation"
	"github.com/teemow/gmailagent/internal/logging"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://backend.composio.dev"

	// DefaultPollInterval is how often WaitForConnection checks the account.
	DefaultPollInterval = 2 * time.Second

	apiKeyHeader = "x-api-key"
	maxErrorBody = 64 << 10
)

// Client talks to the tool-routing REST API.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	logger       *slog.Logger
	metrics      *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPollInterval sets the connection status poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("composio api key is required")
	}

	c := &Client{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateSession opens a tool-router session for userID.
func (c *Client) CreateSession(ctx context.Context, userID string, opts SessionOptions) (*Session, error) {
	req := createSessionRequest{
		UserID:            userID,
		ManageConnections: opts.ManageConnections,
		Toolkits:          opts.Toolkits,
	}

	var resp createSessionResponse
	if err := c.do(ctx, "create_session", http.MethodPost, "/api/v3/tool_router/session", req, &resp); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		return nil, errors.New("composio create_session: response has no session_id")
	}

	c.logger.Debug("tool router session created",
		logging.Session(resp.SessionID),
		logging.UserHash(userID))

	return &Session{ID: resp.SessionID, UserID: userID, client: c}, nil
}

// getConnectedAccount fetches the current state of a connected account.
func (c *Client) getConnectedAccount(ctx context.Context, id string) (*ConnectedAccount, error) {
	var resp connectedAccountResponse
	path := "/api/v3/connected_accounts/" + url.PathEscape(id)
	if err := c.do(ctx, "get_connected_account", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &ConnectedAccount{
		ID:      resp.ID,
		Status:  strings.ToUpper(resp.Status),
		Toolkit: resp.Toolkit.Slug,
	}, nil
}

// do sends one JSON request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) (err error) {
	ctx, span := instrumentation.StartAPISpan(ctx, operation)
	start := time.Now()
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		}
		c.metrics.RecordAPIRequest(ctx, operation, status, time.Since(start))
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("composio %s: failed to encode request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("composio %s: failed to build request: %w", operation, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("composio %s: %w", operation, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("composio request",
		logging.Operation(operation),
		slog.Int("http_status", resp.StatusCode),
		slog.Duration(logging.KeyDuration, time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(operation, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("composio %s: failed to decode response: %w", operation, err)
	}
	return nil
}

func newAPIError(operation string, resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := strings.TrimSpace(string(raw))
	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil {
		switch {
		case parsed.Error.Message != "":
			message = parsed.Error.Message
		case parsed.Message != "":
			message = parsed.Message
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &APIError{Operation: operation, StatusCode: resp.StatusCode, Message: message}
}

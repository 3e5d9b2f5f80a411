package composio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Connected account statuses reported by the service.
const (
	StatusInitiated = "INITIATED"
	StatusActive    = "ACTIVE"
	StatusFailed    = "FAILED"
	StatusExpired   = "EXPIRED"
)

var (
	// ErrConnectionTimeout is returned when a connection request does not
	// become active before the wait timeout.
	ErrConnectionTimeout = errors.New("timed out waiting for connection")

	// ErrConnectionFailed is returned when the service reports the
	// connection as failed or expired.
	ErrConnectionFailed = errors.New("connection failed")
)

// APIError is a non-2xx response from the service.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("composio %s: HTTP %d: %s", e.Operation, e.StatusCode, e.Message)
}

// SessionOptions configure a tool-router session.
type SessionOptions struct {
	// ManageConnections lets the service prompt for missing connections on
	// its own. Nil leaves the service default in place.
	ManageConnections *bool

	// Toolkits restricts the session to the given toolkit slugs. Empty means
	// every toolkit enabled for the project.
	Toolkits []string
}

// Bool returns a pointer to v, for optional fields such as
// SessionOptions.ManageConnections.
func Bool(v bool) *bool {
	return &v
}

// Tool describes one callable capability exposed through a session.
type Tool struct {
	// Name is the callable identifier, e.g. GMAIL_FETCH_EMAILS.
	Name string
	// Title is the human readable name.
	Title       string
	Description string
	Toolkit     string
	InputSchema json.RawMessage
}

// ConnectedAccount is the result of a completed authorization.
type ConnectedAccount struct {
	ID      string
	Status  string
	Toolkit string
}

// ExecuteResult is the outcome of a remote tool execution.
type ExecuteResult struct {
	Data       json.RawMessage
	Error      string
	Successful bool
}

// FilterByName returns the tools whose name contains substr, ignoring case.
func FilterByName(tools []Tool, substr string) []Tool {
	needle := strings.ToLower(substr)
	var matched []Tool
	for _, t := range tools {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			matched = append(matched, t)
		}
	}
	return matched
}

// Wire formats.

type createSessionRequest struct {
	UserID            string   `json:"user_id"`
	ManageConnections *bool    `json:"manage_connections,omitempty"`
	Toolkits          []string `json:"toolkits,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type linkRequest struct {
	Toolkit     string `json:"toolkit"`
	CallbackURL string `json:"callback_url"`
}

type linkResponse struct {
	ConnectedAccountID string `json:"connected_account_id"`
	RedirectURL        string `json:"redirect_url"`
}

type toolkitRef struct {
	Slug string `json:"slug"`
	Name string `json:"name,omitempty"`
}

type connectedAccountResponse struct {
	ID      string     `json:"id"`
	Status  string     `json:"status"`
	Toolkit toolkitRef `json:"toolkit"`
}

type toolResponse struct {
	Slug            string          `json:"slug"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Toolkit         toolkitRef      `json:"toolkit"`
	InputParameters json.RawMessage `json:"input_parameters"`
}

type listToolsResponse struct {
	Items []toolResponse `json:"items"`
}

type executeRequest struct {
	ToolSlug  string         `json:"tool_slug"`
	Arguments map[string]any `json:"arguments"`
}

type executeResponse struct {
	Data       json.RawMessage `json:"data"`
	Error      *string         `json:"error"`
	Successful bool            `json:"successful"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

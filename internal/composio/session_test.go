package composio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(client *Client) *Session {
	return &Session{ID: "trs_1", UserID: "user-1", client: client}
}

func TestAuthorize(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v3/tool_router/session/trs_1/link", func(w http.ResponseWriter, r *http.Request) {
		var body linkRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gmail", body.Toolkit)
		assert.Equal(t, "https://composio.dev", body.CallbackURL)

		writeJSON(t, w, http.StatusOK, map[string]any{
			"connected_account_id": "conn_123",
			"redirect_url":         "https://accounts.example.com/oauth?state=abc",
		})
	})

	client := newTestClient(t, mux)
	req, err := testSession(client).Authorize(context.Background(), "gmail", "https://composio.dev")
	require.NoError(t, err)
	assert.Equal(t, "conn_123", req.ID)
	assert.Equal(t, "https://accounts.example.com/oauth?state=abc", req.RedirectURL)
}

func TestAuthorize_IncompleteResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v3/tool_router/session/trs_1/link", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"connected_account_id": "conn_123"})
	})

	client := newTestClient(t, mux)
	_, err := testSession(client).Authorize(context.Background(), "gmail", "https://composio.dev")
	assert.Error(t, err)
}

func TestWaitForConnection(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []string
		timeout   time.Duration
		wantErr   error
		wantPolls int32
	}{
		{
			name:      "active immediately",
			statuses:  []string{StatusActive},
			timeout:   time.Second,
			wantPolls: 1,
		},
		{
			name:      "active after polling",
			statuses:  []string{StatusInitiated, StatusInitiated, "active"},
			timeout:   time.Second,
			wantPolls: 3,
		},
		{
			name:     "failed",
			statuses: []string{StatusInitiated, StatusFailed},
			timeout:  time.Second,
			wantErr:  ErrConnectionFailed,
		},
		{
			name:     "expired",
			statuses: []string{StatusExpired},
			timeout:  time.Second,
			wantErr:  ErrConnectionFailed,
		},
		{
			name:     "timeout",
			statuses: []string{StatusInitiated},
			timeout:  30 * time.Millisecond,
			wantErr:  ErrConnectionTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var polls atomic.Int32
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/v3/connected_accounts/conn_123", func(w http.ResponseWriter, r *http.Request) {
				n := int(polls.Add(1))
				status := tt.statuses[len(tt.statuses)-1]
				if n <= len(tt.statuses) {
					status = tt.statuses[n-1]
				}
				writeJSON(t, w, http.StatusOK, map[string]any{
					"id":      "conn_123",
					"status":  status,
					"toolkit": map[string]any{"slug": "gmail"},
				})
			})

			client := newTestClient(t, mux)
			req := &ConnectionRequest{ID: "conn_123", RedirectURL: "https://example.com", client: client}

			account, err := req.WaitForConnection(context.Background(), tt.timeout)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "conn_123", account.ID)
			assert.Equal(t, StatusActive, account.Status)
			assert.Equal(t, "gmail", account.Toolkit)
			assert.Equal(t, tt.wantPolls, polls.Load())
		})
	}
}

func TestWaitForConnection_ParentCancelled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/connected_accounts/conn_123", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"id": "conn_123", "status": StatusInitiated})
	})

	client := newTestClient(t, mux)
	req := &ConnectionRequest{ID: "conn_123", client: client}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := req.WaitForConnection(ctx, time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrConnectionTimeout)
}

func TestTools(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/tool_router/session/trs_1/tools", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"items": []map[string]any{
				{
					"slug":        "GMAIL_FETCH_EMAILS",
					"name":        "Fetch emails",
					"description": "Fetch emails from the inbox",
					"toolkit":     map[string]any{"slug": "gmail"},
					"input_parameters": map[string]any{
						"type":       "object",
						"properties": map[string]any{"max_results": map[string]any{"type": "integer"}},
					},
				},
				{
					"slug":    "COMPOSIO_SEARCH_TOOLS",
					"name":    "Search tools",
					"toolkit": map[string]any{"slug": "composio"},
				},
			},
		})
	})

	client := newTestClient(t, mux)
	tools, err := testSession(client).Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)

	assert.Equal(t, "GMAIL_FETCH_EMAILS", tools[0].Name)
	assert.Equal(t, "Fetch emails", tools[0].Title)
	assert.Equal(t, "gmail", tools[0].Toolkit)
	assert.JSONEq(t, `{"type":"object","properties":{"max_results":{"type":"integer"}}}`, string(tools[0].InputSchema))
	assert.Empty(t, tools[1].InputSchema)
}

func TestExecuteTool(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v3/tool_router/session/trs_1/execute", func(w http.ResponseWriter, r *http.Request) {
		var body executeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body.ToolSlug == "GMAIL_BROKEN" {
			writeJSON(t, w, http.StatusOK, map[string]any{"data": nil, "error": "quota exceeded", "successful": false})
			return
		}
		assert.Equal(t, "GMAIL_FETCH_EMAILS", body.ToolSlug)
		assert.Equal(t, float64(5), body.Arguments["max_results"])
		writeJSON(t, w, http.StatusOK, map[string]any{
			"data":       map[string]any{"messages": []any{}},
			"error":      nil,
			"successful": true,
		})
	})

	client := newTestClient(t, mux)
	session := testSession(client)

	result, err := session.ExecuteTool(context.Background(), "GMAIL_FETCH_EMAILS", map[string]any{"max_results": 5})
	require.NoError(t, err)
	assert.True(t, result.Successful)
	assert.Empty(t, result.Error)
	assert.JSONEq(t, `{"messages":[]}`, string(result.Data))

	result, err = session.ExecuteTool(context.Background(), "GMAIL_BROKEN", nil)
	require.NoError(t, err)
	assert.False(t, result.Successful)
	assert.Equal(t, "quota exceeded", result.Error)
}

package composio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/teemow/gmailagent/internal/logging"
)

// Session is a tool-router session bound to one user.
type Session struct {
	ID     string
	UserID string
	client *Client
}

// Authorize starts an OAuth grant for toolkit. The returned request carries
// the URL the user must visit; the grant completes out of band.
func (s *Session) Authorize(ctx context.Context, toolkit, callbackURL string) (*ConnectionRequest, error) {
	req := linkRequest{Toolkit: toolkit, CallbackURL: callbackURL}

	var resp linkResponse
	path := "/api/v3/tool_router/session/" + url.PathEscape(s.ID) + "/link"
	if err := s.client.do(ctx, "authorize", http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	if resp.RedirectURL == "" || resp.ConnectedAccountID == "" {
		return nil, errors.New("composio authorize: response is missing redirect_url or connected_account_id")
	}

	s.client.logger.Debug("authorization link created",
		logging.Session(s.ID),
		logging.Toolkit(toolkit),
		logging.Connection(resp.ConnectedAccountID))

	return &ConnectionRequest{
		ID:          resp.ConnectedAccountID,
		RedirectURL: resp.RedirectURL,
		client:      s.client,
	}, nil
}

// Tools returns every tool the session exposes. The service returns the
// full list in one response.
func (s *Session) Tools(ctx context.Context) ([]Tool, error) {
	var resp listToolsResponse
	path := "/api/v3/tool_router/session/" + url.PathEscape(s.ID) + "/tools"
	if err := s.client.do(ctx, "list_tools", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	tools := make([]Tool, 0, len(resp.Items))
	for _, item := range resp.Items {
		tools = append(tools, Tool{
			Name:        item.Slug,
			Title:       item.Name,
			Description: item.Description,
			Toolkit:     item.Toolkit.Slug,
			InputSchema: item.InputParameters,
		})
	}
	return tools, nil
}

// ExecuteTool runs the named tool with args on behalf of the session user.
// A tool-reported failure is returned in the result, not as an error.
func (s *Session) ExecuteTool(ctx context.Context, name string, args map[string]any) (*ExecuteResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	req := executeRequest{ToolSlug: name, Arguments: args}

	var resp executeResponse
	path := "/api/v3/tool_router/session/" + url.PathEscape(s.ID) + "/execute"
	if err := s.client.do(ctx, "execute_tool", http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	result := &ExecuteResult{Data: resp.Data, Successful: resp.Successful}
	if resp.Error != nil {
		result.Error = *resp.Error
	}
	return result, nil
}

// ConnectionRequest is a pending OAuth grant.
type ConnectionRequest struct {
	// ID is the connected account the grant will activate.
	ID          string
	RedirectURL string
	client      *Client
}

// WaitForConnection polls the connected account until it is active. It
// returns ErrConnectionTimeout once timeout elapses and ErrConnectionFailed
// if the service reports the grant as failed or expired. Cancelling ctx
// stops the wait with ctx's error.
func (r *ConnectionRequest) WaitForConnection(ctx context.Context, timeout time.Duration) (*ConnectedAccount, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(r.client.pollInterval)
	defer ticker.Stop()

	timedOut := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w after %s", ErrConnectionTimeout, timeout)
	}

	for {
		account, err := r.client.getConnectedAccount(waitCtx, r.ID)
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, timedOut()
			}
			return nil, err
		}

		switch account.Status {
		case StatusActive:
			return account, nil
		case StatusFailed, StatusExpired:
			return nil, fmt.Errorf("%w: connected account %s is %s", ErrConnectionFailed, account.ID, account.Status)
		}

		select {
		case <-waitCtx.Done():
			return nil, timedOut()
		case <-ticker.C:
		}
	}
}

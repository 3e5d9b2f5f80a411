// Package composio is a client for the Composio tool-routing REST API.
//
// It covers the slice of the API gmailagent needs:
//   - tool-router sessions bound to a user id
//   - authorization links for a toolkit (OAuth kickoff) and polling the
//     resulting connected account until it becomes active
//   - listing the tools a session exposes
//   - executing a tool on behalf of the session's user
//
// OAuth token exchange, token storage and the tools themselves live on the
// service; this package only moves JSON over HTTPS.
//
// Example usage:
//
//	client, err := composio.NewClient(apiKey)
//	if err != nil {
//	    return err
//	}
//	session, err := client.CreateSession(ctx, userID, composio.SessionOptions{
//	    ManageConnections: composio.Bool(false),
//	})
//	if err != nil {
//	    return err
//	}
//	req, err := session.Authorize(ctx, "gmail", "https://example.com/oauth/callback")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(req.RedirectURL)
//	account, err := req.WaitForConnection(ctx, 3*time.Minute)
package composio

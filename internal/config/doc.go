// Package config loads the process environment for gmailagent.
//
// Initialization is explicit: the root command calls Init once, which loads
// the optional .env file from the working directory with godotenv. Values
// already present in the environment are never overridden.
//
// Credentials:
//   - COMPOSIO_API_KEY: API key for the tool-routing service (required)
//   - COMPOSIO_USER_ID: user identifier the session is bound to
//   - ANTHROPIC_API_KEY: API key for the model client
//
// Settings:
//   - COMPOSIO_BASE_URL: tool-routing API base URL (default: https://backend.composio.dev)
//   - GMAIL_AGENT_MODEL: model used by the conversational client (default: claude-sonnet-4-5)
//   - GMAIL_AGENT_AUTH_TIMEOUT: how long --auth waits for the grant (default: 180s)
//   - GMAIL_AGENT_POLL_INTERVAL: connection status poll interval (default: 2s)
//   - GMAIL_AGENT_CALLBACK_URL: OAuth callback URL (default: https://composio.dev)
//   - LOG_LEVEL: slog level for diagnostics on stderr (default: warn)
package config

// Package logging provides the slog conventions shared by gmailagent.
//
// Diagnostics go to stderr through a text handler whose level comes from
// LOG_LEVEL; stdout is reserved for the operator-facing output of the auth and
// query flows. The helpers here keep attribute names consistent:
//
//	logger := logging.NewLogger(os.Stderr, settings.LogLevel)
//	logger.Info("tool invoked", logging.Tool(name), logging.Err(err))
//
// API keys and user ids never appear verbatim; use SanitizeToken and UserHash.
package logging

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailagent/internal/composio"
	"github.com/teemow/gmailagent/internal/config"
	"github.com/teemow/gmailagent/internal/console"
	"github.com/teemow/gmailagent/internal/instrumentation"
	"github.com/teemow/gmailagent/internal/logging"
	"github.com/teemow/gmailagent/internal/mailagent"
)

const shutdownTimeout = 5 * time.Second

// newServiceRunner wires the logger, instrumentation, the tool-routing client
// and the terminal printer into a mailagent.Service.
func newServiceRunner(cmd *cobra.Command, creds config.Credentials, settings config.Settings) (runner, func(), error) {
	logger := logging.NewLogger(cmd.ErrOrStderr(), settings.LogLevel)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(cmd.Context(), instrConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	metrics := provider.Metrics()

	shutdownProvider := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}

	client, err := composio.NewClient(creds.APIKey,
		composio.WithBaseURL(settings.BaseURL),
		composio.WithPollInterval(settings.PollInterval),
		composio.WithLogger(logger),
		composio.WithMetrics(metrics))
	if err != nil {
		shutdownProvider()
		return nil, nil, err
	}

	out := console.NewUTF8Writer(cmd.OutOrStdout())
	errOut := console.NewUTF8Writer(cmd.ErrOrStderr())

	logger.Debug("configuration loaded",
		slog.String("base_url", settings.BaseURL),
		slog.String("model", settings.Model),
		slog.String("api_key", logging.SanitizeToken(creds.APIKey)),
		logging.UserHash(creds.UserID))

	svc := mailagent.New(client, mailagent.Config{
		UserID:          creds.UserID,
		CallbackURL:     settings.CallbackURL,
		AuthTimeout:     settings.AuthTimeout,
		Model:           settings.Model,
		AnthropicAPIKey: creds.AnthropicAPIKey,
	}, console.NewPrinter(out, errOut),
		mailagent.WithLogger(logger),
		mailagent.WithMetrics(metrics))

	cleanup := func() {
		_ = out.Close()
		_ = errOut.Close()
		shutdownProvider()
	}
	return svc, cleanup, nil
}

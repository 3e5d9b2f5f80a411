package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailagent/internal/config"
	"github.com/teemow/gmailagent/internal/mailagent"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
}

// runner executes one of the two flows.
type runner interface {
	Authorize(ctx context.Context) error
	Query(ctx context.Context, prompt string) error
}

// runnerFactory builds a runner once credentials are known. The returned
// cleanup func is always non-nil when err is nil.
type runnerFactory func(cmd *cobra.Command, creds config.Credentials, settings config.Settings) (runner, func(), error)

// newRootCmd returns the gmailagent command using newRunner to build the flows.
func newRootCmd(newRunner runnerFactory) *cobra.Command {
	var (
		auth  bool
		query string
	)

	cmd := &cobra.Command{
		Use:   "gmailagent",
		Short: "Query your Gmail inbox through an AI agent",
		Long: `gmailagent lets a Claude agent read your Gmail account through the
Composio tool router.

Authorize once with --auth, then ask questions:
  gmailagent --auth
  gmailagent -q "summarize unread emails from today"

Configuration is read from the environment and from a .env file in the
current directory (COMPOSIO_API_KEY, COMPOSIO_USER_ID, ANTHROPIC_API_KEY).`,
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(config.DefaultEnvFile); err != nil {
				return err
			}
			creds, err := config.LoadCredentials()
			if err != nil {
				return err
			}
			settings := config.LoadSettings()

			r, cleanup, err := newRunner(cmd, creds, settings)
			if err != nil {
				return err
			}
			defer cleanup()

			if auth {
				return r.Authorize(cmd.Context())
			}
			return r.Query(cmd.Context(), query)
		},
	}

	cmd.SetVersionTemplate(`{{printf "gmailagent version %s\n" .Version}}`)
	cmd.Flags().BoolVar(&auth, "auth", false, "Authorize Gmail access and exit")
	cmd.Flags().StringVarP(&query, "query", "q", mailagent.DefaultQuery, "Question to ask about your mailbox")

	return cmd
}

// Execute is the main entry point for the CLI application
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(newServiceRunner).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

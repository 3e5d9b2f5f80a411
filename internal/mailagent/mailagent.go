package mailagent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/gmailagent/internal/agent"
	"github.com/teemow/gmailagent/internal/composio"
	"github.com/teemow/gmailagent/internal/console"
	"github.com/teemow/gmailagent/internal/instrumentation"
	"github.com/teemow/gmailagent/internal/logging"
	"github.com/teemow/gmailagent/internal/toolserver"
)

const (
	// Toolkit is the toolkit slug authorized and counted by gmailagent.
	Toolkit = "gmail"

	// ServerKey is the key the tool server is registered under.
	ServerKey = "composio"

	// DefaultQuery is asked when no query is given.
	DefaultQuery = "列出最新 5 封郵件，顯示寄件者、主旨和時間"

	// SystemPrompt configures the assistant.
	SystemPrompt = "你是一個 Gmail 助理，擅長讀取、搜尋、整理電子郵件。\n" +
		"使用繁體中文回應。\n" +
		"回答時請清楚列出郵件主旨、寄件者、時間、內容摘要。"
)

// Conversation is an agent conversation. *agent.Client satisfies it.
type Conversation interface {
	Connect(ctx context.Context) error
	Query(ctx context.Context, prompt string) error
	ReceiveResponse(ctx context.Context) iter.Seq2[agent.Message, error]
	Close() error
}

// ConversationFactory opens a conversation with the given options.
type ConversationFactory func(opts agent.Options) Conversation

// NewAgentConversation is the default ConversationFactory.
func NewAgentConversation(opts agent.Options) Conversation {
	return agent.NewClient(opts)
}

// Config holds the per-invocation settings.
type Config struct {
	UserID          string
	CallbackURL     string
	AuthTimeout     time.Duration
	Model           string
	AnthropicAPIKey string
}

// Service runs the authorization and query flows.
type Service struct {
	client          *composio.Client
	cfg             Config
	printer         *console.Printer
	logger          *slog.Logger
	metrics         *instrumentation.Metrics
	newConversation ConversationFactory
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithConversationFactory replaces the agent client constructor.
func WithConversationFactory(f ConversationFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.newConversation = f
		}
	}
}

// New returns a Service using client for the tool-routing service.
func New(client *composio.Client, cfg Config, printer *console.Printer, opts ...Option) *Service {
	s := &Service{
		client:          client,
		cfg:             cfg,
		printer:         printer,
		logger:          slog.Default(),
		newConversation: NewAgentConversation,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorize runs the Gmail OAuth grant: it prints the redirect URL, waits for
// the grant to complete and prints the connection id.
func (s *Service) Authorize(ctx context.Context) error {
	logger := logging.WithOperation(s.logger, "authorize")
	ctx, span := instrumentation.StartSpan(ctx, "mailagent.authorize",
		attribute.String(instrumentation.SpanAttrToolkit, Toolkit))
	defer span.End()

	s.printer.AuthorizationStart()

	session, err := s.client.CreateSession(ctx, s.cfg.UserID, composio.SessionOptions{
		ManageConnections: composio.Bool(false),
	})
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return fmt.Errorf("create session: %w", err)
	}

	req, err := session.Authorize(ctx, Toolkit, s.cfg.CallbackURL)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return fmt.Errorf("authorize %s: %w", Toolkit, err)
	}
	s.printer.AuthorizationURL(req.RedirectURL, s.cfg.AuthTimeout)

	logger.Info("waiting for connection",
		logging.Connection(req.ID),
		slog.Duration("timeout", s.cfg.AuthTimeout))

	account, err := req.WaitForConnection(ctx, s.cfg.AuthTimeout)
	if err != nil {
		result := instrumentation.OAuthResultFailure
		if errors.Is(err, composio.ErrConnectionTimeout) {
			result = instrumentation.OAuthResultTimeout
		}
		s.metrics.RecordOAuthAuth(ctx, result)
		instrumentation.SetSpanError(span, err)
		s.printer.AuthorizationFailed(err)
		return fmt.Errorf("wait for connection: %w", err)
	}

	s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	instrumentation.SetSpanSuccess(span)
	logger.Info("connection active", logging.Connection(account.ID))
	s.printer.Connected(account.ID)
	return nil
}

// Query asks prompt and streams the answer. It returns once the result
// message arrives; later messages are not read.
func (s *Service) Query(ctx context.Context, prompt string) error {
	logger := logging.WithOperation(s.logger, "query")
	s.printer.Banner(prompt)

	session, err := s.client.CreateSession(ctx, s.cfg.UserID, composio.SessionOptions{})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	tools, err := session.Tools(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	s.printer.ToolCounts(len(tools), len(composio.FilterByName(tools, Toolkit)))

	srv := toolserver.New(toolserver.DefaultName, toolserver.DefaultVersion, tools, session,
		toolserver.WithLogger(s.logger),
		toolserver.WithMetrics(s.metrics))

	conv := s.newConversation(agent.Options{
		SystemPrompt:   SystemPrompt,
		PermissionMode: agent.PermissionBypass,
		MCPServers:     map[string]*mcpserver.MCPServer{ServerKey: srv},
		Model:          s.cfg.Model,
		APIKey:         s.cfg.AnthropicAPIKey,
		Logger:         s.logger,
		Metrics:        s.metrics,
	})

	s.printer.Separator()
	if err := conv.Connect(ctx); err != nil {
		return fmt.Errorf("connect agent: %w", err)
	}
	defer func() {
		if err := conv.Close(); err != nil {
			logger.Warn("failed to close agent", logging.Err(err))
		}
	}()

	if err := conv.Query(ctx, prompt); err != nil {
		return err
	}

stream:
	for msg, err := range conv.ReceiveResponse(ctx) {
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case *agent.AssistantMessage:
			for _, block := range m.Content {
				switch b := block.(type) {
				case agent.TextBlock:
					s.printer.Text(b.Text)
				case agent.ToolUseBlock:
					s.printer.ToolUse(b.Name)
				}
			}
		case *agent.ResultMessage:
			s.printer.Summary(m.TotalCostUSD, m.DurationMS)
			logger.Debug("query finished",
				slog.String("subtype", m.Subtype),
				slog.Int("turns", m.NumTurns),
				slog.Int64("duration_ms", m.DurationMS))
			break stream
		}
	}

	s.printer.Done()
	return nil
}

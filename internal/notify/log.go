package notify

import (
	"context"
	"log/slog"
)

// LogSender writes notifications to the log instead of delivering them. It
// is used when no SMTP server is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log-only sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Name returns the channel name.
func (s *LogSender) Name() string {
	return "log"
}

// Send logs the notification. The action link is only emitted at debug level.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "notification logged",
		slog.String("kind", string(msg.Kind)),
		slog.String("to", msg.To),
	)
	if msg.Link != "" {
		s.logger.DebugContext(ctx, "notification link",
			slog.String("kind", string(msg.Kind)),
			slog.String("link", msg.Link),
		)
	}
	return nil
}

package mailer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogSender writes messages to the structured logger instead of delivering
// them. It is the development default.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger uses slog.Default.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message envelope and returns a random id
func (s *LogSender) Send(ctx context.Context, msg *Message) (string, error) {
	if err := validate(msg); err != nil {
		return "", err
	}

	id := "log-" + uuid.NewString()
	attachments := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, a.Filename)
	}

	s.logger.InfoContext(ctx, "email delivered to log",
		slog.String("id", id),
		slog.String("from", msg.From),
		slog.Any("to", msg.To),
		slog.String("reply_to", msg.ReplyTo),
		slog.String("subject", msg.Subject),
		slog.Int("html_bytes", len(msg.HTML)),
		slog.Any("attachments", attachments),
	)
	return id, nil
}

// Name returns the provider name
func (s *LogSender) Name() string {
	return "log"
}

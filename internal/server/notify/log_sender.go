package notify

import (
	"context"

	"github.com/dmitrijs2005/webapp/internal/logging"
)

// LogSender writes messages to the logger instead of sending them.
// Not for production use: the body, including verification links, is logged.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info(ctx, "send email",
		"recipient", msg.To,
		"subject", msg.Subject,
		"body", msg.HTML,
	)
	return nil
}

package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notifier")}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, msg models.NotificationMessage) error {
	n.logger.Info("notification",
		zap.String("user_id", msg.UserID),
		zap.String("slot", string(msg.Slot)),
		zap.String("class_id", msg.ClassID),
		zap.String("date", msg.Date),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body))
	return nil
}

package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// LogNotifier stands in for real delivery by writing one structured entry
// per notification.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.log.WithFields(logrus.Fields{
		"action":      "notification",
		"actor":       n.Moderator,
		"outcome":     "sent",
		"feedback_id": n.FeedbackID,
		"recipient":   n.Author,
		"status":      n.Status,
		"decided_at":  n.DecidedAt.Format(time.RFC3339Nano),
	}).Info("feedback status changed")
	return nil
}

package notify

import (
	"context"
	"time"

	"feedback-backend/internal/models"
)

// Notification describes a moderation outcome the author should hear about.
type Notification struct {
	FeedbackID string
	Author     string
	Moderator  string
	Status     models.Status
	DecidedAt  time.Time
}

func FromFeedback(f models.Feedback) Notification {
	n := Notification{
		FeedbackID: f.ID,
		Author:     f.Author,
		Moderator:  f.DecidedBy,
		Status:     f.Status,
	}
	if f.DecidedAt != nil {
		n.DecidedAt = *f.DecidedAt
	}
	return n
}

// Notifier delivers a notification. Implementations can be swapped without
// touching the service.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

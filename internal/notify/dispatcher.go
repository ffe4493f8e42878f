package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"feedback-backend/internal/metrics"
)

const defaultDeliveryTimeout = 10 * time.Second

// Dispatcher hands notifications to a background worker so the request that
// triggered them never waits on delivery. Every accepted notification is
// delivered exactly once; delivery errors are logged and dropped.
type Dispatcher struct {
	notifier Notifier
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	timeout  time.Duration

	queue  chan Notification
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(notifier Notifier, log logrus.FieldLogger, m *metrics.Metrics, queueSize int) *Dispatcher {
	if queueSize < 0 {
		queueSize = 0
	}
	d := &Dispatcher{
		notifier: notifier,
		log:      log,
		metrics:  m,
		timeout:  defaultDeliveryTimeout,
		queue:    make(chan Notification, queueSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

// Enqueue never blocks. When the buffer is full the notification gets its own
// goroutine; after Close it is delivered inline.
func (d *Dispatcher) Enqueue(n Notification) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.deliver(n)
		return
	}
	select {
	case d.queue <- n:
	default:
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.deliver(n)
		}()
	}
	d.mu.RUnlock()
}

// Close stops intake and waits for pending notifications, or until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.safeNotify(ctx, n)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"action":      "notification",
			"actor":       n.Moderator,
			"outcome":     "failed",
			"feedback_id": n.FeedbackID,
			"status":      n.Status,
		}).WithError(err).Warn("notification delivery failed")
		d.metrics.ObserveNotification(false)
		return
	}
	d.metrics.ObserveNotification(true)
}

func (d *Dispatcher) safeNotify(ctx context.Context, n Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	return d.notifier.Notify(ctx, n)
}

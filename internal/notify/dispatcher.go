package notify

import (
	"context"

	"stockroom/internal/domain"
	"stockroom/internal/log"
	"stockroom/internal/metrics"
)

// Store persists notifications.
type Store interface {
	Create(n domain.NewNotification) (*domain.Notification, error)
}

// Pusher hands a stored notification to live clients.
type Pusher interface {
	Push(ctx context.Context, n *domain.Notification) error
}

// Dispatcher writes a notification and then pushes it. The write is the
// source of truth; a failed push is logged and never undoes it.
type Dispatcher struct {
	store  Store
	pusher Pusher
	m      *metrics.Metrics
}

func NewDispatcher(store Store, pusher Pusher, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{store: store, pusher: pusher, m: m}
}

func (d *Dispatcher) Dispatch(ctx context.Context, in domain.NewNotification) (*domain.Notification, error) {
	n, err := d.store.Create(in)
	if err != nil {
		return nil, err
	}
	d.Deliver(ctx, n)
	return n, nil
}

// Deliver pushes an already stored notification, best effort.
func (d *Dispatcher) Deliver(ctx context.Context, n *domain.Notification) {
	if d.pusher == nil {
		return
	}
	if err := d.pusher.Push(ctx, n); err != nil {
		d.m.Pushes.WithLabelValues("failed").Inc()
		log.Warn(nil, "notification.push_failed", err, map[string]any{
			"notification_id": n.ID, "user_id": n.UserID, "type": n.Type,
		})
		return
	}
	d.m.Pushes.WithLabelValues("ok").Inc()
}

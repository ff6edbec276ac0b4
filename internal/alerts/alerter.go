package alerts

import (
	"context"
	"fmt"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/log"
	"stockroom/internal/metrics"
)

// History answers whether an alert was already raised in a window.
type History interface {
	HasRecentAlert(t domain.NotificationType, itemID, userID int64, since time.Time) (bool, error)
}

// Dispatcher stores a notification and pushes it to live clients.
type Dispatcher interface {
	Dispatch(ctx context.Context, in domain.NewNotification) (*domain.Notification, error)
}

// Guard serialises evaluators across processes. Claim returns false when
// another evaluator already holds the (item, owner) slot for the window.
type Guard interface {
	Claim(ctx context.Context, itemID, userID int64, ttl time.Duration) (bool, error)
	Release(ctx context.Context, itemID, userID int64)
}

// Alerter raises at most one low_stock notification per (item, owner) per window.
// Both the inventory write path and the sweep go through Evaluate.
type Alerter struct {
	history  History
	dispatch Dispatcher
	guard    Guard
	window   time.Duration
	clock    func() time.Time
	m        *metrics.Metrics
}

type Option func(*Alerter)

// WithGuard adds a cross-process claim on top of the store lookup.
func WithGuard(g Guard) Option { return func(a *Alerter) { a.guard = g } }

func WithClock(clock func() time.Time) Option { return func(a *Alerter) { a.clock = clock } }

func NewAlerter(history History, dispatch Dispatcher, window time.Duration, m *metrics.Metrics, opts ...Option) *Alerter {
	a := &Alerter{history: history, dispatch: dispatch, window: window, clock: time.Now, m: m}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Message is the text of a low-stock notification.
func Message(it domain.InventoryItem) string {
	return fmt.Sprintf("%s is running low (%d units remaining)", it.Name, it.Quantity)
}

// Evaluate checks one item and raises an alert for its owner when it is low on
// stock and no alert exists inside the window. It reports whether one was created.
func (a *Alerter) Evaluate(ctx context.Context, it domain.InventoryItem) (bool, error) {
	if !it.IsLowStock() {
		return false, nil
	}
	owner := it.CreatedBy
	since := a.clock().Add(-a.window)
	recent, err := a.history.HasRecentAlert(domain.NotificationLowStock, it.ID, owner, since)
	if err != nil {
		a.m.AlertErrors.Inc()
		return false, fmt.Errorf("check recent alert for item %d: %w", it.ID, err)
	}
	if recent {
		a.m.AlertsSuppressed.WithLabelValues("window").Inc()
		return false, nil
	}

	if a.guard != nil {
		ok, err := a.guard.Claim(ctx, it.ID, owner, a.window)
		switch {
		case err != nil:
			// the store check above still holds; carry on without the claim
			log.Warn(nil, "alert.guard_unavailable", err, map[string]any{"inventory_id": it.ID})
		case !ok:
			a.m.AlertsSuppressed.WithLabelValues("claimed").Inc()
			return false, nil
		}
	}

	itemID := it.ID
	n, err := a.dispatch.Dispatch(ctx, domain.NewNotification{
		Type:        domain.NotificationLowStock,
		Message:     Message(it),
		UserID:      owner,
		InventoryID: &itemID,
	})
	if err != nil {
		if a.guard != nil {
			a.guard.Release(ctx, it.ID, owner)
		}
		a.m.AlertErrors.Inc()
		return false, fmt.Errorf("store alert for item %d: %w", it.ID, err)
	}
	a.m.AlertsCreated.Inc()
	log.Info(nil, "alert.low_stock", map[string]any{
		"notification_id": n.ID, "inventory_id": it.ID, "user_id": owner, "quantity": it.Quantity,
	})
	return true, nil
}

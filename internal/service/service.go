package service

import (
	"context"

	"stockroom/internal/domain"
	"stockroom/internal/metrics"
	"stockroom/internal/notification"
)

// Notifier records audit notifications
type Notifier interface {
	Add(ctx context.Context, ev notification.Event, actor domain.Actor) (domain.Notification, error)
}

// Refresher republishes a live query after its documents changed
type Refresher interface {
	Refresh(ctx context.Context)
}

// Live query names tracked in the subscription registry
const (
	QueryBatches  = "batchInventory:createdAt desc"
	QueryProducts = "products:createdAt desc"
)

type countingNotifier struct {
	next    Notifier
	metrics *metrics.Metrics
}

// CountingNotifier counts every recorded notification by type
func CountingNotifier(next Notifier, m *metrics.Metrics) Notifier {
	return &countingNotifier{next: next, metrics: m}
}

func (n *countingNotifier) Add(ctx context.Context, ev notification.Event, actor domain.Actor) (domain.Notification, error) {
	out, err := n.next.Add(ctx, ev, actor)
	if err == nil {
		n.metrics.ObserveNotification(ev.Type)
	}
	return out, err
}

func values[T any](in []*T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = *v
	}
	return out
}

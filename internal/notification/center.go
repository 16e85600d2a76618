// Package notification implements the notification center: a bounded,
// newest-first audit list with read state, filters and a change feed.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/feed"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCapacity is the number of notifications retained
const DefaultCapacity = 100

// Filter selects notifications in List: FilterAll, FilterUnread or a category name
type Filter string

const (
	FilterAll    Filter = "all"
	FilterUnread Filter = "unread"
)

// ParseFilter validates a filter value; empty means FilterAll
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterUnread:
		return f, nil
	case Filter(domain.CategoryInventory), Filter(domain.CategoryAdministration),
		Filter(domain.CategoryAlert), Filter(domain.CategoryOrders):
		return f, nil
	}
	return "", fmt.Errorf("unknown notification filter %q", s)
}

func (f Filter) match(n domain.Notification) bool {
	switch f {
	case "", FilterAll:
		return true
	case FilterUnread:
		return !n.Read
	}
	return string(n.Category) == string(f)
}

// Options configures a Center
type Options struct {
	Capacity int
	Enabled  bool
	Mirror   Mirror
}

// Center is the notification state container. It is safe for concurrent use.
type Center struct {
	store    Store
	mirror   Mirror
	logger   *zap.Logger
	capacity int
	hub      *feed.Hub[feed.Snapshot[domain.Notification]]
	now      func() time.Time

	mu      sync.RWMutex
	enabled bool
}

// NewCenter creates a notification center on store
func NewCenter(store Store, logger *zap.Logger, opts Options) *Center {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Center{
		store:    store,
		mirror:   opts.Mirror,
		logger:   logger,
		capacity: capacity,
		hub:      feed.NewHub[feed.Snapshot[domain.Notification]](),
		now:      time.Now,
		enabled:  opts.Enabled,
	}
}

// Add records an event attributed to actor
func (c *Center) Add(ctx context.Context, ev Event, actor domain.Actor) (domain.Notification, error) {
	n := domain.Notification{
		ID:        uuid.New().String(),
		Type:      ev.Type,
		Title:     ev.Title,
		Message:   ev.Message,
		Category:  ev.Category,
		Priority:  ev.Priority,
		Icon:      ev.Icon,
		Timestamp: c.now().UTC(),
		UserID:    actor.UserID(),
		UserName:  actor.Label(),
		UserEmail: actor.Email,
	}

	if err := c.store.Push(ctx, n, c.capacity); err != nil {
		return domain.Notification{}, fmt.Errorf("failed to add notification: %w", err)
	}

	c.logger.Debug("Notification added",
		zap.String("notification_id", n.ID),
		zap.String("type", n.Type),
		zap.String("user_id", n.UserID),
	)

	if c.mirror != nil && c.Enabled() {
		if err := c.mirror.Publish(ctx, n); err != nil {
			c.logger.Warn("Failed to mirror notification",
				zap.Error(err),
				zap.String("notification_id", n.ID),
			)
		}
	}

	c.refresh(ctx)
	return n, nil
}

// List returns notifications matching filter, newest first
func (c *Center) List(ctx context.Context, filter Filter) ([]domain.Notification, error) {
	all, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(all))
	for _, n := range all {
		if filter.match(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

// UnreadCount returns the number of unread notifications
func (c *Center) UnreadCount(ctx context.Context) (int, error) {
	unread, err := c.List(ctx, FilterUnread)
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}

func (c *Center) MarkAsRead(ctx context.Context, id string) error {
	if err := c.store.MarkRead(ctx, id); err != nil {
		return err
	}
	c.refresh(ctx)
	return nil
}

func (c *Center) MarkAllAsRead(ctx context.Context) error {
	if err := c.store.MarkAllRead(ctx); err != nil {
		return err
	}
	c.refresh(ctx)
	return nil
}

func (c *Center) Remove(ctx context.Context, id string) error {
	if err := c.store.Remove(ctx, id); err != nil {
		return err
	}
	c.refresh(ctx)
	return nil
}

func (c *Center) ClearAll(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.refresh(ctx)
	return nil
}

// Enabled reports whether new notifications are mirrored
func (c *Center) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

func (c *Center) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

// Toggle flips the enabled flag and returns the new value
func (c *Center) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = !c.enabled
	return c.enabled
}

// Subscribe streams the full notification list after every change
func (c *Center) Subscribe(ctx context.Context) (<-chan feed.Snapshot[domain.Notification], feed.CancelFunc) {
	if _, ok := c.hub.Last(); !ok {
		c.refresh(ctx)
	}
	return c.hub.Subscribe()
}

// Close ends every subscription
func (c *Center) Close() {
	c.hub.Close()
}

func (c *Center) refresh(ctx context.Context) {
	items, err := c.store.List(ctx)
	if err != nil {
		c.logger.Error("Failed to load notifications", zap.Error(err))
	}
	c.hub.Publish(feed.Snapshot[domain.Notification]{Items: items, Err: err, At: c.now().UTC()})
}

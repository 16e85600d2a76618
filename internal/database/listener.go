package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Channels notified by the change triggers
const (
	ChannelProducts = "products_changed"
	ChannelBatches  = "batch_inventory_changed"
)

// OpResync is delivered to every handler after the listener (re)connects,
// since notifications sent while disconnected are lost.
const OpResync = "RESYNC"

// Change is the payload of a document change notification
type Change struct {
	Channel string `json:"-"`
	Op      string `json:"op"`
	ID      string `json:"id"`
}

// ChangeHandler reacts to a change on one channel
type ChangeHandler func(ctx context.Context, change Change)

// Listener holds a dedicated connection LISTENing on the change channels
type Listener struct {
	dsn        string
	logger     *zap.Logger
	handlers   map[string]ChangeHandler
	retryDelay time.Duration
	maxDelay   time.Duration
}

// NewListener creates a listener for dsn. Nothing connects until Run.
func NewListener(dsn string, logger *zap.Logger) *Listener {
	return &Listener{
		dsn:        dsn,
		logger:     logger,
		handlers:   make(map[string]ChangeHandler),
		retryDelay: time.Second,
		maxDelay:   30 * time.Second,
	}
}

// Handle registers h for channel. Must be called before Run.
func (l *Listener) Handle(channel string, h ChangeHandler) {
	l.handlers[channel] = h
}

// Run listens until ctx is canceled, reconnecting after connection failures
func (l *Listener) Run(ctx context.Context) error {
	if len(l.handlers) == 0 {
		return errors.New("listener has no channels")
	}

	delay := l.retryDelay
	for {
		connected, err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			delay = l.retryDelay
		}
		l.logger.Warn("Change listener disconnected, retrying",
			zap.Error(err),
			zap.Duration("retry_in", delay),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, l.maxDelay)
	}
}

// listen reports whether it got as far as LISTENing before failing
func (l *Listener) listen(ctx context.Context) (bool, error) {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return false, fmt.Errorf("failed to connect listener: %w", err)
	}
	defer conn.Close(context.Background())

	channels := make([]string, 0, len(l.handlers))
	for ch := range l.handlers {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	for _, ch := range channels {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ch}.Sanitize()); err != nil {
			return false, fmt.Errorf("failed to listen on %s: %w", ch, err)
		}
	}
	l.logger.Info("Change listener connected", zap.Strings("channels", channels))

	for _, ch := range channels {
		l.handlers[ch](ctx, Change{Channel: ch, Op: OpResync})
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, err
		}

		h, ok := l.handlers[n.Channel]
		if !ok {
			continue
		}

		change := Change{Channel: n.Channel}
		if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
			l.logger.Warn("Malformed change notification",
				zap.String("channel", n.Channel),
				zap.String("payload", n.Payload),
			)
		}
		h(ctx, change)
	}
}

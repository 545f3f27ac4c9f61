package tally

import (
	"context"
	"log/slog"

	"github.com/campusattend/attendance/internal/attendance"
	"github.com/campusattend/attendance/internal/metrics"
	"github.com/campusattend/attendance/internal/queue"
	"github.com/campusattend/attendance/internal/session"
)

// Consumer applies attendance and session events from a queue to a Store.
type Consumer struct {
	store Store
	log   *slog.Logger
}

// NewConsumer builds a consumer writing to store.
func NewConsumer(store Store, log *slog.Logger) *Consumer {
	return &Consumer{store: store, log: log}
}

// Run drains q until ctx ends.
func (c *Consumer) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	c.log.Info("tally consumer started")
	for msg := range messages {
		c.Apply(ctx, msg)
	}
	c.log.Info("tally consumer stopped")
	return nil
}

// Apply handles one message. Unknown or undecodable messages are logged
// and skipped.
func (c *Consumer) Apply(ctx context.Context, msg queue.Message) {
	var delta int64
	switch msg.Type {
	case attendance.EventRecorded:
		delta = 1
	case attendance.EventRemoved:
		delta = -1
	case session.EventDeleted:
		c.reset(ctx, msg)
		return
	default:
		c.log.Debug("skipping message", "type", msg.Type)
		return
	}
	evt, err := attendance.DecodeEvent(msg)
	if err != nil {
		c.log.Warn("undecodable attendance event", "type", msg.Type, "err", err)
		return
	}
	if err := c.store.Add(ctx, evt.SessionID, evt.Status, delta); err != nil {
		c.log.Error("apply attendance event failed", "type", msg.Type, "record_id", evt.RecordID, "err", err)
		return
	}
	metrics.EventsApplied.WithLabelValues(msg.Type).Inc()
}

func (c *Consumer) reset(ctx context.Context, msg queue.Message) {
	evt, err := session.DecodeEvent(msg)
	if err != nil || evt.SessionID == "" {
		c.log.Warn("undecodable session event", "type", msg.Type, "err", err)
		return
	}
	if err := c.store.Reset(ctx, evt.SessionID); err != nil {
		c.log.Error("reset live tally failed", "session_id", evt.SessionID, "err", err)
		return
	}
	metrics.EventsApplied.WithLabelValues(msg.Type).Inc()
}

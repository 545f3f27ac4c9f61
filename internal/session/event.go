package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/campusattend/attendance/internal/metrics"
	"github.com/campusattend/attendance/internal/queue"
)

// EventDeleted is published once per removed session, whether it was
// deleted on its own or together with its course.
const EventDeleted = "session.deleted"

const publishTimeout = 500 * time.Millisecond

// Event is the body of a session lifecycle message.
type Event struct {
	SessionID string    `json:"session_id"`
	CourseID  string    `json:"course_id"`
	At        time.Time `json:"at"`
}

// Message wraps e for the queue.
func (e Event) Message(eventType string) (queue.Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return queue.Message{}, err
	}
	return queue.Message{Type: eventType, Body: body}, nil
}

// DecodeEvent reads an Event back out of a queue message.
func DecodeEvent(msg queue.Message) (Event, error) {
	var e Event
	err := json.Unmarshal(msg.Body, &e)
	return e, err
}

// Announcer queues session lifecycle events. The write that triggered an
// event has already committed, so failures are logged and counted only.
type Announcer struct {
	events queue.Publisher
	log    *slog.Logger
}

// NewAnnouncer publishes to events. A nil publisher drops everything.
func NewAnnouncer(events queue.Publisher, log *slog.Logger) *Announcer {
	return &Announcer{events: events, log: log}
}

// Deleted announces the removal of each listed session of courseID.
func (a *Announcer) Deleted(ctx context.Context, courseID string, sessionIDs []string, at time.Time) {
	if a == nil || a.events == nil {
		return
	}
	for _, id := range sessionIDs {
		msg, err := Event{SessionID: id, CourseID: courseID, At: at.UTC()}.Message(EventDeleted)
		if err == nil {
			pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
			err = a.events.Publish(pctx, msg)
			cancel()
		}
		if err != nil {
			metrics.EventsPublishFailed.Inc()
			a.log.Warn("publish session event failed", "type", EventDeleted, "session_id", id, "err", err)
		}
	}
}

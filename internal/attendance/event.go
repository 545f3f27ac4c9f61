package attendance

import (
	"context"
	"encoding/json"
	"time"

	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/queue"
)

// Event types published after a successful write.
const (
	EventRecorded = "attendance.recorded"
	EventRemoved  = "attendance.removed"
)

// Event is the body of an attendance queue message.
type Event struct {
	RecordID  string                 `json:"record_id"`
	SessionID string                 `json:"session_id"`
	CourseID  string                 `json:"course_id"`
	StudentID string                 `json:"student_id"`
	Status    model.AttendanceStatus `json:"status"`
	At        time.Time              `json:"at"`
}

// Publisher is the subset of queue.Queue the ledger needs.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
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

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.Message) error { return nil }

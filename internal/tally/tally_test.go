package tally

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/campusattend/attendance/internal/attendance"
	"github.com/campusattend/attendance/internal/logger"
	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/queue"
	"github.com/campusattend/attendance/internal/session"
)

func event(t *testing.T, typ, sessionID string, status model.AttendanceStatus) queue.Message {
	t.Helper()
	msg, err := attendance.Event{RecordID: uuid.NewString(), SessionID: sessionID, StudentID: "s", Status: status, At: time.Now()}.Message(typ)
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	return msg
}

func TestConsumerAppliesEvents(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := NewConsumer(store, logger.Discard())

	c.Apply(ctx, event(t, attendance.EventRecorded, "s1", model.StatusPresent))
	c.Apply(ctx, event(t, attendance.EventRecorded, "s1", model.StatusPresent))
	c.Apply(ctx, event(t, attendance.EventRecorded, "s1", model.StatusLate))
	c.Apply(ctx, event(t, attendance.EventRemoved, "s1", model.StatusPresent))
	c.Apply(ctx, queue.Message{Type: "something.else", Body: json.RawMessage(`{}`)})
	c.Apply(ctx, queue.Message{Type: attendance.EventRecorded, Body: json.RawMessage(`not json`)})

	got, _ := store.Get(ctx, "s1")
	want := Counts{SessionID: "s1", Present: 1, Late: 1, Total: 2}
	if got != want {
		t.Fatalf("counts = %+v, want %+v", got, want)
	}
	if empty, _ := store.Get(ctx, "s2"); empty != (Counts{SessionID: "s2"}) {
		t.Fatalf("unknown session = %+v", empty)
	}
}

func TestConsumerResetsDeletedSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := NewConsumer(store, logger.Discard())

	c.Apply(ctx, event(t, attendance.EventRecorded, "s1", model.StatusPresent))
	c.Apply(ctx, event(t, attendance.EventRecorded, "s2", model.StatusLate))
	deleted, err := session.Event{SessionID: "s1", CourseID: "c1", At: time.Now()}.Message(session.EventDeleted)
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	c.Apply(ctx, deleted)
	c.Apply(ctx, queue.Message{Type: session.EventDeleted, Body: json.RawMessage(`{}`)})

	if got, _ := store.Get(ctx, "s1"); got != (Counts{SessionID: "s1"}) {
		t.Fatalf("deleted session counts = %+v", got)
	}
	if got, _ := store.Get(ctx, "s2"); got.Late != 1 || got.Total != 1 {
		t.Fatalf("other session counts = %+v", got)
	}
}

func TestConsumerRunDrainsQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(8)
	store := NewMemoryStore()
	done := make(chan error, 1)
	go func() { done <- NewConsumer(store, logger.Discard()).Run(ctx, q) }()

	for i := 0; i < 3; i++ {
		if err := q.Publish(ctx, event(t, attendance.EventRecorded, "s1", model.StatusAbsent)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := store.Get(ctx, "s1")
		if got.Absent == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("counts = %+v after deadline", got)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestMemoryStoreRejectsUnknownStatus(t *testing.T) {
	if err := NewMemoryStore().Add(context.Background(), "s1", "excused", 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	store := NewRedisStore(client)
	sessionID := uuid.NewString()
	t.Cleanup(func() { _ = store.Reset(context.Background(), sessionID) })

	for _, s := range []model.AttendanceStatus{model.StatusPresent, model.StatusPresent, model.StatusLate} {
		if err := store.Add(ctx, sessionID, s, 1); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := store.Add(ctx, sessionID, model.StatusPresent, -1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err := store.Get(ctx, sessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := Counts{SessionID: sessionID, Present: 1, Late: 1, Total: 2}
	if got != want {
		t.Fatalf("counts = %+v, want %+v", got, want)
	}

	if err := store.Reset(ctx, sessionID); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n, _ := client.Exists(ctx, "tally:session:"+sessionID).Result(); n != 0 {
		t.Fatal("hash survived Reset")
	}
	if got, _ := store.Get(ctx, sessionID); got != (Counts{SessionID: sessionID}) {
		t.Fatalf("counts after Reset = %+v", got)
	}
}

// Package tally keeps per-session live counters fed by attendance events.
// Counters are advisory; the ledger stays the source of truth.
package tally

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/campusattend/attendance/internal/model"
)

// Counts is the live view of one session.
type Counts struct {
	SessionID string `json:"session_id"`
	Present   int64  `json:"present"`
	Late      int64  `json:"late"`
	Absent    int64  `json:"absent"`
	Total     int64  `json:"total"`
}

// Store holds live counters.
type Store interface {
	// Add moves the counter for status by delta and the total with it.
	Add(ctx context.Context, sessionID string, status model.AttendanceStatus, delta int64) error
	Get(ctx context.Context, sessionID string) (Counts, error)
	// Reset drops the counters of a deleted session.
	Reset(ctx context.Context, sessionID string) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]*Counts
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]*Counts)}
}

func (m *MemoryStore) Add(_ context.Context, sessionID string, status model.AttendanceStatus, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counts[sessionID]
	if !ok {
		c = &Counts{SessionID: sessionID}
		m.counts[sessionID] = c
	}
	switch status {
	case model.StatusPresent:
		c.Present += delta
	case model.StatusLate:
		c.Late += delta
	case model.StatusAbsent:
		c.Absent += delta
	default:
		return fmt.Errorf("tally: unknown status %q", status)
	}
	c.Total += delta
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counts[sessionID]; ok {
		return *c, nil
	}
	return Counts{SessionID: sessionID}, nil
}

func (m *MemoryStore) Reset(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, sessionID)
	return nil
}

// RedisStore keeps one hash per session: tally:session:<id>.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "tally:session:"}
}

func (r *RedisStore) key(sessionID string) string { return r.prefix + sessionID }

func (r *RedisStore) Add(ctx context.Context, sessionID string, status model.AttendanceStatus, delta int64) error {
	if !status.Valid() {
		return fmt.Errorf("tally: unknown status %q", status)
	}
	key := r.key(sessionID)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HIncrBy(ctx, key, string(status), delta)
		p.HIncrBy(ctx, key, "total", delta)
		return nil
	})
	return err
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (Counts, error) {
	fields, err := r.client.HGetAll(ctx, r.key(sessionID)).Result()
	if err != nil {
		return Counts{}, err
	}
	c := Counts{SessionID: sessionID}
	for name, dst := range map[string]*int64{
		string(model.StatusPresent): &c.Present,
		string(model.StatusLate):    &c.Late,
		string(model.StatusAbsent):  &c.Absent,
		"total":                     &c.Total,
	} {
		v, ok := fields[name]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Counts{}, fmt.Errorf("tally: field %s: %w", name, err)
		}
		*dst = n
	}
	return c, nil
}

func (r *RedisStore) Reset(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

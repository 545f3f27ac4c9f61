package repository

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/campusattend/attendance/internal/model"
)

// attendanceShards bounds lock contention: check-ins for different
// (session, student) pairs only collide when they hash to the same shard.
const attendanceShards = 64

type pairKey struct {
	sessionID string
	studentID string
}

type attendanceShard struct {
	mutex sync.RWMutex
	rows  map[pairKey]model.AttendanceRecord
}

type memoryAttendanceRepository struct {
	shards [attendanceShards]attendanceShard
	// byID maps record id to its pair key.
	byID sync.Map

	sessions *memorySessionRepository
}

func newMemoryAttendanceRepository() *memoryAttendanceRepository {
	r := &memoryAttendanceRepository{}
	for i := range r.shards {
		r.shards[i].rows = make(map[pairKey]model.AttendanceRecord)
	}
	return r
}

func (r *memoryAttendanceRepository) shard(key pairKey) *attendanceShard {
	h := fnv.New32a()
	h.Write([]byte(key.sessionID))
	h.Write([]byte{0})
	h.Write([]byte(key.studentID))
	return &r.shards[h.Sum32()%attendanceShards]
}

func (r *memoryAttendanceRepository) Create(ctx context.Context, record model.AttendanceRecord) error {
	// Holding the session read lock keeps a concurrent session delete from
	// running between the parent check and the insert.
	r.sessions.mutex.RLock()
	defer r.sessions.mutex.RUnlock()
	if _, exists := r.sessions.sessions[record.SessionID]; !exists {
		return ErrNotFound
	}

	key := pairKey{record.SessionID, record.StudentID}
	s := r.shard(key)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.rows[key]; exists {
		return ErrDuplicate
	}
	if _, loaded := r.byID.LoadOrStore(record.ID, key); loaded {
		return ErrDuplicate
	}
	s.rows[key] = record
	return nil
}

func (r *memoryAttendanceRepository) Get(ctx context.Context, sessionID, studentID string) (model.AttendanceRecord, error) {
	key := pairKey{sessionID, studentID}
	s := r.shard(key)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	record, exists := s.rows[key]
	if !exists {
		return model.AttendanceRecord{}, ErrNotFound
	}
	return record, nil
}

func (r *memoryAttendanceRepository) GetByID(ctx context.Context, id string) (model.AttendanceRecord, error) {
	v, ok := r.byID.Load(id)
	if !ok {
		return model.AttendanceRecord{}, ErrNotFound
	}
	key := v.(pairKey)
	record, err := r.Get(ctx, key.sessionID, key.studentID)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	// The pair may have been removed and re-created since byID was read.
	if record.ID != id {
		return model.AttendanceRecord{}, ErrNotFound
	}
	return record, nil
}

func (r *memoryAttendanceRepository) Delete(ctx context.Context, sessionID, studentID string) error {
	key := pairKey{sessionID, studentID}
	s := r.shard(key)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, exists := s.rows[key]
	if !exists {
		return ErrNotFound
	}
	delete(s.rows, key)
	r.byID.Delete(record.ID)
	return nil
}

func (r *memoryAttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	return r.collect(func(k pairKey) bool { return k.sessionID == sessionID }), nil
}

func (r *memoryAttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]model.AttendanceRecord, error) {
	return r.collect(func(k pairKey) bool { return k.studentID == studentID }), nil
}

func (r *memoryAttendanceRepository) ListByCourseStudent(ctx context.Context, courseID, studentID string) ([]model.AttendanceRecord, error) {
	sessionIDs := r.sessions.idsForCourse(courseID)
	return r.collect(func(k pairKey) bool {
		return k.studentID == studentID && sessionIDs[k.sessionID]
	}), nil
}

func (r *memoryAttendanceRepository) collect(keep func(pairKey) bool) []model.AttendanceRecord {
	out := make([]model.AttendanceRecord, 0)
	for i := range r.shards {
		s := &r.shards[i]
		s.mutex.RLock()
		for key, record := range s.rows {
			if keep(key) {
				out = append(out, record)
			}
		}
		s.mutex.RUnlock()
	}
	sortRecords(out)
	return out
}

func (r *memoryAttendanceRepository) deleteBySession(sessionID string) {
	for i := range r.shards {
		s := &r.shards[i]
		s.mutex.Lock()
		for key, record := range s.rows {
			if key.sessionID == sessionID {
				delete(s.rows, key)
				r.byID.Delete(record.ID)
			}
		}
		s.mutex.Unlock()
	}
}

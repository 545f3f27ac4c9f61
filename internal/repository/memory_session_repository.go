package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/campusattend/attendance/internal/model"
)

type memorySessionRepository struct {
	sessions map[string]model.Session
	byQRCode map[string]string
	mutex    sync.RWMutex

	attendance *memoryAttendanceRepository
}

func newMemorySessionRepository(attendance *memoryAttendanceRepository) *memorySessionRepository {
	return &memorySessionRepository{
		sessions:   make(map[string]model.Session),
		byQRCode:   make(map[string]string),
		attendance: attendance,
	}
}

func (r *memorySessionRepository) Create(ctx context.Context, session model.Session) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return ErrDuplicate
	}
	if _, exists := r.byQRCode[session.QRCode]; exists {
		return ErrDuplicate
	}
	r.sessions[session.ID] = session
	r.byQRCode[session.QRCode] = session.ID
	return nil
}

func (r *memorySessionRepository) GetByID(ctx context.Context, id string) (model.Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return model.Session{}, ErrNotFound
	}
	return session, nil
}

func (r *memorySessionRepository) GetByQRCode(ctx context.Context, qrCode string) (model.Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.byQRCode[qrCode]
	if !exists {
		return model.Session{}, ErrNotFound
	}
	return r.sessions[id], nil
}

func (r *memorySessionRepository) ListByCourse(ctx context.Context, courseID string) ([]model.Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]model.Session, 0)
	for _, s := range r.sessions {
		if s.CourseID == courseID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *memorySessionRepository) SetActive(ctx context.Context, id string, active bool) (model.Session, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return model.Session{}, ErrNotFound
	}
	session.IsActive = active
	r.sessions[id] = session
	return session, nil
}

func (r *memorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	session, exists := r.sessions[id]
	if !exists {
		r.mutex.Unlock()
		return ErrNotFound
	}
	delete(r.sessions, id)
	delete(r.byQRCode, session.QRCode)
	r.mutex.Unlock()

	r.attendance.deleteBySession(id)
	return nil
}

func (r *memorySessionRepository) deleteByCourse(courseID string) {
	r.mutex.Lock()
	var removed []string
	for id, s := range r.sessions {
		if s.CourseID == courseID {
			delete(r.sessions, id)
			delete(r.byQRCode, s.QRCode)
			removed = append(removed, id)
		}
	}
	r.mutex.Unlock()

	for _, id := range removed {
		r.attendance.deleteBySession(id)
	}
}

func (r *memorySessionRepository) idsForCourse(courseID string) map[string]bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make(map[string]bool)
	for id, s := range r.sessions {
		if s.CourseID == courseID {
			out[id] = true
		}
	}
	return out
}

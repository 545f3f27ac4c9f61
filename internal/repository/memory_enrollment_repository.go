package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/campusattend/attendance/internal/model"
)

type enrollmentKey struct {
	courseID  string
	studentID string
}

type memoryEnrollmentRepository struct {
	rows  map[enrollmentKey]model.Enrollment
	mutex sync.RWMutex
}

func newMemoryEnrollmentRepository() *memoryEnrollmentRepository {
	return &memoryEnrollmentRepository{rows: make(map[enrollmentKey]model.Enrollment)}
}

func (r *memoryEnrollmentRepository) Create(ctx context.Context, enrollment model.Enrollment) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := enrollmentKey{enrollment.CourseID, enrollment.StudentID}
	if _, exists := r.rows[key]; exists {
		return ErrDuplicate
	}
	r.rows[key] = enrollment
	return nil
}

func (r *memoryEnrollmentRepository) Delete(ctx context.Context, courseID, studentID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := enrollmentKey{courseID, studentID}
	if _, exists := r.rows[key]; !exists {
		return ErrNotFound
	}
	delete(r.rows, key)
	return nil
}

func (r *memoryEnrollmentRepository) Exists(ctx context.Context, courseID, studentID string) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.rows[enrollmentKey{courseID, studentID}]
	return exists, nil
}

func (r *memoryEnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]model.Enrollment, 0)
	for key, e := range r.rows {
		if key.courseID == courseID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (r *memoryEnrollmentRepository) coursesOf(studentID string) map[string]bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make(map[string]bool)
	for key := range r.rows {
		if key.studentID == studentID {
			out[key.courseID] = true
		}
	}
	return out
}

func (r *memoryEnrollmentRepository) deleteByCourse(courseID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for key := range r.rows {
		if key.courseID == courseID {
			delete(r.rows, key)
		}
	}
}

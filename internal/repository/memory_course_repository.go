package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/campusattend/attendance/internal/model"
)

type memoryCourseRepository struct {
	courses map[string]model.Course
	byCode  map[string]string
	mutex   sync.RWMutex

	sessions    *memorySessionRepository
	enrollments *memoryEnrollmentRepository
}

func newMemoryCourseRepository(sessions *memorySessionRepository, enrollments *memoryEnrollmentRepository) *memoryCourseRepository {
	return &memoryCourseRepository{
		courses:     make(map[string]model.Course),
		byCode:      make(map[string]string),
		sessions:    sessions,
		enrollments: enrollments,
	}
}

func (r *memoryCourseRepository) Create(ctx context.Context, course model.Course) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.courses[course.ID]; exists {
		return ErrDuplicate
	}
	if _, exists := r.byCode[course.Code]; exists {
		return ErrDuplicate
	}
	r.courses[course.ID] = course
	r.byCode[course.Code] = course.ID
	return nil
}

func (r *memoryCourseRepository) GetByID(ctx context.Context, id string) (model.Course, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	course, exists := r.courses[id]
	if !exists {
		return model.Course{}, ErrNotFound
	}
	return course, nil
}

func (r *memoryCourseRepository) List(ctx context.Context) ([]model.Course, error) {
	return r.filter(func(model.Course) bool { return true }), nil
}

func (r *memoryCourseRepository) ListByInstructor(ctx context.Context, instructorID string) ([]model.Course, error) {
	return r.filter(func(c model.Course) bool { return c.InstructorID == instructorID }), nil
}

func (r *memoryCourseRepository) ListByStudent(ctx context.Context, studentID string) ([]model.Course, error) {
	enrolled := r.enrollments.coursesOf(studentID)
	return r.filter(func(c model.Course) bool { return enrolled[c.ID] }), nil
}

func (r *memoryCourseRepository) Update(ctx context.Context, course model.Course) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, exists := r.courses[course.ID]
	if !exists {
		return ErrNotFound
	}
	if owner, taken := r.byCode[course.Code]; taken && owner != course.ID {
		return ErrDuplicate
	}
	delete(r.byCode, current.Code)
	r.byCode[course.Code] = course.ID
	r.courses[course.ID] = course
	return nil
}

func (r *memoryCourseRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	course, exists := r.courses[id]
	if !exists {
		r.mutex.Unlock()
		return ErrNotFound
	}
	delete(r.courses, id)
	delete(r.byCode, course.Code)
	r.mutex.Unlock()

	r.sessions.deleteByCourse(id)
	r.enrollments.deleteByCourse(id)
	return nil
}

func (r *memoryCourseRepository) filter(keep func(model.Course) bool) []model.Course {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]model.Course, 0)
	for _, c := range r.courses {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

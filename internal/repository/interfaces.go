package repository

import (
	"context"
	"errors"

	"github.com/campusattend/attendance/internal/model"
)

var (
	// ErrNotFound is returned when a lookup or delete matches no row.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned when a write would violate a uniqueness
	// constraint. Implementations must return it instead of a driver error.
	ErrDuplicate = errors.New("repository: duplicate")
)

type UserRepository interface {
	Create(ctx context.Context, user model.User) error
	GetByID(ctx context.Context, id string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateRole(ctx context.Context, id string, role model.Role) (model.User, error)
}

type CourseRepository interface {
	Create(ctx context.Context, course model.Course) error
	GetByID(ctx context.Context, id string) (model.Course, error)
	List(ctx context.Context) ([]model.Course, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]model.Course, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.Course, error)
	Update(ctx context.Context, course model.Course) error
	// Delete removes the course with its sessions, enrollments and those
	// sessions' attendance records.
	Delete(ctx context.Context, id string) error
}

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment model.Enrollment) error
	Delete(ctx context.Context, courseID, studentID string) error
	Exists(ctx context.Context, courseID, studentID string) (bool, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error)
}

type SessionRepository interface {
	// Create returns ErrDuplicate when the id or QR code is already taken.
	Create(ctx context.Context, session model.Session) error
	GetByID(ctx context.Context, id string) (model.Session, error)
	GetByQRCode(ctx context.Context, qrCode string) (model.Session, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.Session, error)
	// SetActive flips the flag in a single atomic write and returns the
	// updated row.
	SetActive(ctx context.Context, id string, active bool) (model.Session, error)
	Delete(ctx context.Context, id string) error
}

type AttendanceRepository interface {
	// Create is the authoritative guard for one record per
	// (session, student); a second insert returns ErrDuplicate. It returns
	// ErrNotFound when the session no longer exists.
	Create(ctx context.Context, record model.AttendanceRecord) error
	Get(ctx context.Context, sessionID, studentID string) (model.AttendanceRecord, error)
	GetByID(ctx context.Context, id string) (model.AttendanceRecord, error)
	Delete(ctx context.Context, sessionID, studentID string) error
	ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.AttendanceRecord, error)
	ListByCourseStudent(ctx context.Context, courseID, studentID string) ([]model.AttendanceRecord, error)
}

// Store bundles one implementation of every repository so services can be
// wired from a single value.
type Store struct {
	Users       UserRepository
	Courses     CourseRepository
	Enrollments EnrollmentRepository
	Sessions    SessionRepository
	Attendance  AttendanceRepository
}

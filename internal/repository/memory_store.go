package repository

import (
	"sort"

	"github.com/campusattend/attendance/internal/model"
)

// NewMemoryStore returns a Store backed by process memory. The repositories
// share state so that deletes cascade the same way the SQL schema does.
func NewMemoryStore() Store {
	attendance := newMemoryAttendanceRepository()
	enrollments := newMemoryEnrollmentRepository()
	sessions := newMemorySessionRepository(attendance)
	attendance.sessions = sessions
	courses := newMemoryCourseRepository(sessions, enrollments)
	return Store{
		Users:       newMemoryUserRepository(),
		Courses:     courses,
		Enrollments: enrollments,
		Sessions:    sessions,
		Attendance:  attendance,
	}
}

func sortRecords(records []model.AttendanceRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CheckedInAt.Equal(records[j].CheckedInAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CheckedInAt.Before(records[j].CheckedInAt)
	})
}

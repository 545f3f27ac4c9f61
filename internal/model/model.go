package model

import "time"

// Role is a user's coarse permission class.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid returns true when the role is a supported value.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is an entry in the identity directory.
type User struct {
	ID         string    `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Name       string    `db:"name" json:"name"`
	Role       Role      `db:"role" json:"role"`
	StudentID  *string   `db:"student_number" json:"student_id,omitempty"`
	Department *string   `db:"department" json:"department,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Course is owned by exactly one instructor.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Semester     string    `db:"semester" json:"semester"`
	Year         int       `db:"year" json:"year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Enrollment authorizes a student to check into a course's sessions.
type Enrollment struct {
	CourseID   string    `db:"course_id" json:"course_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// Session is one scheduled class meeting. QRCode is a bearer credential
// for check-in and must only be shown to course staff.
type Session struct {
	ID            string    `db:"id" json:"id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	Title         string    `db:"title" json:"title"`
	ScheduledDate string    `db:"scheduled_date" json:"scheduled_date"`
	StartTime     time.Time `db:"start_time" json:"start_time"`
	EndTime       time.Time `db:"end_time" json:"end_time"`
	QRCode        string    `db:"qr_code" json:"qr_code,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// CheckableAt reports whether check-in is open at t: the session must be
// active and t must fall inside [StartTime, EndTime].
func (s Session) CheckableAt(t time.Time) bool {
	if !s.IsActive {
		return false
	}
	return !t.Before(s.StartTime) && !t.After(s.EndTime)
}

// Redacted returns a copy without the QR token.
func (s Session) Redacted() Session {
	s.QRCode = ""
	return s
}

// AttendanceStatus is the recorded outcome for one student in one session.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusLate    AttendanceStatus = "late"
	StatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceRecord is unique per (SessionID, StudentID).
type AttendanceRecord struct {
	ID          string           `db:"id" json:"id"`
	SessionID   string           `db:"session_id" json:"session_id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	CheckedInAt time.Time        `db:"checked_in_at" json:"checked_in_at"`
	Status      AttendanceStatus `db:"status" json:"status"`
}

// SessionSummary aggregates a session's records against its roster.
type SessionSummary struct {
	SessionID  string `json:"session_id"`
	CourseID   string `json:"course_id"`
	Enrolled   int    `json:"enrolled"`
	Present    int    `json:"present"`
	Late       int    `json:"late"`
	Absent     int    `json:"absent"`
	Unrecorded int    `json:"unrecorded"`
}

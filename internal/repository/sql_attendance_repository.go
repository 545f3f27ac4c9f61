package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/campusattend/attendance/internal/model"
)

const attendanceColumns = `id, session_id, student_id, checked_in_at, status`

type sqlAttendanceRepository struct {
	db *sqlx.DB
}

// Create relies on uq_attendance_session_student; concurrent inserts for
// the same pair resolve to one row and ErrDuplicate for the rest.
func (r *sqlAttendanceRepository) Create(ctx context.Context, rec model.AttendanceRecord) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO attendance_records (id, session_id, student_id, checked_in_at, status)
		VALUES (?, ?, ?, ?, ?)
	`), rec.ID, rec.SessionID, rec.StudentID, rec.CheckedInAt, string(rec.Status))
	return translate(err)
}

func (r *sqlAttendanceRepository) Get(ctx context.Context, sessionID, studentID string) (model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.GetContext(ctx, &rec, r.db.Rebind(`
		SELECT `+attendanceColumns+` FROM attendance_records WHERE session_id = ? AND student_id = ?
	`), sessionID, studentID)
	return rec, translate(err)
}

func (r *sqlAttendanceRepository) GetByID(ctx context.Context, id string) (model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.GetContext(ctx, &rec, r.db.Rebind(`SELECT `+attendanceColumns+` FROM attendance_records WHERE id = ?`), id)
	return rec, translate(err)
}

func (r *sqlAttendanceRepository) Delete(ctx context.Context, sessionID, studentID string) error {
	return expectOne(r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM attendance_records WHERE session_id = ? AND student_id = ?
	`), sessionID, studentID))
}

func (r *sqlAttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	records := []model.AttendanceRecord{}
	err := r.db.SelectContext(ctx, &records, r.db.Rebind(`
		SELECT `+attendanceColumns+` FROM attendance_records
		WHERE session_id = ? ORDER BY checked_in_at, id
	`), sessionID)
	return records, translate(err)
}

func (r *sqlAttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]model.AttendanceRecord, error) {
	records := []model.AttendanceRecord{}
	err := r.db.SelectContext(ctx, &records, r.db.Rebind(`
		SELECT `+attendanceColumns+` FROM attendance_records
		WHERE student_id = ? ORDER BY checked_in_at, id
	`), studentID)
	return records, translate(err)
}

func (r *sqlAttendanceRepository) ListByCourseStudent(ctx context.Context, courseID, studentID string) ([]model.AttendanceRecord, error) {
	records := []model.AttendanceRecord{}
	err := r.db.SelectContext(ctx, &records, r.db.Rebind(`
		SELECT a.id, a.session_id, a.student_id, a.checked_in_at, a.status
		FROM attendance_records a
		JOIN sessions s ON s.id = a.session_id
		WHERE s.course_id = ? AND a.student_id = ?
		ORDER BY a.checked_in_at, a.id
	`), courseID, studentID)
	return records, translate(err)
}

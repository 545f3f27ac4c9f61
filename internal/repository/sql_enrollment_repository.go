package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/campusattend/attendance/internal/model"
)

type sqlEnrollmentRepository struct {
	db *sqlx.DB
}

func (r *sqlEnrollmentRepository) Create(ctx context.Context, enrollment model.Enrollment) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO enrollments (course_id, student_id, enrolled_at) VALUES (?, ?, ?)
	`), enrollment.CourseID, enrollment.StudentID, enrollment.EnrolledAt)
	return translate(err)
}

func (r *sqlEnrollmentRepository) Delete(ctx context.Context, courseID, studentID string) error {
	return expectOne(r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM enrollments WHERE course_id = ? AND student_id = ?
	`), courseID, studentID))
}

func (r *sqlEnrollmentRepository) Exists(ctx context.Context, courseID, studentID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`
		SELECT COUNT(1) FROM enrollments WHERE course_id = ? AND student_id = ?
	`), courseID, studentID)
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (r *sqlEnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error) {
	rows := []model.Enrollment{}
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT course_id, student_id, enrolled_at FROM enrollments
		WHERE course_id = ? ORDER BY student_id
	`), courseID)
	return rows, translate(err)
}

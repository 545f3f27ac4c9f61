package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/campusattend/attendance/internal/model"
)

const courseColumns = `id, code, name, instructor_id, semester, year, created_at`

type sqlCourseRepository struct {
	db *sqlx.DB
}

func (r *sqlCourseRepository) Create(ctx context.Context, course model.Course) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO courses (id, code, name, instructor_id, semester, year, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), course.ID, course.Code, course.Name, course.InstructorID, course.Semester, course.Year, course.CreatedAt)
	return translate(err)
}

func (r *sqlCourseRepository) GetByID(ctx context.Context, id string) (model.Course, error) {
	var course model.Course
	err := r.db.GetContext(ctx, &course, r.db.Rebind(`SELECT `+courseColumns+` FROM courses WHERE id = ?`), id)
	return course, translate(err)
}

func (r *sqlCourseRepository) List(ctx context.Context) ([]model.Course, error) {
	courses := []model.Course{}
	err := r.db.SelectContext(ctx, &courses, `SELECT `+courseColumns+` FROM courses ORDER BY code`)
	return courses, translate(err)
}

func (r *sqlCourseRepository) ListByInstructor(ctx context.Context, instructorID string) ([]model.Course, error) {
	courses := []model.Course{}
	err := r.db.SelectContext(ctx, &courses, r.db.Rebind(`
		SELECT `+courseColumns+` FROM courses WHERE instructor_id = ? ORDER BY code
	`), instructorID)
	return courses, translate(err)
}

func (r *sqlCourseRepository) ListByStudent(ctx context.Context, studentID string) ([]model.Course, error) {
	courses := []model.Course{}
	err := r.db.SelectContext(ctx, &courses, r.db.Rebind(`
		SELECT c.id, c.code, c.name, c.instructor_id, c.semester, c.year, c.created_at
		FROM courses c
		JOIN enrollments e ON e.course_id = c.id
		WHERE e.student_id = ?
		ORDER BY c.code
	`), studentID)
	return courses, translate(err)
}

func (r *sqlCourseRepository) Update(ctx context.Context, course model.Course) error {
	return expectOne(r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE courses SET code = ?, name = ?, semester = ?, year = ?
		WHERE id = ?
	`), course.Code, course.Name, course.Semester, course.Year, course.ID))
}

func (r *sqlCourseRepository) Delete(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM courses WHERE id = ?`), id))
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// schema is shared by Postgres and SQLite; {{ts}} is replaced with the
// dialect's timestamp type so both drivers scan into time.Time.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		email          TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		role           TEXT NOT NULL,
		student_number TEXT,
		department     TEXT,
		created_at     {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id            TEXT PRIMARY KEY,
		code          TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		instructor_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		semester      TEXT NOT NULL,
		year          INTEGER NOT NULL,
		created_at    {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_courses_instructor ON courses(instructor_id)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		course_id   TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		student_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		enrolled_at {{ts}} NOT NULL,
		PRIMARY KEY (course_id, student_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_enrollments_student ON enrollments(student_id)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id             TEXT PRIMARY KEY,
		course_id      TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		title          TEXT NOT NULL,
		scheduled_date TEXT NOT NULL,
		start_time     {{ts}} NOT NULL,
		end_time       {{ts}} NOT NULL,
		qr_code        TEXT NOT NULL UNIQUE,
		is_active      BOOLEAN NOT NULL DEFAULT TRUE,
		created_at     {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_course ON sessions(course_id)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id            TEXT PRIMARY KEY,
		session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		student_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		checked_in_at {{ts}} NOT NULL,
		status        TEXT NOT NULL,
		CONSTRAINT uq_attendance_session_student UNIQUE (session_id, student_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance_records(student_id)`,
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	ts := "TIMESTAMPTZ"
	if db.DriverName() == "sqlite3" {
		ts = "DATETIME"
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, strings.ReplaceAll(stmt, "{{ts}}", ts)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// NewSQLStore returns a Store backed by db. The schema must already exist.
func NewSQLStore(db *sqlx.DB) Store {
	return Store{
		Users:       &sqlUserRepository{db: db},
		Courses:     &sqlCourseRepository{db: db},
		Enrollments: &sqlEnrollmentRepository{db: db},
		Sessions:    &sqlSessionRepository{db: db},
		Attendance:  &sqlAttendanceRepository{db: db},
	}
}

// translate maps driver errors onto the repository sentinels. A foreign
// key failure means the parent row is gone, which callers see as
// ErrNotFound.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrDuplicate
	case isForeignKeyViolation(err):
		return ErrNotFound
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if code, ok := sqlState(err); ok {
		return code == uniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	if code, ok := sqlState(err); ok {
		return code == foreignKeyViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

// sqlState extracts the SQLSTATE from either Postgres driver.
func sqlState(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}
	return "", false
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// expectOne turns a zero-row update or delete into ErrNotFound.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

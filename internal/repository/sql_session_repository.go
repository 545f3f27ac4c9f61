package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/campusattend/attendance/internal/model"
)

const sessionColumns = `id, course_id, title, scheduled_date, start_time, end_time, qr_code, is_active, created_at`

type sqlSessionRepository struct {
	db *sqlx.DB
}

func (r *sqlSessionRepository) Create(ctx context.Context, s model.Session) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO sessions (id, course_id, title, scheduled_date, start_time, end_time, qr_code, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), s.ID, s.CourseID, s.Title, s.ScheduledDate, s.StartTime, s.EndTime, s.QRCode, s.IsActive, s.CreatedAt)
	return translate(err)
}

func (r *sqlSessionRepository) GetByID(ctx context.Context, id string) (model.Session, error) {
	var s model.Session
	err := r.db.GetContext(ctx, &s, r.db.Rebind(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`), id)
	return s, translate(err)
}

// GetByQRCode is served by the unique index on qr_code.
func (r *sqlSessionRepository) GetByQRCode(ctx context.Context, qrCode string) (model.Session, error) {
	var s model.Session
	err := r.db.GetContext(ctx, &s, r.db.Rebind(`SELECT `+sessionColumns+` FROM sessions WHERE qr_code = ?`), qrCode)
	return s, translate(err)
}

func (r *sqlSessionRepository) ListByCourse(ctx context.Context, courseID string) ([]model.Session, error) {
	sessions := []model.Session{}
	err := r.db.SelectContext(ctx, &sessions, r.db.Rebind(`
		SELECT `+sessionColumns+` FROM sessions WHERE course_id = ? ORDER BY start_time
	`), courseID)
	return sessions, translate(err)
}

// SetActive writes the flag with a single UPDATE and reads the row back in
// the same transaction.
func (r *sqlSessionRepository) SetActive(ctx context.Context, id string, active bool) (model.Session, error) {
	var s model.Session
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := expectOne(tx.ExecContext(ctx, tx.Rebind(`UPDATE sessions SET is_active = ? WHERE id = ?`), active, id)); err != nil {
			return err
		}
		return translate(tx.GetContext(ctx, &s, tx.Rebind(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`), id))
	})
	return s, err
}

func (r *sqlSessionRepository) Delete(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id))
}

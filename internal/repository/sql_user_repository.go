package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/campusattend/attendance/internal/model"
)

const userColumns = `id, email, name, role, student_number, department, created_at`

type sqlUserRepository struct {
	db *sqlx.DB
}

func (r *sqlUserRepository) Create(ctx context.Context, user model.User) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO users (id, email, name, role, student_number, department, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), user.ID, user.Email, user.Name, string(user.Role), user.StudentID, user.Department, user.CreatedAt)
	return translate(err)
}

func (r *sqlUserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	return user, translate(err)
}

func (r *sqlUserRepository) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY email`)
	return users, translate(err)
}

func (r *sqlUserRepository) UpdateRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	var user model.User
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := expectOne(tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET role = ? WHERE id = ?`), string(role), id)); err != nil {
			return err
		}
		return translate(tx.GetContext(ctx, &user, tx.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
	})
	return user, err
}

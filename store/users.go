package store

import (
	"context"
	"database/sql"

	"github.com/mbolis/formify/model"
	"github.com/pkg/errors"
)

func InsertUser(ctx context.Context, q Querier, u *model.User, passwordHash []byte) error {
	err := q.QueryRowContext(ctx, `
		INSERT INTO user (username, email, password_hash, is_staff)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		u.Username,
		u.Email,
		passwordHash,
		u.IsStaff,
	).Scan(&u.ID)
	return errors.Wrap(err, "db.insert_user")
}

func GetUserByName(ctx context.Context, q Querier, username string) (u model.User, hash []byte, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT id, username, email, is_staff, password_hash
		FROM user
		WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.IsStaff, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		err = model.Missing("user", username)
		return
	}
	err = errors.Wrap(err, "db.get_user")
	return
}

func GetUser(ctx context.Context, q Querier, id int) (u model.User, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT id, username, email, is_staff
		FROM user
		WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.IsStaff)
	if errors.Is(err, sql.ErrNoRows) {
		err = model.Missing("user", id)
		return
	}
	err = errors.Wrap(err, "db.get_user")
	return
}

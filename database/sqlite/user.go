package sqlite

import (
	"context"
	"database/sql"

	"github.com/recast-tv/recast-server/database/model"
)

// GetUser retrieves a user by username.
func (s *SqliteRepo) GetUser(ctx context.Context, username string) (*model.User, error) {
	const query = `SELECT id,
		username,
		password,
		created,
		lastlogin FROM users WHERE username=? LIMIT 1`
	return sqlScanUser(s.dbReadHandle.QueryRowContext(ctx, query, username))
}

// GetUserByID retrieves a user from the database by their ID.
func (s *SqliteRepo) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	const query = `SELECT id,
		username,
		password,
		created,
		lastlogin FROM users WHERE id=? LIMIT 1`
	return sqlScanUser(s.dbReadHandle.QueryRowContext(ctx, query, userID))
}

func sqlScanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Password,
		&user.Created,
		&user.LastLogin); err != nil {
		return nil, model.ErrNotFound
	}
	return &user, nil
}

// UpsertUser upserts a user into the database.
func (s *SqliteRepo) UpsertUser(ctx context.Context, user *model.User) error {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `REPLACE INTO users (id, username, password, created, lastlogin) VALUES (?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Password,
		user.Created,
		user.LastLogin)
	if err != nil {
		return err
	}
	return tx.Commit()
}

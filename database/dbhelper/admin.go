package dbhelper

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/menu/database"
	"github.com/ray-remotestate/menu/models"
	"github.com/ray-remotestate/menu/utils"
)

type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CreateAdmin inserts the admin unless the username is taken. It reports
// whether a row was written.
func CreateAdmin(ctx context.Context, exec SQLExecutor, username, hashedPassword string) (bool, error) {
	res, err := exec.ExecContext(ctx, `
		INSERT INTO admins (username, password_hash) VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING`, username, hashedPassword)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SeedAdmin provisions the admin account. An existing admin with the same
// username is left untouched, password included.
func SeedAdmin(ctx context.Context, username, password string) error {
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	created, err := CreateAdmin(ctx, database.Restro, username, hashed)
	if err != nil {
		return err
	}
	if created {
		logrus.Infof("created admin %q", username)
	}
	return nil
}

func GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	err := database.Restro.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM admins
		WHERE username = $1`, username).
		Scan(&admin.ID, &admin.Username, &admin.PasswordHash, &admin.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

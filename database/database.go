package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/menu/config"
)

// Restro is the shared connection pool. It is set by ConnectAndMigrate.
var Restro *sql.DB

//go:embed migrations/*.sql
var migrationFiles embed.FS

func ConnectAndMigrate(cfg config.DatabaseConfig) error {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	Restro = db
	logrus.Info("connected to database")

	return migrateUp(db)
}

func ShutdownDatabase() error {
	if Restro == nil {
		return nil
	}
	return Restro.Close()
}

func migrateUp(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration setup: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration version: %w", err)
	}
	logrus.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("database schema is up to date")
	return nil
}

// Ping reports whether the pool can reach the database within timeout.
func Ping(ctx context.Context, timeout time.Duration) error {
	if Restro == nil {
		return errors.New("database not initialised")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return Restro.PingContext(ctx)
}

// Tx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := Restro.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start a transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				logrus.Errorf("failed to rollback tx: %s", rollBackErr)
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rollBackErr := tx.Rollback(); rollBackErr != nil {
			logrus.Errorf("failed to rollback tx: %s", rollBackErr)
		}
		return err
	}
	return tx.Commit()
}

package pgorders

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

var tableStmts = []string{
	`
CREATE TABLE IF NOT EXISTS orders (
  id SERIAL PRIMARY KEY,
  driver_name VARCHAR(255) NOT NULL,
  car_number VARCHAR(255) NOT NULL,
  client_phone VARCHAR(14) NOT NULL,
  order_status VARCHAR(10) NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_car_number ON orders(car_number)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_order_status ON orders(order_status)`,
}

func (s *Storage) DatabaseExists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.withAdmin(ctx, func(conn *pgx.Conn) error {
		var err error
		exists, err = databaseExists(ctx, conn, s.params.TargetDB)
		return err
	})
	return exists, err
}

// CreateDatabase creates the target database over the administrative connection and
// then the orders table over the target pool. CREATE DATABASE cannot share a session
// with DDL inside the database it creates. If the table cannot be created the new
// database is dropped again, so a retry starts from scratch.
func (s *Storage) CreateDatabase(ctx context.Context) error {
	err := s.withAdmin(ctx, func(conn *pgx.Conn) error {
		exists, err := databaseExists(ctx, conn, s.params.TargetDB)
		if err != nil {
			return err
		}
		if exists {
			return errors.Wrapf(models.ErrAlreadyExists, "database %q", s.params.TargetDB)
		}

		ident := pgx.Identifier{s.params.TargetDB}.Sanitize()
		if _, err := conn.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
			return wrap(err, "create database")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.initSchema(ctx); err != nil {
		s.rollbackCreate(ctx)
		return err
	}
	slog.Info("database created", "db", s.params.TargetDB)
	return nil
}

// DropDatabase terminates every other session on the target database and drops it.
// PostgreSQL refuses DROP DATABASE while connections are open.
func (s *Storage) DropDatabase(ctx context.Context) error {
	err := s.withAdmin(ctx, func(conn *pgx.Conn) error {
		exists, err := databaseExists(ctx, conn, s.params.TargetDB)
		if err != nil {
			return err
		}
		if !exists {
			return errors.Wrapf(models.ErrNotFound, "database %q", s.params.TargetDB)
		}

		return s.dropTarget(ctx, conn)
	})
	if err != nil {
		return err
	}

	slog.Info("database dropped", "db", s.params.TargetDB)
	return nil
}

// dropTarget closes our own pool connections, terminates everyone else's and drops
// the target database.
func (s *Storage) dropTarget(ctx context.Context, conn *pgx.Conn) error {
	s.db.Reset()

	_, err := conn.Exec(ctx, `
SELECT pg_terminate_backend(pid)
FROM pg_stat_activity
WHERE datname = $1
  AND pid <> pg_backend_pid()
`, s.params.TargetDB)
	if err != nil {
		return wrap(err, "terminate sessions")
	}

	ident := pgx.Identifier{s.params.TargetDB}.Sanitize()
	if _, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+ident); err != nil {
		return wrap(err, "drop database")
	}
	return nil
}

// rollbackCreate runs even when ctx is already cancelled.
func (s *Storage) rollbackCreate(ctx context.Context) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	err := s.withAdmin(rbCtx, func(conn *pgx.Conn) error {
		return s.dropTarget(rbCtx, conn)
	})
	if err != nil {
		slog.Error("drop of half-created database failed", "db", s.params.TargetDB, "error", err.Error())
		return
	}
	slog.Warn("orders table not created, database dropped", "db", s.params.TargetDB)
}

func (s *Storage) initSchema(ctx context.Context) error {
	for _, q := range tableStmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return wrap(err, "init schema")
		}
	}
	return nil
}

func (s *Storage) withAdmin(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	conn, err := pgx.Connect(ctx, s.params.AdminConnString())
	if err != nil {
		return wrap(err, "connect admin db")
	}
	defer func() { _ = conn.Close(context.Background()) }()

	return fn(conn)
}

func databaseExists(ctx context.Context, conn *pgx.Conn, name string) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return false, wrap(err, "check database")
	}
	return exists, nil
}

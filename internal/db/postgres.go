package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/lib/pq"
	"github.com/mathesar-foundation/testdb/internal/config"
)

const postgresMaintenanceDB = "postgres"

type postgresEngine struct{}

func (postgresEngine) Name() string    { return config.EnginePostgres }
func (postgresEngine) Dialect() string { return "postgres" }

func (postgresEngine) TestName(cfg config.DatabaseConfig) string { return serverTestName(cfg) }

func postgresDSN(cfg config.DatabaseConfig, dbname string) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": []string{sslmode}}.Encode(),
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	return u.String()
}

func (postgresEngine) Exists(ctx context.Context, cfg config.DatabaseConfig, name string) (bool, error) {
	var exists bool
	err := withServer(ctx, "postgres", postgresDSN(cfg, postgresMaintenanceDB), func(conn *sql.DB) error {
		var one int
		err := conn.QueryRowContext(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", name).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

func (postgresEngine) Create(ctx context.Context, cfg config.DatabaseConfig, name string) error {
	return withServer(ctx, "postgres", postgresDSN(cfg, postgresMaintenanceDB), func(conn *sql.DB) error {
		if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
			return fmt.Errorf("create database %s: %w", name, err)
		}
		return nil
	})
}

func (postgresEngine) Destroy(ctx context.Context, cfg config.DatabaseConfig, name string) error {
	return withServer(ctx, "postgres", postgresDSN(cfg, postgresMaintenanceDB), func(conn *sql.DB) error {
		if _, err := conn.ExecContext(ctx, "DROP DATABASE IF EXISTS "+pq.QuoteIdentifier(name)); err != nil {
			return fmt.Errorf("drop database %s: %w", name, err)
		}
		return nil
	})
}

func (postgresEngine) Open(ctx context.Context, cfg config.DatabaseConfig, name string) (*sql.DB, error) {
	return openAndPing(ctx, "postgres", postgresDSN(cfg, name))
}

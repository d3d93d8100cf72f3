package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mathesar-foundation/testdb/internal/config"
)

type mysqlEngine struct{}

func (mysqlEngine) Name() string    { return config.EngineMySQL }
func (mysqlEngine) Dialect() string { return "mysql" }

func (mysqlEngine) TestName(cfg config.DatabaseConfig) string { return serverTestName(cfg) }

func mysqlDSN(cfg config.DatabaseConfig, dbname string) string {
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.DBName = dbname
	mc.ParseTime = true
	return mc.FormatDSN()
}

func quoteMySQL(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlEngine) Exists(ctx context.Context, cfg config.DatabaseConfig, name string) (bool, error) {
	var exists bool
	err := withServer(ctx, "mysql", mysqlDSN(cfg, ""), func(conn *sql.DB) error {
		var schema string
		err := conn.QueryRowContext(ctx,
			"SELECT SCHEMA_NAME FROM information_schema.SCHEMATA WHERE SCHEMA_NAME = ?", name,
		).Scan(&schema)
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

func (mysqlEngine) Create(ctx context.Context, cfg config.DatabaseConfig, name string) error {
	return withServer(ctx, "mysql", mysqlDSN(cfg, ""), func(conn *sql.DB) error {
		if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+quoteMySQL(name)); err != nil {
			return fmt.Errorf("create database %s: %w", name, err)
		}
		return nil
	})
}

func (mysqlEngine) Destroy(ctx context.Context, cfg config.DatabaseConfig, name string) error {
	return withServer(ctx, "mysql", mysqlDSN(cfg, ""), func(conn *sql.DB) error {
		if _, err := conn.ExecContext(ctx, "DROP DATABASE IF EXISTS "+quoteMySQL(name)); err != nil {
			return fmt.Errorf("drop database %s: %w", name, err)
		}
		return nil
	})
}

func (mysqlEngine) Open(ctx context.Context, cfg config.DatabaseConfig, name string) (*sql.DB, error) {
	return openAndPing(ctx, "mysql", mysqlDSN(cfg, name))
}

// Package database opens the read-only connection to the sales database.
//
// Three dialects are supported. SQL Server is the production source; Postgres
// and SQLite exist for replicas and local runs.
package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/JonMunkholm/salesfeed/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"  // registers "pgx"
	_ "github.com/mattn/go-sqlite3"     // registers "sqlite3"
	_ "github.com/microsoft/go-mssqldb" // registers "sqlserver"
)

// Dialect identifies the SQL flavor of the source database.
type Dialect string

const (
	SQLServer Dialect = config.DriverSQLServer
	Postgres  Dialect = config.DriverPostgres
	SQLite    Dialect = config.DriverSQLite
)

// ParseDialect maps a DB_DRIVER value to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case SQLServer, Postgres, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unknown database driver %q", s)
	}
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "pgx"
	default:
		return string(d)
	}
}

// DB is an open connection tagged with its dialect.
type DB struct {
	*sqlx.DB
	Dialect Dialect
}

// DSN builds the driver connection string for cfg.
func DSN(cfg config.DatabaseConfig) (string, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return "", err
	}

	switch dialect {
	case SQLite:
		return cfg.Database, nil

	case Postgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.Username, cfg.Password),
			Host:   hostPort(cfg.Server, cfg.Port),
			Path:   "/" + cfg.Database,
		}
		return u.String(), nil

	default:
		// SERVER may carry a named instance: "host\INSTANCE".
		host, instance, _ := strings.Cut(cfg.Server, `\`)
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.Username, cfg.Password),
			Host:     hostPort(host, cfg.Port),
			RawQuery: url.Values{"database": {cfg.Database}}.Encode(),
		}
		if instance != "" {
			u.Path = "/" + instance
		}
		return u.String(), nil
	}
}

func hostPort(host string, port int) string {
	if port == 0 {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Open connects to the configured database and verifies the connection.
// The caller owns the returned handle and must Close it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sqlx.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	return &DB{DB: conn, Dialect: dialect}, nil
}

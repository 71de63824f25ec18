package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	defaultPostgresPort = 5432
	defaultMySQLPort    = 3306

	sqliteMemoryDSN = "file::memory:?cache=shared&_foreign_keys=1"
)

// sqliteDSN returns cfg.DSN verbatim, an in-memory database for an empty or ":memory:" path, and a
// WAL-journaled file otherwise. The parent directory of a file database is created on demand.
func sqliteDSN(cfg Config) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" || strings.EqualFold(path, ":memory:") {
		return sqliteMemoryDSN, nil
	}
	if err := ensureDir(path); err != nil {
		return "", fmt.Errorf("sqlite: create data dir: %w", err)
	}
	return fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL", filepath.ToSlash(path)), nil
}

// buildPostgresDSN renders a postgres:// URL so credentials with spaces or quotes survive. sslmode
// defaults to disable; the result is checked with pgconn before gorm sees it.
func buildPostgresDSN(cfg Config) (string, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		if cfg.User == "" || cfg.Name == "" {
			return "", errors.New("postgres configuration requires user and database name")
		}

		query := url.Values{}
		for key, value := range cfg.Options {
			query.Set(key, value)
		}
		if query.Get("sslmode") == "" {
			query.Set("sslmode", "disable")
		}

		u := url.URL{
			Scheme:   "postgres",
			User:     url.User(cfg.User),
			Host:     net.JoinHostPort(orDefault(cfg.Host, "localhost"), strconv.Itoa(portOrDefault(cfg.Port, defaultPostgresPort))),
			Path:     "/" + cfg.Name,
			RawQuery: query.Encode(),
		}
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		dsn = u.String()
	}

	if _, err := pgconn.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("postgres: invalid dsn: %w", err)
	}
	return dsn, nil
}

// buildMySQLDSN formats the connection through the driver's own Config. Times are parsed into UTC and
// the connection charset is utf8mb4 unless overridden by an option.
func buildMySQLDSN(cfg Config) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		if _, err := mysqldriver.ParseDSN(dsn); err != nil {
			return "", fmt.Errorf("mysql: invalid dsn: %w", err)
		}
		return dsn, nil
	}

	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	mc := mysqldriver.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(orDefault(cfg.Host, "127.0.0.1"), strconv.Itoa(portOrDefault(cfg.Port, defaultMySQLPort)))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	for key, value := range cfg.Options {
		mc.Params[key] = value
	}

	return mc.FormatDSN(), nil
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

func portOrDefault(port, fallback int) int {
	if port > 0 {
		return port
	}
	return fallback
}

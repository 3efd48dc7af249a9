package mariadb

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to MariaDB. Multi-statement execution is always disabled so a
// generated query can never smuggle a second statement. MaxIdleConns is
// applied as given; zero means every connection is closed on release.
func Open(ctx context.Context, cfg DBConfig) (*sqlx.DB, error) {
	dsn, err := hardenDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mariadb: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mariadb: %w", err)
	}
	return db, nil
}

func hardenDSN(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("mariadb dsn is required")
	}
	parsed, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("parse mariadb dsn: %w", err)
	}
	parsed.MultiStatements = false
	parsed.ParseTime = true
	return parsed.FormatDSN(), nil
}

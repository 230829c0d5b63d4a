// Package db opens the MySQL connection and owns the schema.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

type Config struct {
	User     string
	Password string
	// Host is host:port. The legacy "tcp(host:port)" form is accepted too.
	Host     string
	Database string
}

// DSN renders the driver connection string.
func (c Config) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = trimNet(c.Host)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	return cfg.FormatDSN()
}

// Open connects and pings the database.
func Open(ctx context.Context, c Config) (*sql.DB, error) {
	conn, err := sql.Open("mysql", c.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return conn, nil
}

func trimNet(host string) string {
	if strings.HasPrefix(host, "tcp(") && strings.HasSuffix(host, ")") {
		return host[len("tcp(") : len(host)-1]
	}
	return host
}

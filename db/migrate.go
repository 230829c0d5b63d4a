package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// MySQL error numbers that mean a statement was already applied.
const (
	errTableExists     = 1050
	errDuplicateColumn = 1060
	errDuplicateKey    = 1061
)

// Statements splits the embedded schema into executable statements.
func Statements() []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt = strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Migrate applies the schema. It can be run repeatedly.
func Migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if alreadyApplied(err) {
				logger.Info("skipping applied statement", zap.Error(err))
				continue
			}
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Debug("executed", zap.String("statement", firstLine(stmt)))
	}
	logger.Info("migration completed")
	return nil
}

func alreadyApplied(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	switch myErr.Number {
	case errTableExists, errDuplicateColumn, errDuplicateKey:
		return true
	}
	return false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

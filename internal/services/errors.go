package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/farmlink/marketplace/pkg/errors"
)

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
)

// isUniqueConstraintError detects uniqueness violations from any of the supported drivers.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		return pgErr.Code == pgUniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil {
		return myErr.Number == mysqlDuplicateEntry
	}

	// sqlite reports constraint failures as plain text
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// conflictOr maps a uniqueness violation to ErrConflict and wraps anything else with context.
func conflictOr(err error, wrap func(error) error) error {
	if isUniqueConstraintError(err) {
		return apperrors.ErrConflict.WithInternal(err)
	}
	return wrap(err)
}

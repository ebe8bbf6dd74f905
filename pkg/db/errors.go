package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. When name is provided, the violated constraint or
// its table must match it as well ("inbox" matches "inbox_pkey").
func IsUniqueViolation(err error, name string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return name == "" || strings.Contains(err.Error(), name)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return name == "" ||
			pgErr.ConstraintName == name ||
			pgErr.TableName == name ||
			strings.HasPrefix(pgErr.ConstraintName, name+"_")
	}
	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return name == "" || strings.Contains(msg, name)
}

package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteConstraintPK   = 1555
	sqliteConstraintUniq = 2067
)

// sqliteCoder matches the extended result code exposed by the sqlite driver errors.
type sqliteCoder interface {
	Code() int
}

// IsDuplicateKeyErr reports whether err is a unique or primary key violation
// on any supported dialect, such as a second cost code with the same code.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr sqliteCoder
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqliteConstraintUniq || code == sqliteConstraintPK
	}

	// Drivers that only surface text.
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "Error 1062") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

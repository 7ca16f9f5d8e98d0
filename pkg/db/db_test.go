package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smallbiznis/costline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDialect(t *testing.T) {
	for _, typ := range []string{"postgres", "mysql", "sqlite"} {
		d, err := Dialect(Config{Type: typ, Host: "localhost", Port: "5432", Name: "costline"})
		require.NoError(t, err, typ)
		assert.Equal(t, typ, d.Name())
	}

	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.Config{DBType: "sqlite", DBPath: "x.db", DBConnMaxLifetime: 300, DBMaxOpenConn: 5})
	assert.Equal(t, "sqlite", cfg.Type)
	assert.Equal(t, "x.db", cfg.Path)
	assert.Equal(t, 5, cfg.MaxOpenConn)
	assert.Equal(t, float64(300), cfg.ConnMaxLifetime.Seconds())
}

type sqliteErr int

func (e sqliteErr) Error() string { return fmt.Sprintf("sqlite error %d", int(e)) }
func (e sqliteErr) Code() int     { return int(e) }

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))

	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("create cost code: %w", &pgconn.PgError{Code: "23505", ConstraintName: "cost_codes_code_key"})))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23503"}))

	assert.True(t, IsDuplicateKeyErr(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsDuplicateKeyErr(&mysql.MySQLError{Number: 1452}))

	assert.True(t, IsDuplicateKeyErr(sqliteErr(2067)))
	assert.True(t, IsDuplicateKeyErr(sqliteErr(1555)))
	assert.False(t, IsDuplicateKeyErr(sqliteErr(787)))

	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: cost_codes.code")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
}

package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/smallbiznis/pqio/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestDialectByType(t *testing.T) {
	for typ, name := range map[string]string{
		TypePostgres:  "postgres",
		TypeMySQL:     "mysql",
		TypeSQLite:    "sqlite",
		TypeSQLiteCGO: "sqlite",
	} {
		d, err := Dialect(Config{Type: typ, Path: "x.db"})
		require.NoError(t, err, typ)
		assert.Equal(t, name, d.Name(), typ)
	}

	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestFromAppDefaults(t *testing.T) {
	cfg := FromApp(config.Config{DBType: TypeSQLite, DBConnMaxLifetime: 30})
	assert.Equal(t, defaultDBPath, cfg.Path)
	assert.Equal(t, "30s", cfg.ConnMaxLifetime.String())
	assert.True(t, cfg.IsSQLite())
	assert.False(t, Config{Type: TypePostgres}.IsSQLite())
}

func TestOpenInMemory(t *testing.T) {
	conn, err := Open(Config{Type: TypeSQLite, Path: ":memory:"}, zap.NewNop(), gormlogger.Silent)
	require.NoError(t, err)
	var one int
	require.NoError(t, conn.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsDuplicateKeyErr(&pq.Error{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: settings.name")))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
}

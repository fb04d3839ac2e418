// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"testing"

	"github.com/smallbiznis/pqio/internal/migration"
	"github.com/smallbiznis/pqio/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a private migrated sqlite database living as long as t.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	conn, err := db.Open(db.Config{Type: db.TypeSQLite, Path: ":memory:"}, zap.NewNop(), gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, migration.Run(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

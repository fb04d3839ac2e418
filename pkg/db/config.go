package db

import (
	"time"

	"github.com/smallbiznis/pqio/internal/config"
)

const (
	TypePostgres   = "postgres"
	TypeMySQL      = "mysql"
	TypeSQLite     = "sqlite"
	TypeSQLiteCGO  = "sqlite3"
	defaultDBPath  = "pqio.db"
	defaultTimeout = 5 * time.Second
)

// Config is the connection subset of the application config.
type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	Path            string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// FromApp extracts the database settings. Lifetimes are configured in seconds.
func FromApp(cfg config.Config) Config {
	path := cfg.DBPath
	if path == "" {
		path = defaultDBPath
	}
	return Config{
		Type:            cfg.DBType,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		Path:            path,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTime) * time.Second,
	}
}

// IsSQLite reports whether the config targets an embedded database file.
func (c Config) IsSQLite() bool {
	return c.Type == TypeSQLite || c.Type == TypeSQLiteCGO || c.Type == ""
}

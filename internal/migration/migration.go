package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	assetdomain "github.com/smallbiznis/pqio/internal/asset/domain"
	channeldomain "github.com/smallbiznis/pqio/internal/channel/domain"
	customfielddomain "github.com/smallbiznis/pqio/internal/customfield/domain"
	dataseriesdomain "github.com/smallbiznis/pqio/internal/dataseries/domain"
	eventdomain "github.com/smallbiznis/pqio/internal/event/domain"
	importrundomain "github.com/smallbiznis/pqio/internal/importrun/domain"
	meterdomain "github.com/smallbiznis/pqio/internal/meter/domain"
	sensitivitydomain "github.com/smallbiznis/pqio/internal/sensitivity/domain"
	settingdomain "github.com/smallbiznis/pqio/internal/setting/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted entity in dependency order.
func Models() []any {
	return []any{
		&assetdomain.Asset{},
		&meterdomain.Meter{},
		&channeldomain.Channel{},
		&eventdomain.Event{},
		&dataseriesdomain.DataSeries{},
		&customfielddomain.CustomField{},
		&sensitivitydomain.DataSensitivity{},
		&settingdomain.Setting{},
		&importrundomain.ImportRun{},
	}
}

// Run brings the schema up to date. PostgreSQL goes through the versioned
// SQL migrations; other dialects are synced from the models.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		return syncModels(conn)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// syncModels creates missing tables, columns and indexes. Existing columns
// are never altered: the sqlite migrator alters by rebuilding the table,
// which fails once other tables reference its rows.
func syncModels(conn *gorm.DB) error {
	m := conn.Migrator()
	for _, model := range Models() {
		if !m.HasTable(model) {
			if err := m.CreateTable(model); err != nil {
				return fmt.Errorf("create table for %T: %w", model, err)
			}
			continue
		}
		stmt := &gorm.Statement{DB: conn}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("parse %T: %w", model, err)
		}
		for _, column := range stmt.Schema.DBNames {
			if m.HasColumn(model, column) {
				continue
			}
			if err := m.AddColumn(model, column); err != nil {
				return fmt.Errorf("add column %s.%s: %w", stmt.Schema.Table, column, err)
			}
		}
		for _, idx := range stmt.Schema.ParseIndexes() {
			if m.HasIndex(model, idx.Name) {
				continue
			}
			if err := m.CreateIndex(model, idx.Name); err != nil {
				return fmt.Errorf("create index %s: %w", idx.Name, err)
			}
		}
	}
	return nil
}

// RunMigrations applies the embedded SQL migrations to a PostgreSQL database.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}
	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.
	return nil
}

// Down reverts every migration. Only PostgreSQL is versioned.
func Down(conn *gorm.DB) error {
	if conn.Dialector.Name() != "postgres" {
		models := Models()
		for i := len(models) - 1; i >= 0; i-- {
			if err := conn.Migrator().DropTable(models[i]); err != nil {
				return err
			}
		}
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	migrator, err := newMigrator(sqlDB)
	if err != nil {
		return err
	}
	if err := migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("revert migrations: %w", err)
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}

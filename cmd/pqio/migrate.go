package main

import (
	"context"
	"fmt"

	"github.com/smallbiznis/pqio/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or revert the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			return runMigrate(cmd.Context(), direction)
		},
	}
}

func runMigrate(ctx context.Context, direction string) error {
	var conn *gorm.DB
	var log *zap.Logger
	return runOnce(ctx, fx.Options(infrastructure(), fx.Populate(&conn, &log)), func(context.Context) error {
		var err error
		if direction == "down" {
			err = migration.Down(conn)
		} else {
			err = migration.Run(conn)
		}
		if err != nil {
			return fmt.Errorf("migrate %s: %w", direction, err)
		}
		log.Info("migration finished", zap.String("direction", direction), zap.String("dialect", conn.Dialector.Name()))
		return nil
	})
}

package main

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pqio/internal/asset"
	"github.com/smallbiznis/pqio/internal/channel"
	"github.com/smallbiznis/pqio/internal/clock"
	"github.com/smallbiznis/pqio/internal/config"
	"github.com/smallbiznis/pqio/internal/customfield"
	"github.com/smallbiznis/pqio/internal/dataseries"
	"github.com/smallbiznis/pqio/internal/event"
	"github.com/smallbiznis/pqio/internal/exporter"
	"github.com/smallbiznis/pqio/internal/importer"
	"github.com/smallbiznis/pqio/internal/importrun"
	"github.com/smallbiznis/pqio/internal/meter"
	"github.com/smallbiznis/pqio/internal/migration"
	"github.com/smallbiznis/pqio/internal/observability"
	"github.com/smallbiznis/pqio/internal/pushmetrics"
	"github.com/smallbiznis/pqio/internal/resolver"
	"github.com/smallbiznis/pqio/internal/sensitivity"
	"github.com/smallbiznis/pqio/internal/setting"
	"github.com/smallbiznis/pqio/pkg/db"
	"go.uber.org/fx"
)

// infrastructure is shared by every command.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(provideSnowflake),
		db.Module,
		clock.Module,
	)
}

// pipelines wires the repositories, resolver and both pipelines on a
// migrated schema.
func pipelines() fx.Option {
	return fx.Options(
		migration.Module,
		asset.Module,
		meter.Module,
		channel.Module,
		event.Module,
		dataseries.Module,
		importrun.Module,
		customfield.Module,
		sensitivity.Module,
		setting.Module,
		resolver.Module,
		importer.Module,
		exporter.Module,
		pushmetrics.Module,
	)
}

func provideSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}

// runOnce starts an app, hands its populated targets to fn and stops it.
// Stopping flushes logs and pushes batch metrics.
func runOnce(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	app := fx.New(opts, fx.NopLogger)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	runErr := fn(ctx)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
